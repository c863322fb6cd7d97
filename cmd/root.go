/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-hrm/cmd/completion"
	"jinr.ru/greenlab/go-hrm/cmd/config"
	"jinr.ru/greenlab/go-hrm/cmd/history"
	"jinr.ru/greenlab/go-hrm/cmd/run"
	"jinr.ru/greenlab/go-hrm/cmd/sessions"
	"jinr.ru/greenlab/go-hrm/cmd/tail"
	pkgconfig "jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
	ConfigOptionName   = "config"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel, configPath string
	cfg := pkgconfig.NewDefaultConfig()
	cmd := &cobra.Command{
		Use:           "go-hrm",
		Short:         "Tool to record and stream heart rate sensor data",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg.SetFilepath(configPath)
			}
			if err := cfg.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logOut := cmd.ErrOrStderr()
			if cfg.LogFile != "" {
				logOut = log.NewFileWriter(cfg.LogFile)
			}
			return log.Init(logOut, cfg.LogLevel)
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand(cfg))
	cmd.AddCommand(run.NewCommand(cfg))
	cmd.AddCommand(tail.NewCommand(cfg))
	cmd.AddCommand(history.NewHistoryCommand(cfg))
	cmd.AddCommand(history.NewRecapCommand(cfg))
	cmd.AddCommand(history.NewPersistCommand(cfg))
	cmd.AddCommand(sessions.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	cmd.PersistentFlags().StringVar(&configPath, ConfigOptionName, "", fmt.Sprintf("Config file. Default: %s", pkgconfig.DefaultConfigPath()))
	return cmd
}
