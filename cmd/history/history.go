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

package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-hrm/pkg/command"
	"jinr.ru/greenlab/go-hrm/pkg/config"
)

const (
	SinceOptionName = "since"
)

func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print retained samples of a running server, one JSON object per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sinceNs int64
			if since > 0 {
				sinceNs = time.Now().Add(-since).UnixNano()
			}
			apiClient := command.NewApiClient(cfg)
			samples, err := apiClient.History(sinceNs)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, s := range samples {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, SinceOptionName, 0, "Only samples newer than this. E.g. 10m")
	return cmd
}

func NewRecapCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Print min, max and last rate of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			recap, err := apiClient.Recap()
			if err != nil {
				return err
			}
			if recap.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "No measurements")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Min: %.0f bpm Max: %.0f bpm Last: %.0f bpm\n", *recap.Min, *recap.Max, *recap.Last)
			return nil
		},
	}
	return cmd
}

func NewPersistCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Make a running server rewrite its history file",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			persisted, err := apiClient.Persist()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d samples to %s\n", persisted.Samples, persisted.Path)
			return nil
		},
	}
	return cmd
}
