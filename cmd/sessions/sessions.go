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

package sessions

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-hrm/pkg/command"
	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/session"
)

const (
	LocalOptionName = "local"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sensor sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []*session.Record
			var err error
			if local {
				records, err = listLocal(cfg.SessionDB)
			} else {
				records, err = command.NewApiClient(cfg).Sessions()
			}
			if err != nil {
				return err
			}
			for _, r := range records {
				end := "running"
				if r.End != nil {
					end = r.End.Sub(r.Start).Round(time.Second).String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s device: %s duration: %s frames: %d decode errors: %d\n",
					r.ID, r.Start.Format(time.RFC3339), r.Device, end, r.Frames, r.DecodeErrors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, LocalOptionName, false, "Read the session database directly instead of asking a running server")
	return cmd
}

func listLocal(path string) ([]*session.Record, error) {
	state, err := session.Open(path)
	if err != nil {
		return nil, err
	}
	defer state.Close()
	return state.List()
}
