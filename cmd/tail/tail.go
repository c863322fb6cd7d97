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

package tail

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/srv/stream"
)

const (
	NetworkOptionName = "network"
	AddressOptionName = "address"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var network, address string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the recap and live samples from a running stream server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if network == "" {
				network = cfg.Stream.Network
			}
			if address == "" {
				address = cfg.Stream.Address
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return stream.Tail(ctx, network, address, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&network, NetworkOptionName, "", "Stream server network: unix or tcp")
	cmd.Flags().StringVar(&address, AddressOptionName, "", "Stream server address")
	return cmd
}
