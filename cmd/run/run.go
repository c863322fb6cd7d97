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

package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-hrm/pkg/command"
	"jinr.ru/greenlab/go-hrm/pkg/config"
)

const (
	DeviceOptionName      = "device"
	NameOptionName        = "name"
	HCIOptionName         = "hci"
	NetworkOptionName     = "network"
	AddressOptionName     = "address"
	HistoryOptionName     = "history"
	SimFramesOptionName   = "sim-frames"
	NoApiOptionName       = "no-api"
	KeepServingOptionName = "keep-serving"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var deviceKind, name, network, address, historyPath string
	var hci, simFrames int
	var noApi, keepServing bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the sensor, record its samples and stream them to clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed(DeviceOptionName) {
				cfg.Device.Kind = deviceKind
			}
			if flags.Changed(NameOptionName) {
				cfg.Device.Name = name
			}
			if flags.Changed(HCIOptionName) {
				cfg.Device.HCI = hci
			}
			if flags.Changed(SimFramesOptionName) {
				cfg.Device.SimFrames = simFrames
			}
			if flags.Changed(NetworkOptionName) {
				cfg.Stream.Network = network
			}
			if flags.Changed(AddressOptionName) {
				cfg.Stream.Address = address
			}
			if flags.Changed(HistoryOptionName) {
				cfg.History.Path = historyPath
			}
			if noApi {
				cfg.Api.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return command.StartPipeline(ctx, cfg, keepServing)
		},
	}
	cmd.Flags().StringVar(&deviceKind, DeviceOptionName, "", fmt.Sprintf("Device kind: %s or %s", config.DeviceKindBLE, config.DeviceKindSim))
	cmd.Flags().StringVar(&name, NameOptionName, "", "BLE peripheral name or ID. Empty takes the first heart rate sensor")
	cmd.Flags().IntVar(&hci, HCIOptionName, config.DefaultHCI, "HCI device ID, -1 picks the first one")
	cmd.Flags().IntVar(&simFrames, SimFramesOptionName, 0, "Disconnect the simulated sensor after this many frames, 0 never")
	cmd.Flags().StringVar(&network, NetworkOptionName, "", "Stream server network: unix or tcp")
	cmd.Flags().StringVar(&address, AddressOptionName, "", fmt.Sprintf("Stream server address. E.g. %s", config.DefaultStreamTCPAddress))
	cmd.Flags().StringVar(&historyPath, HistoryOptionName, "", "History log file")
	cmd.Flags().BoolVar(&noApi, NoApiOptionName, false, "Do not start the HTTP API server")
	cmd.Flags().BoolVar(&keepServing, KeepServingOptionName, false, "Keep serving clients after the sensor disconnects")
	return cmd
}
