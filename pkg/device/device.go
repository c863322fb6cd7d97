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

package device

import (
	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/device/ble"
	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/device/sim"
)

// NewConnector returns the connector selected by cfg.Kind
func NewConnector(cfg *config.DeviceConfig) (deviceifc.Connector, error) {
	switch cfg.Kind {
	case config.DeviceKindBLE:
		return ble.NewDevice(cfg.Name, cfg.HCI), nil
	case config.DeviceKindSim:
		return sim.NewDevice(cfg.SimRate, cfg.SimInterval.Duration, cfg.SimFrames), nil
	default:
		return nil, config.ErrConfigInvalid{What: "unknown device kind: " + cfg.Kind}
	}
}
