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

package config

import (
	"time"
)

const (
	ConfigDir  = ".go-hrm"
	ConfigFile = "config"

	DefaultLogLevel         = "info"
	DefaultHistoryFile      = "history.log"
	DefaultSessionDBFile    = "sessions.db"
	DefaultHistoryCapacity  = 3600
	DefaultHistoryHorizon   = 24 * time.Hour
	DefaultStreamNetwork    = "unix"
	DefaultStreamSocket     = "go-hrm.sock"
	DefaultStreamTCPAddress = "127.0.0.1:8036"
	DefaultWriteTimeout     = 5 * time.Second
	DefaultApiAddress       = "127.0.0.1:8037"
	DefaultDeviceKind       = DeviceKindBLE
	DefaultHCI              = -1
	DefaultSimRate          = 65.0
	DefaultSimInterval      = time.Second
)

const (
	DeviceKindBLE = "ble"
	DeviceKindSim = "sim"
)
