//go:build !linux

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

package ble

import (
	"context"
	"runtime"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
)

type Device struct {
	Name string
	HCI  int
}

func NewDevice(name string, hci int) *Device {
	return &Device{
		Name: name,
		HCI:  hci,
	}
}

func (d *Device) Connect(ctx context.Context) (deviceifc.Session, error) {
	return nil, ErrUnsupported{OS: runtime.GOOS}
}
