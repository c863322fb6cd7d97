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
	"fmt"
)

// ErrNoHeartRate returned when a connected peripheral lacks the heart rate measurement characteristic
type ErrNoHeartRate struct {
	ID string
}

func (e ErrNoHeartRate) Error() string {
	return fmt.Sprintf("Heart rate measurement characteristic not found: %s", e.ID)
}

// ErrUnsupported returned when BLE is not available on this platform
type ErrUnsupported struct {
	OS string
}

func (e ErrUnsupported) Error() string {
	return fmt.Sprintf("BLE is not supported on %s", e.OS)
}
