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

package hrm

import (
	"encoding/hex"
	"fmt"
)

// ErrDecode returned when a notification can not be decoded into a Sample
type ErrDecode struct {
	Frame []byte
	What  string
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("Error while decoding frame %s: %s", hex.EncodeToString(e.Frame), e.What)
}

// ErrLine returned when a persisted line is not a [time, rate, rr] triple
type ErrLine struct {
	What string
}

func (e ErrLine) Error() string {
	return fmt.Sprintf("Malformed sample line: %s", e.What)
}
