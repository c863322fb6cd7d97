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

package ifc

import (
	"context"
)

// Session is one connection to a heart rate sensor. It ends at the first disconnect.
type Session interface {
	Name() string
	// Frames yields raw Heart Rate Measurement notifications
	Frames() <-chan []byte
	// Disconnected is closed when the sensor goes away
	Disconnected() <-chan struct{}
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (Session, error)
}
