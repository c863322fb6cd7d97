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

package link

import (
	"sync"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/log"
)

const FrameChSize = 256

// Link is the Session plumbing shared by connectors: a frame queue
// and a one-shot disconnect signal.
type Link struct {
	name         string
	frames       chan []byte
	disconnected chan struct{}
	once         sync.Once
	closeFn      func() error
}

var _ deviceifc.Session = &Link{}

func New(name string, closeFn func() error) *Link {
	return &Link{
		name:         name,
		frames:       make(chan []byte, FrameChSize),
		disconnected: make(chan struct{}),
		closeFn:      closeFn,
	}
}

func (l *Link) Name() string {
	return l.name
}

func (l *Link) Frames() <-chan []byte {
	return l.frames
}

func (l *Link) Disconnected() <-chan struct{} {
	return l.disconnected
}

// Push queues a copy of frame without blocking the caller
func (l *Link) Push(frame []byte) bool {
	select {
	case <-l.disconnected:
		return false
	default:
	}
	data := make([]byte, len(frame))
	copy(data, frame)
	select {
	case l.frames <- data:
		return true
	default:
		log.Warning("Frame queue full, frame dropped: device: %s", l.name)
		return false
	}
}

// Disconnect signals the end of the session, it is safe to call more than once
func (l *Link) Disconnect() {
	l.once.Do(func() {
		log.Info("Device disconnected: %s", l.name)
		close(l.disconnected)
	})
}

func (l *Link) Close() error {
	l.Disconnect()
	if l.closeFn != nil {
		return l.closeFn()
	}
	return nil
}
