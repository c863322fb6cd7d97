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

package sink

import (
	"context"

	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
)

// Follow feeds s the latest history sample on every wake of m until ctx ends.
// The sink is one waiter: wakes coalesce, so a slow sink skips samples.
// A wake already pending when ctx ends is still delivered.
func Follow(ctx context.Context, h *history.History, m *notify.Multiplexer, s Sink) error {
	w := m.Subscribe("sink")
	defer m.Unsubscribe(w)

	deliver := func() {
		if last, ok := h.Last(); ok {
			s.Accept(last)
		}
	}
	for {
		select {
		case <-ctx.Done():
			select {
			case <-w.C():
				deliver()
			default:
			}
			return ctx.Err()
		case <-w.C():
			deliver()
		}
	}
}
