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

// Package notify wakes every subscribed consumer when a new sample is appended.
//
// Wakes are edge-triggered and carry no payload: each waiter owns a single-slot
// channel and NotifyAll never blocks. A waiter that has not consumed the previous
// wake when the next one arrives sees a single wake and must read the latest
// history state itself.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"jinr.ru/greenlab/go-hrm/pkg/log"
)

type Waiter struct {
	ID   string
	Name string
	ch   chan struct{}
}

// C is the wake channel
func (w *Waiter) C() <-chan struct{} {
	return w.ch
}

type Stats struct {
	Notifications uint64 // NotifyAll calls
	Wakes         uint64 // wakes delivered
	Coalesced     uint64 // wakes merged into a pending one
}

type Multiplexer struct {
	mu            sync.Mutex
	waiters       map[string]*Waiter
	notifications uint64
	wakes         uint64
	coalesced     uint64
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		waiters: make(map[string]*Waiter),
	}
}

// Subscribe registers a new waiter; name is used for logging only
func (m *Multiplexer) Subscribe(name string) *Waiter {
	w := &Waiter{
		ID:   uuid.NewString(),
		Name: name,
		ch:   make(chan struct{}, 1),
	}
	m.mu.Lock()
	m.waiters[w.ID] = w
	m.mu.Unlock()
	log.Debug("Waiter subscribed: name: %s id: %s", name, w.ID)
	return w
}

// Unsubscribe removes w; calling it twice is harmless
func (m *Multiplexer) Unsubscribe(w *Waiter) {
	if w == nil {
		return
	}
	m.mu.Lock()
	_, exists := m.waiters[w.ID]
	delete(m.waiters, w.ID)
	m.mu.Unlock()
	if exists {
		log.Debug("Waiter unsubscribed: name: %s id: %s", w.Name, w.ID)
	}
}

// NotifyAll wakes every currently subscribed waiter once
func (m *Multiplexer) NotifyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.AddUint64(&m.notifications, 1)
	for _, w := range m.waiters {
		select {
		case w.ch <- struct{}{}:
			atomic.AddUint64(&m.wakes, 1)
		default:
			atomic.AddUint64(&m.coalesced, 1)
		}
	}
}

func (m *Multiplexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}

func (m *Multiplexer) Stats() Stats {
	return Stats{
		Notifications: atomic.LoadUint64(&m.notifications),
		Wakes:         atomic.LoadUint64(&m.wakes),
		Coalesced:     atomic.LoadUint64(&m.coalesced),
	}
}
