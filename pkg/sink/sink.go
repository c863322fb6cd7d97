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
	"strings"
	"sync"
	"sync/atomic"

	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/metrics"
)

const DefaultAsyncSize = 64

// Sink consumes every new sample, e.g. for rendering
type Sink interface {
	Accept(s hrm.Sample)
}

type Func func(s hrm.Sample)

func (f Func) Accept(s hrm.Sample) {
	f(s)
}

type Null struct{}

func (Null) Accept(hrm.Sample) {}

// Log renders samples as log lines
type Log struct{}

func (Log) Accept(s hrm.Sample) {
	if s.IsDiscontinuity() {
		log.Warning("Sensor gap at %s", s.Timestamp().Format("15:04:05"))
		return
	}
	rr := make([]string, len(s.RR))
	for i, v := range s.RR {
		rr[i] = strings.TrimRight(strings.TrimRight(formatFloat(v), "0"), ".")
	}
	log.Info("Rate: %.0f bpm RR: [%s]", s.Rate, strings.Join(rr, " "))
}

// Async hands samples to a wrapped sink on its own goroutine.
// Accept never blocks: when the queue is full the sample is dropped.
type Async struct {
	sink    Sink
	ch      chan hrm.Sample
	dropped uint64
	once    sync.Once
	done    chan struct{}
}

func NewAsync(s Sink, size int) *Async {
	if size <= 0 {
		size = DefaultAsyncSize
	}
	a := &Async{
		sink: s,
		ch:   make(chan hrm.Sample, size),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for s := range a.ch {
		a.sink.Accept(s)
	}
}

func (a *Async) Accept(s hrm.Sample) {
	select {
	case a.ch <- s:
	default:
		atomic.AddUint64(&a.dropped, 1)
		metrics.SinkDroppedTotal.Inc()
		log.Debug("Visualization sink busy, sample dropped")
	}
}

func (a *Async) Dropped() uint64 {
	return atomic.LoadUint64(&a.dropped)
}

// Close drains queued samples and waits for the wrapped sink.
// Accept must not be called after Close.
func (a *Async) Close() {
	a.once.Do(func() {
		close(a.ch)
	})
	<-a.done
}
