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

package pipeline

import (
	"context"
	"fmt"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/metrics"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
	"jinr.ru/greenlab/go-hrm/pkg/session"
	"jinr.ru/greenlab/go-hrm/pkg/sink"
)

// DefaultJournalEvery is how many frames pass between session journal updates
const DefaultJournalEvery = 100

// Controller feeds sensor frames into the history and wakes consumers.
// State and HistoryPath are optional.
type Controller struct {
	History     *history.History
	Mux         *notify.Multiplexer
	Sink        sink.Sink
	State       *session.State
	HistoryPath string

	// JournalEvery frames the session record counters are stored, 0 disables
	JournalEvery uint64

	frames       uint64
	decodeErrors uint64
}

func NewController(h *history.History, mux *notify.Multiplexer, s sink.Sink) *Controller {
	if s == nil {
		s = sink.Null{}
	}
	return &Controller{
		History:      h,
		Mux:          mux,
		Sink:         s,
		JournalEvery: DefaultJournalEvery,
	}
}

// Run connects to the sensor and ingests frames until it disconnects, its frame
// channel closes or ctx ends.
// Both ways out mark a discontinuity and persist the history.
// A disconnect returns nil, cancellation returns the context error.
func (c *Controller) Run(ctx context.Context, connector deviceifc.Connector) error {
	sess, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Close()
	c.frames, c.decodeErrors = 0, 0
	log.Info("Pipeline started: device: %s", sess.Name())

	rec := c.beginSession(sess.Name())

	for {
		select {
		case <-ctx.Done():
			if err := c.finish(rec); err != nil {
				return err
			}
			return ctx.Err()
		case <-sess.Disconnected():
			c.drain(sess)
			return c.finish(rec)
		case frame, ok := <-sess.Frames():
			if !ok {
				return c.finish(rec)
			}
			c.HandleFrame(frame)
			c.journal(rec)
		}
	}
}

// HandleFrame decodes one notification, appends it and wakes consumers.
// Malformed frames are logged and dropped.
func (c *Controller) HandleFrame(frame []byte) {
	c.frames++
	metrics.FramesTotal.Inc()

	s, err := hrm.Decode(frame)
	if err != nil {
		c.decodeErrors++
		metrics.DecodeErrorsTotal.Inc()
		log.Warning("Frame dropped: %s", err)
		return
	}
	c.publish(s)
	metrics.Rate.Set(s.Rate)
}

func (c *Controller) publish(s hrm.Sample) {
	c.History.Append(s)
	c.Mux.NotifyAll()
	metrics.HistorySize.Set(float64(c.History.Len()))
	c.Sink.Accept(s)
}

// drain handles frames queued before the disconnect signal
func (c *Controller) drain(sess deviceifc.Session) {
	for {
		select {
		case frame, ok := <-sess.Frames():
			if !ok {
				return
			}
			c.HandleFrame(frame)
		default:
			return
		}
	}
}

func (c *Controller) finish(rec *session.Record) error {
	gap := c.History.MarkDiscontinuity()
	c.Mux.NotifyAll()
	metrics.DiscontinuitiesTotal.Inc()
	metrics.HistorySize.Set(float64(c.History.Len()))
	c.Sink.Accept(gap)
	log.Info("Pipeline stopped: frames: %d decode errors: %d", c.frames, c.decodeErrors)

	c.finishSession(rec)

	if c.HistoryPath == "" {
		return nil
	}
	if err := c.History.SaveFile(c.HistoryPath); err != nil {
		log.Error("Error while saving history: %s", err)
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (c *Controller) beginSession(device string) *session.Record {
	if c.State == nil {
		return nil
	}
	rec, err := c.State.Begin(device)
	if err != nil {
		log.Error("Error while recording session start: %s", err)
		return nil
	}
	return rec
}

// journal stores the running counters every JournalEvery frames
func (c *Controller) journal(rec *session.Record) {
	if c.State == nil || rec == nil || c.JournalEvery == 0 || c.frames%c.JournalEvery != 0 {
		return
	}
	rec.Frames = c.frames
	rec.DecodeErrors = c.decodeErrors
	if err := c.State.Update(rec); err != nil {
		log.Error("Error while updating session: %s", err)
	}
}

func (c *Controller) finishSession(rec *session.Record) {
	if c.State == nil || rec == nil {
		return
	}
	rec.Frames = c.frames
	rec.DecodeErrors = c.decodeErrors
	if err := c.State.Finish(rec); err != nil {
		log.Error("Error while recording session end: %s", err)
	}
}
