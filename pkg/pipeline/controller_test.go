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
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/device/link"
	"jinr.ru/greenlab/go-hrm/pkg/device/sim"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
	"jinr.ru/greenlab/go-hrm/pkg/session"
)

type recordingSink struct {
	mu      sync.Mutex
	samples []hrm.Sample
}

func (r *recordingSink) Accept(s hrm.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func (r *recordingSink) Samples() []hrm.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hrm.Sample(nil), r.samples...)
}

// linkConnector hands out a prepared link
type linkConnector struct {
	l   *link.Link
	err error
}

func (c *linkConnector) Connect(context.Context) (deviceifc.Session, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.l, nil
}

func newController(t *testing.T) (*Controller, *recordingSink) {
	rec := &recordingSink{}
	c := NewController(history.New(100), notify.NewMultiplexer(), rec)
	c.HistoryPath = filepath.Join(t.TempDir(), "history.log")
	return c, rec
}

func TestHandleFrame(t *testing.T) {
	c, rec := newController(t)
	w := c.Mux.Subscribe("test")

	c.HandleFrame([]byte{0x10, 0x3c, 0x00, 0x04})

	require.Equal(t, 1, c.History.Len())
	last, _ := c.History.Last()
	assert.Equal(t, 60.0, last.Rate)
	assert.Equal(t, []float64{1.0}, last.RR)

	select {
	case <-w.C():
	default:
		t.Fatal("waiter not woken")
	}
	require.Len(t, rec.Samples(), 1)
}

func TestHandleMalformedFrame(t *testing.T) {
	c, rec := newController(t)
	w := c.Mux.Subscribe("test")

	c.HandleFrame([]byte{0x10, 0x3c, 0x00})
	c.HandleFrame([]byte{0x00})

	assert.Equal(t, 0, c.History.Len())
	assert.Empty(t, rec.Samples())
	select {
	case <-w.C():
		t.Fatal("waiter woken by a dropped frame")
	default:
	}
	assert.Equal(t, uint64(2), c.decodeErrors)
}

func TestRunUntilDisconnect(t *testing.T) {
	c, rec := newController(t)
	state, err := session.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer state.Close()
	c.State = state

	l := link.New("fake", nil)
	l.Push([]byte{0x00, 0x3c})
	l.Push([]byte{0x00})
	l.Push([]byte{0x10, 0x48, 0x00, 0x04})
	l.Disconnect()

	require.NoError(t, c.Run(context.Background(), &linkConnector{l: l}))

	samples := c.History.Snapshot()
	require.Len(t, samples, 3)
	assert.Equal(t, 60.0, samples[0].Rate)
	assert.Equal(t, 72.0, samples[1].Rate)
	assert.True(t, samples[2].IsDiscontinuity())
	assert.Len(t, rec.Samples(), 3)

	loaded := history.New(100)
	require.NoError(t, loaded.LoadFile(c.HistoryPath, history.DefaultHorizon))
	assert.Equal(t, 3, loaded.Len())

	records, err := state.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fake", records[0].Device)
	assert.Equal(t, uint64(3), records[0].Frames)
	assert.Equal(t, uint64(1), records[0].DecodeErrors)
	assert.NotNil(t, records[0].End)
}

func TestRunCancelled(t *testing.T) {
	c, _ := newController(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, sim.NewDevice(65, time.Millisecond, 0))
	}()

	require.Eventually(t, func() bool { return c.History.Len() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	last, ok := c.History.Last()
	require.True(t, ok)
	assert.True(t, last.IsDiscontinuity())

	loaded := history.New(100)
	require.NoError(t, loaded.LoadFile(c.HistoryPath, history.DefaultHorizon))
	assert.Equal(t, c.History.Len(), loaded.Len())
}

func TestRunConnectError(t *testing.T) {
	c, _ := newController(t)
	boom := errors.New("no adapter")
	err := c.Run(context.Background(), &linkConnector{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.History.Len())
}

// chanSession is a session whose frame channel is owned by the test
type chanSession struct {
	frames       chan []byte
	disconnected chan struct{}
}

func (s *chanSession) Name() string                  { return "chan" }
func (s *chanSession) Frames() <-chan []byte         { return s.frames }
func (s *chanSession) Disconnected() <-chan struct{} { return s.disconnected }
func (s *chanSession) Close() error                  { return nil }

func (s *chanSession) Connect(context.Context) (deviceifc.Session, error) {
	return s, nil
}

func TestRunFrameChannelClosed(t *testing.T) {
	c, _ := newController(t)
	sess := &chanSession{frames: make(chan []byte, 2), disconnected: make(chan struct{})}
	sess.frames <- []byte{0x00, 0x3c}
	close(sess.frames)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx, sess))

	assert.Equal(t, uint64(1), c.frames)
	assert.Equal(t, uint64(0), c.decodeErrors)
	samples := c.History.Snapshot()
	require.Len(t, samples, 2)
	assert.Equal(t, 60.0, samples[0].Rate)
	assert.True(t, samples[1].IsDiscontinuity())
}

func TestRunDrainStopsAtClosedChannel(t *testing.T) {
	c, _ := newController(t)
	sess := &chanSession{frames: make(chan []byte, 2), disconnected: make(chan struct{})}
	close(sess.disconnected)
	close(sess.frames)

	require.NoError(t, c.Run(context.Background(), sess))
	assert.Equal(t, uint64(0), c.decodeErrors)
	assert.Equal(t, 1, c.History.Len())
}

func TestRunJournalsCounters(t *testing.T) {
	c, _ := newController(t)
	state, err := session.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer state.Close()
	c.State = state
	c.JournalEvery = 2

	sess := &chanSession{frames: make(chan []byte, 4), disconnected: make(chan struct{})}
	sess.frames <- []byte{0x00, 0x3c}
	sess.frames <- []byte{0x00}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, sess)
	}()

	require.Eventually(t, func() bool {
		records, err := state.List()
		return err == nil && len(records) == 1 && records[0].Frames == 2
	}, 5*time.Second, 5*time.Millisecond)
	records, err := state.List()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), records[0].DecodeErrors)
	assert.Nil(t, records[0].End)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	records, err = state.List()
	require.NoError(t, err)
	assert.NotNil(t, records[0].End)
}
