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

package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
)

type fixture struct {
	history *history.History
	mux     *notify.Multiplexer
	server  *Server
	cancel  context.CancelFunc
	done    chan error
}

func startServer(t *testing.T, network, address string) *fixture {
	return startServerTimeout(t, network, address, time.Second)
}

func startServerTimeout(t *testing.T, network, address string, writeTimeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		history: history.New(10),
		mux:     notify.NewMultiplexer(),
		done:    make(chan error, 1),
	}
	cfg := &config.StreamConfig{
		Network:      network,
		Address:      address,
		WriteTimeout: config.Duration{Duration: writeTimeout},
	}
	f.server = NewServer(cfg, f.history, f.mux)
	require.NoError(t, f.server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		f.done <- f.server.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

func startUnix(t *testing.T) *fixture {
	return startServer(t, "unix", filepath.Join(t.TempDir(), "hrm.sock"))
}

type client struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func dial(t *testing.T, f *fixture) *client {
	t.Helper()
	conn, err := net.Dial(f.server.Addr().Network(), f.server.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *client) line(t *testing.T) string {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.True(t, c.scanner.Scan(), "no line: %v", c.scanner.Err())
	return c.scanner.Text()
}

func (f *fixture) publish(s hrm.Sample) {
	f.history.Append(s)
	f.mux.NotifyAll()
}

func TestRecapThenLiveSamples(t *testing.T) {
	f := startUnix(t)
	for i, rate := range []float64{5, 12, math.NaN(), 30, 8} {
		f.history.Append(hrm.Sample{Time: int64(i), Rate: rate, RR: []float64{}})
	}

	c := dial(t, f)
	assert.JSONEq(t, `{"min":12,"max":30,"last":30}`, c.line(t))

	f.publish(hrm.Sample{Time: 100, Rate: 64, RR: []float64{0.9375}})
	assert.JSONEq(t, `{"time":100,"rate":64,"rr":[0.9375]}`, c.line(t))

	f.publish(hrm.Discontinuity(time.Unix(0, 200)))
	assert.JSONEq(t, `{"time":200,"rate":null,"rr":[]}`, c.line(t))
}

func TestRecapEmptyHistory(t *testing.T) {
	f := startUnix(t)
	c := dial(t, f)
	assert.JSONEq(t, `{"min":null,"max":null,"last":null}`, c.line(t))
}

func TestFanOutToClients(t *testing.T) {
	f := startServer(t, "tcp", "127.0.0.1:0")
	clients := []*client{dial(t, f), dial(t, f), dial(t, f)}
	for _, c := range clients {
		c.line(t)
	}
	require.Equal(t, 3, f.mux.Len())

	f.publish(hrm.Sample{Time: 1, Rate: 70, RR: []float64{}})
	for _, c := range clients {
		assert.JSONEq(t, `{"time":1,"rate":70,"rr":[]}`, c.line(t))
	}
}

func TestClientCloseUnsubscribes(t *testing.T) {
	f := startUnix(t)
	c := dial(t, f)
	c.line(t)
	require.Equal(t, 1, f.mux.Len())

	c.conn.Close()
	assert.Eventually(t, func() bool { return f.mux.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	f.publish(hrm.Sample{Time: 1, Rate: 70, RR: []float64{}})
	other := dial(t, f)
	assert.JSONEq(t, `{"min":70,"max":70,"last":70}`, other.line(t))
}

func TestShutdownClosesClients(t *testing.T) {
	f := startUnix(t)
	c := dial(t, f)
	c.line(t)

	f.cancel()
	select {
	case err := <-f.done:
		assert.ErrorIs(t, err, context.Canceled)
		f.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	assert.False(t, c.scanner.Scan())
	assert.Equal(t, 0, f.mux.Len())
}

func TestTail(t *testing.T) {
	f := startUnix(t)
	f.history.Append(hrm.Sample{Time: 1, Rate: 80, RR: []float64{}})

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Tail(ctx, "unix", f.server.Addr().String(), out)
	}()

	assert.Eventually(t, func() bool {
		return bytes.Contains(out.Bytes(), []byte(`"last":80`))
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestSlowClientDoesNotStallOthers(t *testing.T) {
	f := startServerTimeout(t, "unix", filepath.Join(t.TempDir(), "hrm.sock"), 200*time.Millisecond)

	stalled := dial(t, f)
	stalled.line(t)
	reader := dial(t, f)
	reader.scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	reader.line(t)
	require.Equal(t, 2, f.mux.Len())

	rr := make([]float64, 50000)
	for i := range rr {
		rr[i] = 0.9375
	}
	for i := 1; i <= 12; i++ {
		f.publish(hrm.Sample{Time: int64(i), Rate: 70, RR: rr})
		s := hrm.Sample{}
		require.NoError(t, json.Unmarshal([]byte(reader.line(t)), &s))
		assert.Equal(t, int64(i), s.Time)
		assert.Len(t, s.RR, len(rr))
	}

	assert.Eventually(t, func() bool { return f.mux.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.publish(hrm.Sample{Time: 100, Rate: 71, RR: []float64{}})
	assert.JSONEq(t, `{"time":100,"rate":71,"rr":[]}`, reader.line(t))
}
