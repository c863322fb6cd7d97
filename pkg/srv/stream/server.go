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
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/metrics"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
)

// Server pushes newline-delimited JSON to every connected client:
// a recap of the history first, then each new sample.
type Server struct {
	*config.StreamConfig
	history  *history.History
	mux      *notify.Multiplexer
	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(cfg *config.StreamConfig, h *history.History, mux *notify.Multiplexer) *Server {
	return &Server{
		StreamConfig: cfg,
		history:      h,
		mux:          mux,
	}
}

// Listen binds the endpoint, a stale unix socket file is removed first
func (s *Server) Listen() error {
	if s.Network == "unix" {
		if err := os.Remove(s.Address); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	listener, err := net.Listen(s.Network, s.Address)
	if err != nil {
		return err
	}
	s.listener = listener
	log.Info("Stream server listening: network: %s address: %s", s.Network, listener.Addr())
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run accepts clients until ctx ends, then closes every connection and waits for them
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				errChan <- err
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handle(ctx, conn)
			}()
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		s.listener.Close()
		<-errChan
	case err = <-errChan:
		s.listener.Close()
		cancel()
	}
	s.wg.Wait()
	log.Info("Stream server stopped")
	return err
}

// handle runs one connection: Connected -> RecapSent -> Streaming -> Closed.
// Closed always unsubscribes and closes the connection.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	// Subscribe before the recap so nothing appended meanwhile is missed
	w := s.mux.Subscribe("stream:" + id)
	defer s.mux.Unsubscribe(w)

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()
	log.Info("Stream client connected: id: %s remote: %s", id, conn.RemoteAddr())
	defer log.Info("Stream client closed: id: %s", id)

	// Clients never send anything, a read returning means the peer is gone
	go func() {
		io.Copy(io.Discard, conn)
		cancel()
	}()

	if err := s.writeLine(conn, s.history.Recap()); err != nil {
		logWriteError(id, err)
		return
	}
	metrics.StreamLinesTotal.WithLabelValues("recap").Inc()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.C():
			last, ok := s.history.Last()
			if !ok {
				continue
			}
			if err := s.writeLine(conn, last); err != nil {
				logWriteError(id, err)
				return
			}
			metrics.StreamLinesTotal.WithLabelValues("sample").Inc()
		}
	}
}

func (s *Server) writeLine(conn net.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if s.WriteTimeout.Duration > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout.Duration)); err != nil {
			return err
		}
	}
	_, err = conn.Write(data)
	return err
}

func logWriteError(id string, err error) {
	if isPeerGone(err) {
		log.Debug("Stream client went away: id: %s: %s", id, err)
		return
	}
	log.Warning("Error while writing to stream client: id: %s error: %s", id, err)
}

// isPeerGone reports errors that mean a normal end of the connection
func isPeerGone(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
