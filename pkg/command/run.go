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

package command

import (
	"context"
	"errors"
	"sync"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/device"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/notify"
	"jinr.ru/greenlab/go-hrm/pkg/pipeline"
	"jinr.ru/greenlab/go-hrm/pkg/session"
	"jinr.ru/greenlab/go-hrm/pkg/sink"
	"jinr.ru/greenlab/go-hrm/pkg/srv/api"
	"jinr.ru/greenlab/go-hrm/pkg/srv/stream"
)

// StartPipeline loads the history, starts the stream and API servers and ingests
// sensor frames until the sensor disconnects or ctx ends. With keepServing the
// servers outlive the sensor until ctx ends.
func StartPipeline(ctx context.Context, cfg *config.Config, keepServing bool) error {
	h := history.New(cfg.History.Capacity)
	if err := h.LoadFile(cfg.History.Path, cfg.History.Horizon.Duration); err != nil {
		return err
	}

	var state *session.State
	if cfg.SessionDB != "" {
		var err error
		state, err = session.Open(cfg.SessionDB)
		if err != nil {
			return err
		}
		defer state.Close()
	}

	connector, err := device.NewConnector(cfg.Device)
	if err != nil {
		return err
	}

	mux := notify.NewMultiplexer()
	streamServer := stream.NewServer(cfg.Stream, h, mux)
	if err := streamServer.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)
	serve := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("%s server failed: %s", name, err)
				errChan <- err
				cancel()
			}
		}()
	}
	serve("Stream", streamServer.Run)
	if cfg.Api.Enabled {
		apiServer := api.NewApiServer(cfg.Api, h, state, cfg.History.Path)
		serve("API", apiServer.Run)
	}

	// The log sink follows the multiplexer as one waiter, rendering off the ingest path
	visual := sink.NewAsync(sink.Log{}, 0)
	followDone := make(chan struct{})
	go func() {
		defer close(followDone)
		sink.Follow(ctx, h, mux, visual)
	}()

	controller := pipeline.NewController(h, mux, nil)
	controller.State = state
	controller.HistoryPath = cfg.History.Path

	err = controller.Run(ctx, connector)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil && keepServing && ctx.Err() == nil {
		log.Info("Sensor disconnected, serving history until interrupted")
		<-ctx.Done()
	}

	cancel()
	<-followDone
	visual.Close()
	wg.Wait()
	select {
	case serveErr := <-errChan:
		return serveErr
	default:
	}
	return err
}
