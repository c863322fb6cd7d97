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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/log"
	"jinr.ru/greenlab/go-hrm/pkg/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.SetFilepath(filepath.Join(dir, "config"))
	cfg.SessionDB = filepath.Join(dir, "sessions.db")
	cfg.History.Path = filepath.Join(dir, "history.log")
	cfg.Stream.Network = "tcp"
	cfg.Stream.Address = "127.0.0.1:0"
	cfg.Api.Enabled = false
	cfg.Device.Kind = config.DeviceKindSim
	cfg.Device.SimInterval = config.Duration{Duration: 5 * time.Millisecond}
	cfg.Device.SimFrames = 3
	return cfg
}

func TestStartPipelineUntilDisconnect(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logs := &bytes.Buffer{}
	require.NoError(t, log.Init(logs, "info"))
	defer log.Init(os.Stderr, "info")

	require.NoError(t, StartPipeline(ctx, cfg, false))
	assert.Contains(t, logs.String(), "Sensor gap")

	h := history.New(cfg.History.Capacity)
	require.NoError(t, h.LoadFile(cfg.History.Path, cfg.History.Horizon.Duration))
	samples := h.Snapshot()
	require.Len(t, samples, 4)
	assert.True(t, samples[3].IsDiscontinuity())
	for _, s := range samples[:3] {
		assert.False(t, s.IsDiscontinuity())
	}

	state, err := session.Open(cfg.SessionDB)
	require.NoError(t, err)
	defer state.Close()
	records, err := state.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(3), records[0].Frames)
	assert.NotNil(t, records[0].End)
}

func TestStartPipelineKeepServing(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartPipeline(ctx, cfg, true)
	}()

	select {
	case err := <-done:
		t.Fatalf("pipeline returned before cancel: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestStartPipelineBadDevice(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.Kind = "usb"
	assert.Error(t, StartPipeline(context.Background(), cfg, false))
}
