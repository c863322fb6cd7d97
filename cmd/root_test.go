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

package cmd

import (
	"bytes"
	"math"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "jinr.ru/greenlab/go-hrm/pkg/config"
	"jinr.ru/greenlab/go-hrm/pkg/history"
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
	"jinr.ru/greenlab/go-hrm/pkg/srv/api"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSubcommands(t *testing.T) {
	cmd := NewRootCommand(&bytes.Buffer{})
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, name := range []string{"run", "tail", "history", "recap", "persist", "sessions", "config", "completion"} {
		assert.Contains(t, names, name)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go-hrm", "config")
	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg := pkgconfig.NewDefaultConfig()
	cfg.SetFilepath(path)
	require.NoError(t, cfg.Load())
	assert.Equal(t, pkgconfig.DefaultHistoryCapacity, cfg.History.Capacity)

	_, err = execute(t, "config", "init", "--config", path)
	assert.Error(t, err)
	_, err = execute(t, "config", "init", "--overwrite", "--config", path)
	assert.NoError(t, err)
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion")
	require.NoError(t, err)
	assert.Contains(t, out, "go-hrm")

	_, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestClientCommands(t *testing.T) {
	h := history.New(10)
	now := time.Now()
	h.Append(hrm.Sample{Time: now.Add(-time.Hour).UnixNano(), Rate: 58, RR: []float64{}})
	h.Append(hrm.Sample{Time: now.UnixNano(), Rate: 72, RR: []float64{0.8}})
	h.Append(hrm.Sample{Time: now.UnixNano() + 1, Rate: math.NaN(), RR: []float64{}})

	dir := t.TempDir()
	s := api.NewApiServer(&pkgconfig.ApiConfig{Enabled: true}, h, nil, filepath.Join(dir, "history.log"))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	cfg := pkgconfig.NewDefaultConfig()
	cfg.SetFilepath(filepath.Join(dir, "config"))
	cfg.Api.Address = ts.Listener.Addr().String()
	require.NoError(t, cfg.Persist(false))
	configArg := "--config=" + cfg.Filepath()

	out, err := execute(t, "recap", configArg)
	require.NoError(t, err)
	assert.Equal(t, "Min: 58 bpm Max: 72 bpm Last: 72 bpm\n", out)

	out, err = execute(t, "history", configArg)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
	assert.Contains(t, out, `"rate":null`)

	out, err = execute(t, "history", "--since", "10m", configArg)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	out, err = execute(t, "persist", configArg)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 3 samples")

	_, err = execute(t, "sessions", configArg)
	assert.Error(t, err)
}
