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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

// Duration is a time.Duration written as "1s", "24h" in the config file
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type DeviceConfig struct {
	// Kind is one of ble, sim
	Kind string `json:"kind"`
	// Name filters BLE peripherals by local name or ID, empty takes the first heart rate sensor
	Name string `json:"name,omitempty"`
	HCI  int    `json:"hci"`
	// sim only
	SimRate     float64  `json:"simRate,omitempty"`
	SimInterval Duration `json:"simInterval,omitempty"`
	SimFrames   int      `json:"simFrames,omitempty"`
}

type HistoryConfig struct {
	Path     string   `json:"path"`
	Capacity int      `json:"capacity"`
	Horizon  Duration `json:"horizon"`
}

type StreamConfig struct {
	// Network is unix or tcp
	Network      string   `json:"network"`
	Address      string   `json:"address"`
	WriteTimeout Duration `json:"writeTimeout"`
}

type ApiConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type Config struct {
	LogLevel  string         `json:"logLevel"`
	LogFile   string         `json:"logFile,omitempty"`
	SessionDB string         `json:"sessionDB"`
	Device    *DeviceConfig  `json:"device"`
	History   *HistoryConfig `json:"history"`
	Stream    *StreamConfig  `json:"stream"`
	Api       *ApiConfig     `json:"api"`
	filepath  string
}

func (c *Config) Filepath() string {
	return c.filepath
}

func (c *Config) SetFilepath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filepath, data, 0644)
}

// Load overrides defaults with the config file if it exists
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	device, hist, stream, api := c.Device, c.History, c.Stream, c.Api
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%s: %w", c.filepath, err)
	}
	// an explicit null section keeps the defaults
	if c.Device == nil {
		c.Device = device
	}
	if c.History == nil {
		c.History = hist
	}
	if c.Stream == nil {
		c.Stream = stream
	}
	if c.Api == nil {
		c.Api = api
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Device == nil || c.History == nil || c.Stream == nil || c.Api == nil {
		return ErrConfigInvalid{What: "device, history, stream and api sections are required"}
	}
	switch c.Device.Kind {
	case DeviceKindBLE, DeviceKindSim:
	default:
		return ErrConfigInvalid{What: fmt.Sprintf("device kind %q, must be one of %s, %s", c.Device.Kind, DeviceKindBLE, DeviceKindSim)}
	}
	switch c.Stream.Network {
	case "unix", "tcp":
	default:
		return ErrConfigInvalid{What: fmt.Sprintf("stream network %q, must be one of unix, tcp", c.Stream.Network)}
	}
	if c.History.Capacity <= 0 {
		return ErrConfigInvalid{What: "history capacity must be positive"}
	}
	if c.History.Horizon.Duration <= 0 {
		return ErrConfigInvalid{What: "history horizon must be positive"}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir)
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		SessionDB: filepath.Join(homeDir(), DefaultSessionDBFile),
		Device: &DeviceConfig{
			Kind:        DefaultDeviceKind,
			HCI:         DefaultHCI,
			SimRate:     DefaultSimRate,
			SimInterval: Duration{DefaultSimInterval},
		},
		History: &HistoryConfig{
			Path:     filepath.Join(homeDir(), DefaultHistoryFile),
			Capacity: DefaultHistoryCapacity,
			Horizon:  Duration{DefaultHistoryHorizon},
		},
		Stream: &StreamConfig{
			Network:      DefaultStreamNetwork,
			Address:      filepath.Join(os.TempDir(), DefaultStreamSocket),
			WriteTimeout: Duration{DefaultWriteTimeout},
		},
		Api: &ApiConfig{
			Enabled: true,
			Address: DefaultApiAddress,
		},
		filepath: DefaultConfigPath(),
	}
}
