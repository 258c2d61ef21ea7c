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
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/layers"
	"jinr.ru/greenlab/go-octaeeg/pkg/timestamp"
)

// Duration is a time.Duration written as "100ms" in the config file
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
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	Path        string   `json:"path,omitempty"`
	Service     string   `json:"service,omitempty"`
	DialTimeout Duration `json:"dialTimeout,omitempty"`
}

// URL returns the websocket URL of the device at the resolved address
func (c *DeviceConfig) URL(addr string) string {
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(addr, strconv.Itoa(c.Port)), c.Path)
}

type AcquisitionConfig struct {
	Rate     int      `json:"rate,omitempty"`
	Gain     int      `json:"gain,omitempty"`
	Names    []string `json:"names,omitempty"`
	Debug    bool     `json:"debug"`
	Layout   string   `json:"layout,omitempty"`
	Strategy string   `json:"strategy,omitempty"`
}

type ApiConfig struct {
	Address       string   `json:"address,omitempty"`
	DrainInterval Duration `json:"drainInterval,omitempty"`
	OutboxSize    int      `json:"outboxSize,omitempty"`
}

type Config struct {
	Device      *DeviceConfig      `json:"device,omitempty"`
	Acquisition *AcquisitionConfig `json:"acquisition,omitempty"`
	Api         *ApiConfig         `json:"api,omitempty"`
	DBPath      string             `json:"dbPath,omitempty"`
	RecordDir   string             `json:"recordDir,omitempty"`
	LogLevel    string             `json:"logLevel,omitempty"`
	filepath    string
}

// Acquisition is the validated acquisition section
type Acquisition struct {
	Rate     device.Rate
	Gain     device.Gain
	Layout   layers.Layout
	Strategy timestamp.Strategy
	Debug    bool
	// Names are the column names, debug columns included
	Names []string
}

// Parse validates the section against the device tables
func (c *AcquisitionConfig) Parse() (*Acquisition, error) {
	rate, err := device.ParseRate(c.Rate)
	if err != nil {
		return nil, err
	}
	gain, err := device.ParseGain(c.Gain)
	if err != nil {
		return nil, err
	}
	layout, ok := layers.ParseLayout(c.Layout)
	if !ok {
		return nil, ErrInvalidLayout{Layout: c.Layout}
	}
	strategy, ok := timestamp.ParseStrategy(c.Strategy)
	if !ok {
		return nil, ErrInvalidStrategy{Strategy: c.Strategy}
	}
	if strategy != timestamp.StrategyHost && layout != layers.LayoutHeader {
		return nil, ErrInvalidStrategy{Strategy: c.Strategy, Layout: c.Layout}
	}
	return &Acquisition{
		Rate:     rate,
		Gain:     gain,
		Layout:   layout,
		Strategy: strategy,
		Debug:    c.Debug,
		Names:    ChannelNames(c.Names, c.Debug),
	}, nil
}

// ChannelNames returns names when there is one per channel, otherwise 1..8.
// In debug mode the device timestamp and counter columns come first.
func ChannelNames(names []string, debug bool) []string {
	result := []string{}
	if debug {
		result = append(result, TimestampChannelName, CounterChannelName)
	}
	if len(names) == layers.Channels {
		return append(result, names...)
	}
	for i := 1; i <= layers.Channels; i++ {
		result = append(result, strconv.Itoa(i))
	}
	return result
}

// Validate fails fast on everything which can be checked before connecting
func (c *Config) Validate() error {
	if _, err := c.Acquisition.Parse(); err != nil {
		return err
	}
	if c.Api.DrainInterval.Duration <= 0 {
		return fmt.Errorf("drain interval must be positive: %s", c.Api.DrainInterval)
	}
	if c.Api.OutboxSize <= 0 {
		return fmt.Errorf("outbox size must be positive: %d", c.Api.OutboxSize)
	}
	return nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
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

// LoadFile reads the config file over the current values
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c.filepath = path
	return yaml.Unmarshal(data, c)
}

// Load reads the config file if it exists. Missing file is not an error.
func (c *Config) Load() error {
	err := c.LoadFile(c.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir)
}

func DefaultConfigPath() string {
	return filepath.Join(defaultDir(), ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(defaultDir(), DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		Device: &DeviceConfig{
			Host:        DefaultDeviceHost,
			Port:        DefaultDevicePort,
			Path:        DefaultDevicePath,
			Service:     DefaultDiscoverService,
			DialTimeout: Duration{DefaultDialTimeout},
		},
		Acquisition: &AcquisitionConfig{
			Rate:     DefaultRate,
			Gain:     DefaultGain,
			Layout:   DefaultLayout,
			Strategy: DefaultStrategy,
		},
		Api: &ApiConfig{
			Address:       DefaultApiAddress,
			DrainInterval: Duration{DefaultDrainInterval},
			OutboxSize:    DefaultOutboxSize,
		},
		DBPath:    DefaultDBPath(),
		RecordDir: DefaultRecordDir,
		LogLevel:  DefaultLogLevel,
		filepath:  DefaultConfigPath(),
	}
}
