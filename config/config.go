/*
 * This file is part of Anomos.
 *
 * Anomos is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Anomos is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Anomos.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package config loads the tracker's configuration from a JSON file into a
// typed struct. Unlike a duck-typed dictionary keyed by string, every field
// here is named and validated once at load time; unknown top-level keys are
// rejected rather than silently ignored.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ScrapeMode controls how much detail /scrape discloses.
type ScrapeMode string

const (
	ScrapeNone     ScrapeMode = "none"
	ScrapeSpecific ScrapeMode = "specific"
	ScrapeFull     ScrapeMode = "full"
)

// ForwardedIPTrust mirrors the original three-valued only_local_override_ip
// option: 0 never honors a forwarded-IP header, 1 honors it only when the
// socket peer is a local/private address, 2 always honors it.
type ForwardedIPTrust int

const (
	ForwardedIPNever ForwardedIPTrust = iota
	ForwardedIPWhenLocal
	ForwardedIPAlways
)

// Config is the tracker's complete configuration, one field per key
// enumerated in the external-interfaces section. It is loaded once, whole,
// from a JSON document and never mutated afterward.
type Config struct {
	Port int    `json:"port"`
	Bind string `json:"bind"`

	ReannounceInterval time.Duration `json:"-"`
	ReannounceSeconds  int           `json:"reannounce_interval"`

	ResponseSize int `json:"response_size"`
	MaxGive      int `json:"max_give"`

	NatCheck int `json:"nat_check"`

	TimeoutDownloadersInterval time.Duration `json:"-"`
	TimeoutDownloadersSeconds  int           `json:"timeout_downloaders_interval"`

	SaveDfileInterval time.Duration `json:"-"`
	SaveDfileSeconds  int           `json:"save_dfile_interval"`
	Dfile             string        `json:"dfile"`

	AllowedDir string `json:"allowed_dir"`

	ParseDirInterval time.Duration `json:"-"`
	ParseDirSeconds  int           `json:"parse_dir_interval"`

	KeepDead bool `json:"keep_dead"`

	ScrapeAllowed ScrapeMode `json:"scrape_allowed"`

	OnlyLocalOverrideIP ForwardedIPTrust `json:"only_local_override_ip"`

	MaxPathLen int `json:"max_path_len"`

	DataDir string `json:"data_dir"`

	SocketTimeout time.Duration `json:"-"`
	SocketSeconds int           `json:"socket_timeout"`

	AllowGet       bool   `json:"allow_get"`
	ShowInfopage   bool   `json:"show_infopage"`
	InfopageRedirect string `json:"infopage_redirect"`
	Favicon        string `json:"favicon"`

	NumNeighbors int `json:"num_neighbors"`
	MsgLen       int `json:"msg_len"`

	AnalyticsDSN string `json:"analytics_dsn"`

	MetricsBearerToken string `json:"metrics_bearer_token"`
}

// Default returns the built-in defaults, equivalent to a config file holding
// an empty JSON object.
// Values mirror the original tracker's defaults list, adapted to this
// implementation's vocabulary (e.g. NumNeighbors/MsgLen, which the original
// tracker did not expose as tunables of its own).
func Default() Config {
	cfg := Config{
		Port:                      34000,
		Bind:                      "",
		ReannounceSeconds:         1800,
		ResponseSize:              25,
		MaxGive:                   50,
		NatCheck:                  3,
		TimeoutDownloadersSeconds: 3900,
		SaveDfileSeconds:          1800,
		Dfile:                     "anomos.state",
		AllowedDir:                "",
		ParseDirSeconds:           600,
		KeepDead:                  false,
		ScrapeAllowed:             ScrapeFull,
		OnlyLocalOverrideIP:       ForwardedIPWhenLocal,
		MaxPathLen:                10,
		DataDir:                   "./data",
		SocketSeconds:             15,
		AllowGet:                  false,
		ShowInfopage:              true,
		Favicon:                   "",
		NumNeighbors:              5,
		MsgLen:                    4096,
	}

	cfg.resolveDurations()

	return cfg
}

// Load reads and validates a configuration file. Unknown top-level keys
// cause an error rather than being silently dropped.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	cfg.resolveDurations()

	return cfg, nil
}

func (c *Config) resolveDurations() {
	c.ReannounceInterval = time.Duration(c.ReannounceSeconds) * time.Second
	c.TimeoutDownloadersInterval = time.Duration(c.TimeoutDownloadersSeconds) * time.Second
	c.SaveDfileInterval = time.Duration(c.SaveDfileSeconds) * time.Second
	c.ParseDirInterval = time.Duration(c.ParseDirSeconds) * time.Second
	c.SocketTimeout = time.Duration(c.SocketSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}

	switch c.ScrapeAllowed {
	case ScrapeNone, ScrapeSpecific, ScrapeFull:
	default:
		return fmt.Errorf("config: invalid scrape_allowed: %q", c.ScrapeAllowed)
	}

	switch c.OnlyLocalOverrideIP {
	case ForwardedIPNever, ForwardedIPWhenLocal, ForwardedIPAlways:
	default:
		return fmt.Errorf("config: invalid only_local_override_ip: %d", c.OnlyLocalOverrideIP)
	}

	if c.MaxPathLen <= 0 {
		return fmt.Errorf("config: max_path_len must be positive")
	}

	if c.MsgLen <= 0 {
		return fmt.Errorf("config: msg_len must be positive")
	}

	if c.NumNeighbors < 0 {
		return fmt.Errorf("config: num_neighbors must be non-negative")
	}

	return nil
}
