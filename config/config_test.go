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

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultResolvesDurations guards against Default() leaving the
// *Interval/*Timeout fields at their zero value: every one of
// RunMaintenance's sweeps gates on "interval <= 0 means disabled", so a
// zero duration here would silently turn every periodic task off.
func TestDefaultResolvesDurations(t *testing.T) {
	cfg := Default()

	durations := map[string]time.Duration{
		"ReannounceInterval":         cfg.ReannounceInterval,
		"TimeoutDownloadersInterval": cfg.TimeoutDownloadersInterval,
		"SaveDfileInterval":          cfg.SaveDfileInterval,
		"ParseDirInterval":           cfg.ParseDirInterval,
		"SocketTimeout":              cfg.SocketTimeout,
	}

	for name, d := range durations {
		if d <= 0 {
			t.Fatalf("Default(): %s is %v, expected a positive duration", name, d)
		}
	}

	if cfg.ReannounceInterval != time.Duration(cfg.ReannounceSeconds)*time.Second {
		t.Fatalf("ReannounceInterval %v does not match ReannounceSeconds %d", cfg.ReannounceInterval, cfg.ReannounceSeconds)
	}
}

func TestLoadResolvesDurationsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture config: %v", err)
	}

	if err := json.NewEncoder(f).Encode(map[string]int{
		"reannounce_interval": 60,
	}); err != nil {
		t.Fatalf("encode fixture config: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ReannounceInterval != 60*time.Second {
		t.Fatalf("expected ReannounceInterval 60s after Load, got %v", cfg.ReannounceInterval)
	}

	if cfg.SocketTimeout <= 0 {
		t.Fatalf("expected SocketTimeout to still resolve from the untouched default, got %v", cfg.SocketTimeout)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := os.WriteFile(path, []byte(`{"not_a_real_field": 1}`), 0o644); err != nil {
		t.Fatalf("write fixture config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject an unknown top-level key")
	}
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := Default()
	cfg.Port = 70000

	if err := cfg.validate(); err == nil {
		t.Fatalf("expected validate to reject an out-of-range port")
	}
}
