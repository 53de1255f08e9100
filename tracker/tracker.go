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

// Package tracker owns the single Graph instance and the maintenance loops
// around it: idle-peer expiry, allowed-directory rescans, and state-file
// persistence. NAT checks are not periodic: ScheduleNATCheck starts one per
// announce. The announce/scrape/onion-building
// logic that reads and mutates the Graph per-request lives in package
// server; this package is the long-lived context those handlers are given.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/lingyu0w0/Anomos/analytics"
	"github.com/lingyu0w0/Anomos/config"
	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/pathfind"
	"github.com/lingyu0w0/Anomos/util"
)

// Tracker is the explicit context passed to every handler, replacing the
// package-level tracker singletons (filesystem encoding, crypto init) the
// original implementation relied on.
type Tracker struct {
	Config config.Config
	Graph  *graph.Graph
	Finder *pathfind.Finder
	Allowed *AllowList

	Analytics *analytics.Recorder // nil when analytics_dsn is unset

	completedMu sync.Mutex
	completed   map[graph.InfoHash]int64 // persisted snatch counters, keyed like the state file

	natQueue util.Semaphore
}

// New builds a Tracker from cfg. rng is the single graph-wide RNG; pass a
// deterministic implementation in tests.
func New(cfg config.Config, rng graph.RNG, rec *analytics.Recorder) *Tracker {
	g := graph.New(rng)

	return &Tracker{
		Config:    cfg,
		Graph:     g,
		Finder:    pathfind.New(g, rng, cfg.MaxPathLen),
		Allowed:   NewAllowList(cfg.AllowedDir, cfg.KeepDead),
		Analytics: rec,
		completed: make(map[graph.InfoHash]int64),
		natQueue:  util.NewSemaphore(),
	}
}

// RecordSnatch bumps the persisted "completed" counter for ih, mirroring the
// original state file's completed: {infohash: int} section.
func (t *Tracker) RecordSnatch(ih graph.InfoHash) {
	t.completedMu.Lock()
	t.completed[ih]++
	t.completedMu.Unlock()
}

// CompletedSnapshot returns a copy of the persisted snatch counters.
func (t *Tracker) CompletedSnapshot() map[graph.InfoHash]int64 {
	t.completedMu.Lock()
	defer t.completedMu.Unlock()

	out := make(map[graph.InfoHash]int64, len(t.completed))
	for k, v := range t.completed {
		out[k] = v
	}

	return out
}

// RunMaintenance starts the periodic background loops (allowed-dir rescan,
// idle-peer expiry, state-file persistence) and blocks until ctx is
// cancelled. Each loop is a plain goroutine scheduled on a ticker, per the
// single-event-loop scheduling model: only their I/O suspends; the graph
// mutations they trigger (expiry's Disconnect calls) run to completion
// without yielding once started.
func (t *Tracker) RunMaintenance(ctx context.Context) {
	var wg sync.WaitGroup

	loops := []struct {
		name     string
		interval time.Duration
		tick     func()
	}{
		{"allowed-dir rescan", t.Config.ParseDirInterval, t.rescanAllowed},
		{"idle expiry", t.Config.TimeoutDownloadersInterval, t.expireIdle},
		{"state save", t.Config.SaveDfileInterval, t.saveStateBestEffort},
	}

	for _, l := range loops {
		if l.interval <= 0 {
			continue
		}

		wg.Add(1)

		go func(name string, interval time.Duration, tick func()) {
			defer wg.Done()

			log.Info.Printf("starting %s loop every %s", name, interval)
			util.ContextTick(ctx, interval, tick)
		}(l.name, l.interval, l.tick)
	}

	wg.Wait()
}

func (t *Tracker) rescanAllowed() {
	if t.Allowed == nil || t.Config.AllowedDir == "" {
		return
	}

	if err := t.Allowed.Rescan(); err != nil {
		log.Warning.Printf("allowed_dir rescan failed: %v", err)
	}
}

func (t *Tracker) saveStateBestEffort() {
	if t.Config.Dfile == "" {
		return
	}

	if err := t.SaveState(t.Config.Dfile); err != nil {
		log.Error.Printf("state save failed: %v", err)
	}
}
