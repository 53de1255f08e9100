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

package tracker

import (
	"math/rand"
	"testing"
	"time"

	"github.com/lingyu0w0/Anomos/config"
	"github.com/lingyu0w0/Anomos/graph"
)

type fixedRNG struct{ src *rand.Rand }

func newFixedRNG(seed int64) graph.RNG { return &fixedRNG{src: rand.New(rand.NewSource(seed))} }

func (r *fixedRNG) Intn(n int) int                    { return r.src.Intn(n) }
func (r *fixedRNG) Shuffle(n int, swap func(i, j int)) { r.src.Shuffle(n, swap) }

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	cfg := config.Default()
	cfg.NumNeighbors = 0
	cfg.MaxPathLen = 10

	return New(cfg, newFixedRNG(1), nil)
}

func TestExpireIdleDisconnectsPastCutoff(t *testing.T) {
	tr := newTestTracker(t)
	tr.Config.TimeoutDownloadersInterval = time.Minute

	now := time.Now()

	var stale, fresh graph.PeerID
	stale[0] = 1
	fresh[0] = 2

	tr.Graph.InitPeer(stale, nil, graph.Endpoint{}, graph.SessionID{}, 0, now.Add(-2*time.Hour))
	tr.Graph.InitPeer(fresh, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)

	tr.expireIdle()

	if _, ok := tr.Graph.Get(stale); ok {
		t.Fatalf("expected stale peer to be expired")
	}

	if _, ok := tr.Graph.Get(fresh); !ok {
		t.Fatalf("expected fresh peer to remain")
	}
}

func TestScheduleNATCheckNoopWhenDisabled(t *testing.T) {
	tr := newTestTracker(t)
	tr.Config.NatCheck = 0

	var id graph.PeerID
	id[0] = 9

	now := time.Now()
	tr.Graph.InitPeer(id, nil, graph.Endpoint{IP: "203.0.113.1", Port: 6881}, graph.SessionID{}, 0, now)

	tr.ScheduleNATCheck(id)

	p, ok := tr.Graph.Get(id)
	if !ok {
		t.Fatalf("peer unexpectedly removed")
	}

	if !p.NAT {
		t.Fatalf("expected NAT flag to remain set when nat_check is disabled")
	}
}

func TestRecordAndSnapshotCompleted(t *testing.T) {
	tr := newTestTracker(t)

	var ih graph.InfoHash
	ih[0] = 7

	tr.RecordSnatch(ih)
	tr.RecordSnatch(ih)

	snap := tr.CompletedSnapshot()
	if snap[ih] != 2 {
		t.Fatalf("expected 2 recorded snatches, got %d", snap[ih])
	}
}
