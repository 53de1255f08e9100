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

package pathfind

import (
	"math/rand"
	"testing"
	"time"

	"github.com/lingyu0w0/Anomos/graph"
)

type fixedRNG struct{ src *rand.Rand }

func newFixedRNG(seed int64) graph.RNG { return &fixedRNG{src: rand.New(rand.NewSource(seed))} }

func (r *fixedRNG) Intn(n int) int                    { return r.src.Intn(n) }
func (r *fixedRNG) Shuffle(n int, swap func(i, j int)) { r.src.Shuffle(n, swap) }

func peerID(b byte) graph.PeerID {
	var id graph.PeerID
	id[0] = b
	return id
}

func connect(t *testing.T, g *graph.Graph, a, b graph.PeerID, now time.Time) {
	t.Helper()

	if err := g.Connect(a, b, now); err != nil {
		t.Fatalf("Connect(%x, %x): %v", a, b, err)
	}
}

// TestEmptySwarmReturnsNoPaths is concrete scenario 1: two registered peers,
// neither holds the infohash yet.
func TestEmptySwarmReturnsNoPaths(t *testing.T) {
	g := graph.New(newFixedRNG(1))
	now := time.Now()

	a, b := peerID(1), peerID(2)
	g.InitPeer(a, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)
	g.InitPeer(b, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)

	var h graph.InfoHash
	h[0] = 0x42

	f := New(g, newFixedRNG(1), 10)

	paths := f.FindPaths(a, h, 3, 5, false)
	if len(paths) != 0 {
		t.Fatalf("expected no paths for an empty swarm, got %v", paths)
	}
}

// TestDirectNeighborRequiresMinHops is concrete scenario 2: A, B, C mutually
// connected, only C holds H; with min_hops=3 the degenerate path [A, C] must
// never be returned.
func TestDirectNeighborRequiresMinHops(t *testing.T) {
	g := graph.New(newFixedRNG(2))
	now := time.Now()

	a, b, c := peerID(1), peerID(2), peerID(3)
	g.InitPeer(a, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)
	g.InitPeer(b, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)
	g.InitPeer(c, nil, graph.Endpoint{}, graph.SessionID{}, 0, now)

	connect(t, g, a, b, now)
	connect(t, g, a, c, now)
	connect(t, g, b, c, now)

	var h graph.InfoHash
	h[0] = 0x99

	if ok := g.Update(c, "started", h, 0, 0, nil, now); !ok {
		t.Fatalf("Update c: failed")
	}

	f := New(g, newFixedRNG(2), 10)

	paths := f.FindPaths(a, h, 3, 5, false)
	if len(paths) != 0 {
		t.Fatalf("A, B, C form a triangle: want no path to C with min_hops=3, got %v", paths)
	}
}

// TestFindPathsPropertyInvariants exercises the general shape a larger ring
// overlay must satisfy: every returned path is simple, starts at source,
// ends at a destination in the constrained set, has length >= min_hops, and
// each consecutive pair is a real edge.
func TestFindPathsPropertyInvariants(t *testing.T) {
	g := graph.New(newFixedRNG(3))
	now := time.Now()

	const ringSize = 8

	ring := make([]graph.PeerID, ringSize)
	for i := range ring {
		ring[i] = peerID(byte(i + 1))
		g.InitPeer(ring[i], nil, graph.Endpoint{}, graph.SessionID{}, 0, now)
	}

	for i := range ring {
		connect(t, g, ring[i], ring[(i+1)%ringSize], now)
	}

	var h graph.InfoHash
	h[0] = 0x77

	source := ring[0]

	for i := 2; i < ringSize; i++ {
		if ok := g.Update(ring[i], "started", h, 0, 0, nil, now); !ok {
			t.Fatalf("Update ring[%d]: failed", i)
		}
	}

	f := New(g, newFixedRNG(3), ringSize)

	paths := f.FindPaths(source, h, 3, ringSize, false)

	destinations := make(map[graph.PeerID]struct{})
	for _, id := range g.Swarm(h) {
		if id != source {
			destinations[id] = struct{}{}
		}
	}

	for _, path := range paths {
		if path[0] != source {
			t.Fatalf("path %v does not start at source", path)
		}

		if _, ok := destinations[path[len(path)-1]]; !ok {
			t.Fatalf("path %v does not end at a destination in the swarm", path)
		}

		if len(path) < 3 {
			t.Fatalf("path %v shorter than min_hops", path)
		}

		seen := make(map[graph.PeerID]struct{}, len(path))
		for _, id := range path {
			if _, dup := seen[id]; dup {
				t.Fatalf("path %v repeats vertex %x", path, id)
			}

			seen[id] = struct{}{}
		}

		for i := 0; i+1 < len(path); i++ {
			neighbors := g.NeighborsOf(path[i])
			if _, ok := neighbors[path[i+1]]; !ok {
				t.Fatalf("path %v: %x -> %x is not an edge", path, path[i], path[i+1])
			}
		}
	}
}
