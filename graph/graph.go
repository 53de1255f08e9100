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

// Package graph maintains the tracker's random overlay: a mapping from peer
// ID to SimPeer plus the edges implicit in each SimPeer's neighbor table.
package graph

import (
	"sync"
	"time"
)

// Graph is the tracker's view of the overlay. Connect, Disconnect and Update
// each hold the write lock for the whole of their change, so no half-applied
// mutation is ever observable. InitPeer and RandConnect are not single
// critical sections: RandConnect collects its candidates under one lock
// window and then adds each edge through its own Connect call, so other
// mutations can run between the edges it adds.
type Graph struct {
	mu    sync.RWMutex
	peers map[PeerID]*SimPeer
	rng   RNG
}

// New returns an empty graph using rng for all tie-breaks. Pass a
// deterministic RNG in tests.
func New(rng RNG) *Graph {
	if rng == nil {
		rng = NewRNG()
	}

	return &Graph{peers: make(map[PeerID]*SimPeer), rng: rng}
}

// Get returns the SimPeer for id, if present. The returned pointer must only
// be mutated by the graph itself; callers read it under their own care once
// the graph lock is released (fields are stable unless Update/connect runs).
func (g *Graph) Get(id PeerID) (*SimPeer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.peers[id]

	return p, ok
}

// Len returns the number of peers currently in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.peers)
}

// Stats returns the peer count, the number of undirected edges (each counted
// once), and the number of distinct swarms with at least one member, all
// computed from a single consistent read-locked pass -- for the /metrics
// size gauges, where three separate locked calls could observe three
// different moments.
func (g *Graph) Stats() (peerCount, edgeCount, swarmCount int) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	swarmSeen := make(map[InfoHash]struct{})
	directedEdges := 0

	for _, p := range g.peers {
		directedEdges += len(p.neighbors)

		for ih := range p.infohashes {
			swarmSeen[ih] = struct{}{}
		}
	}

	return len(g.peers), directedEdges / 2, len(swarmSeen)
}

// InitPeer creates a SimPeer for id if one does not already exist, then
// attempts to connect it to up to numNeighbors existing peers via
// RandConnect. Returns the (possibly pre-existing) SimPeer.
func (g *Graph) InitPeer(id PeerID, pubkey []byte, ep Endpoint, sid SessionID, numNeighbors int, now time.Time) *SimPeer {
	g.mu.Lock()

	p, exists := g.peers[id]
	if !exists {
		p = NewSimPeer(id, pubkey, ep, sid, now)
		g.peers[id] = p
	}

	g.mu.Unlock()

	if !exists {
		g.RandConnect(id, numNeighbors, now)
	}

	return p
}

// Connect chooses a NID uniformly at random from the intersection of a's and
// b's available NIDs and adds the edge symmetrically. The failure is local
// to this edge: ErrNoAvailableNid leaves both peers' existing edges intact.
func (g *Graph) Connect(a, b PeerID, now time.Time) error {
	if a == b {
		return ErrSelfConnect
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	pa, ok := g.peers[a]
	if !ok {
		return ErrPeerNotFound
	}

	pb, ok := g.peers[b]
	if !ok {
		return ErrPeerNotFound
	}

	candidates := intersectNIDs(pa.AvailableNIDs(), pb.AvailableNIDs())
	if len(candidates) == 0 {
		return ErrNoAvailableNid
	}

	nid := candidates[g.rng.Intn(len(candidates))]

	pa.addNeighbor(b, nid, pb.Endpoint, now)
	pb.addNeighbor(a, nid, pa.Endpoint, now)

	return nil
}

func intersectNIDs(a, b []byte) []byte {
	inB := make(map[byte]struct{}, len(b))
	for _, n := range b {
		inB[n] = struct{}{}
	}

	out := make([]byte, 0, min(len(a), len(b)))

	for _, n := range a {
		if _, ok := inB[n]; ok {
			out = append(out, n)
		}
	}

	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// RandConnect walks a uniformly shuffled permutation of all peer IDs,
// skipping p itself, peers already connected to p, peers in p's
// failed_neighbors, and NAT'd peers, attempting Connect(p, candidate) until
// k successful connects have occurred or the candidate list is exhausted.
// Returns the number of edges successfully added.
func (g *Graph) RandConnect(p PeerID, k int, now time.Time) int {
	if k <= 0 {
		return 0
	}

	g.mu.Lock()

	self, ok := g.peers[p]
	if !ok {
		g.mu.Unlock()
		return 0
	}

	candidates := make([]PeerID, 0, len(g.peers))

	for id, peer := range g.peers {
		if id == p || self.HasNeighbor(id) || self.HasFailed(id) || peer.NAT {
			continue
		}

		candidates = append(candidates, id)
	}

	g.mu.Unlock()

	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	made := 0

	for _, id := range candidates {
		if made >= k {
			break
		}

		if g.Connect(p, id, now) == nil {
			made++
		}
	}

	return made
}

// Disconnect removes p from every neighbor's tables, then deletes p from the
// graph. After this call no SimPeer references p in neighbors or id_map.
func (g *Graph) Disconnect(p PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	self, ok := g.peers[p]
	if !ok {
		return
	}

	for peerID := range self.neighbors {
		if nbr, ok := g.peers[peerID]; ok {
			nbr.removeNeighbor(p)
		}
	}

	delete(g.peers, p)
}

// Update applies an announce to peer id's SimPeer under the write lock. ok is
// false if id is absent from the graph or the inputs are malformed.
func (g *Graph) Update(id PeerID, event string, ih InfoHash, downloaded, left uint64, failedNIDs []byte, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.peers[id]
	if !ok {
		return false
	}

	return p.Update(event, ih, downloaded, left, failedNIDs, now)
}

// IsSeeding reports whether id is seeding ih, under the read lock.
func (g *Graph) IsSeeding(id PeerID, ih InfoHash) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.peers[id]

	return ok && p.IsSeeding(ih)
}

// NeedsNeighborsOf returns id's current needs_neighbors counter under the
// read lock, or 0 if id is absent.
func (g *Graph) NeedsNeighborsOf(id PeerID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if p, ok := g.peers[id]; ok {
		return p.NeedsNeighbors
	}

	return 0
}

// ConsumeNeedsNeighbors decrements id's needs_neighbors counter by made
// (floored at zero) under the write lock, so an announce handler's
// RandConnect follow-up never races with a concurrent Update's
// NeedsNeighbors++ for the same peer.
func (g *Graph) ConsumeNeedsNeighbors(id PeerID, made int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.peers[id]
	if !ok {
		return
	}

	p.NeedsNeighbors -= made
	if p.NeedsNeighbors < 0 {
		p.NeedsNeighbors = 0
	}
}

// ClearNAT marks p as NAT-reachable (a successful NAT-check probe), making it
// eligible as a RandConnect candidate.
func (g *Graph) ClearNAT(p PeerID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if peer, ok := g.peers[p]; ok {
		peer.NAT = false
	}
}

// Swarm returns the peer IDs currently holding membership in ih.
func (g *Graph) Swarm(ih InfoHash) []PeerID {
	return g.filterSwarm(ih, func(*SimPeer) bool { return true })
}

// Seeders returns the peer IDs seeding ih (left == 0).
func (g *Graph) Seeders(ih InfoHash) []PeerID {
	return g.filterSwarm(ih, func(p *SimPeer) bool { return p.IsSeeding(ih) })
}

// Downloaders returns the peer IDs in ih's swarm that are not seeding.
func (g *Graph) Downloaders(ih InfoHash) []PeerID {
	return g.filterSwarm(ih, func(p *SimPeer) bool { return !p.IsSeeding(ih) })
}

func (g *Graph) filterSwarm(ih InfoHash, keep func(*SimPeer) bool) []PeerID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []PeerID

	for id, p := range g.peers {
		if p.InSwarm(ih) && keep(p) {
			out = append(out, id)
		}
	}

	return out
}

// NeighborsOf returns a snapshot of id's neighbor table, or nil if id is
// absent from the graph.
func (g *Graph) NeighborsOf(id PeerID) map[PeerID]Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.peers[id]
	if !ok {
		return nil
	}

	return p.Neighbors()
}

// WithReadLock runs fn with the graph's read lock held, for call sites (path
// finder, onion builder) that must observe a consistent view across several
// lookups. fn must not call back into Graph methods that take the lock.
func (g *Graph) WithReadLock(fn func(lookup func(PeerID) (*SimPeer, bool))) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	fn(func(id PeerID) (*SimPeer, bool) {
		p, ok := g.peers[id]
		return p, ok
	})
}

// Snapshot returns a shallow copy of the peer-ID set, for callers (the
// state-file writer) that need a consistent point-in-time list without
// holding the lock for the full serialization.
func (g *Graph) Snapshot() map[PeerID]*SimPeer {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[PeerID]*SimPeer, len(g.peers))
	for k, v := range g.peers {
		out[k] = v
	}

	return out
}
