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

package graph

import (
	"fmt"
	"time"
)

const (
	// MaxNID is the highest neighbor ID a peer may hand out. The 256th byte
	// value (255) is reserved as the onion relay/destination tag.
	MaxNID = 254
)

// PeerID is the client-chosen, 20-byte identifier used throughout the swarm.
type PeerID [20]byte

// InfoHash names a swarm.
type InfoHash [20]byte

// SessionID is issued once at registration and embedded in every onion layer
// built for that peer.
type SessionID [8]byte

func (p PeerID) String() string {
	return fmt.Sprintf("%x", p[:])
}

// Endpoint is a reachable network address for a peer.
type Endpoint struct {
	IP   string
	Port uint16
}

// Neighbor is one entry of a SimPeer's neighbor table: the edge's NID plus
// the last-known endpoint of the peer on the other end.
type Neighbor struct {
	NID      byte
	Endpoint Endpoint
}

// Membership tracks a peer's participation in one swarm.
type Membership struct {
	Downloaded uint64
	Left       uint64
}

// Seeding reports whether this membership record represents a seed.
func (m Membership) Seeding() bool {
	return m.Left == 0
}

// SimPeer is the tracker's per-peer record. It is never accessed concurrently
// with itself: all mutation happens under the owning Graph's write lock.
type SimPeer struct {
	ID        PeerID
	PubKey    []byte // opaque DER, not parsed by the tracker
	Endpoint  Endpoint
	SessionID SessionID

	neighbors       map[PeerID]Neighbor
	idMap           map[byte]PeerID
	failedNeighbors map[PeerID]struct{}
	infohashes      map[InfoHash]Membership

	NeedsNeighbors int
	LastSeen       time.Time
	LastModified   time.Time
	NAT            bool
}

// NewSimPeer constructs a peer record with empty tables. NAT defaults to true
// until a NAT-check probe clears it.
func NewSimPeer(id PeerID, pubkey []byte, ep Endpoint, sid SessionID, now time.Time) *SimPeer {
	return &SimPeer{
		ID:              id,
		PubKey:          pubkey,
		Endpoint:        ep,
		SessionID:       sid,
		neighbors:       make(map[PeerID]Neighbor),
		idMap:           make(map[byte]PeerID),
		failedNeighbors: make(map[PeerID]struct{}),
		infohashes:      make(map[InfoHash]Membership),
		LastSeen:        now,
		LastModified:    now,
		NAT:             true,
	}
}

// AvailableNIDs returns {0..254} minus the NIDs currently bound in idMap.
func (p *SimPeer) AvailableNIDs() []byte {
	avail := make([]byte, 0, MaxNID+1)

	for n := 0; n <= MaxNID; n++ {
		if _, used := p.idMap[byte(n)]; !used {
			avail = append(avail, byte(n))
		}
	}

	return avail
}

// NIDOf looks up the NID of the edge to peer, returning (0, false) if absent.
func (p *SimPeer) NIDOf(peer PeerID) (byte, bool) {
	nbr, ok := p.neighbors[peer]
	return nbr.NID, ok
}

// Neighbors returns a copy of the live neighbor table, safe to range over
// after the caller releases the graph lock.
func (p *SimPeer) Neighbors() map[PeerID]Neighbor {
	out := make(map[PeerID]Neighbor, len(p.neighbors))
	for k, v := range p.neighbors {
		out[k] = v
	}

	return out
}

// HasNeighbor reports whether peer is currently a direct neighbor.
func (p *SimPeer) HasNeighbor(peer PeerID) bool {
	_, ok := p.neighbors[peer]
	return ok
}

// HasFailed reports whether peer is recorded in failedNeighbors.
func (p *SimPeer) HasFailed(peer PeerID) bool {
	_, ok := p.failedNeighbors[peer]
	return ok
}

// addNeighbor inserts the edge entry if absent, refreshing LastModified.
// Internal: callers must already hold the owning Graph's write lock and must
// have established the NID is mutually available (see Graph.Connect).
func (p *SimPeer) addNeighbor(peer PeerID, nid byte, ep Endpoint, now time.Time) {
	if _, exists := p.neighbors[peer]; !exists {
		p.neighbors[peer] = Neighbor{NID: nid, Endpoint: ep}
		p.idMap[nid] = peer
		p.LastModified = now
	}
}

// removeNeighbor removes peer from both neighbors and idMap. Missing entries
// are tolerated.
func (p *SimPeer) removeNeighbor(peer PeerID) {
	nbr, ok := p.neighbors[peer]
	if !ok {
		return
	}

	delete(p.neighbors, peer)
	delete(p.idMap, nbr.NID)
}

// Update applies an announce to this peer's state: refreshes last_seen,
// updates swarm membership (delete on "stopped", insert/refresh otherwise),
// and moves any reported-failed neighbor from neighbors into
// failedNeighbors, bumping NeedsNeighbors once per newly-failed entry.
//
// ok is false (and no mutation occurs) when inputs are malformed; the
// announce layer turns that into a Validation error.
func (p *SimPeer) Update(event string, ih InfoHash, downloaded, left uint64, failedNIDs []byte, now time.Time) bool {
	switch event {
	case "", "started", "completed", "stopped":
	default:
		return false
	}

	for _, n := range failedNIDs {
		if n > MaxNID {
			return false
		}
	}

	p.LastSeen = now

	if event == "stopped" {
		delete(p.infohashes, ih)
	} else {
		p.infohashes[ih] = Membership{Downloaded: downloaded, Left: left}
	}

	for _, n := range failedNIDs {
		peer, bound := p.idMap[n]
		if !bound {
			continue
		}

		p.removeNeighbor(peer)
		p.failedNeighbors[peer] = struct{}{}
		p.NeedsNeighbors++
	}

	return true
}

// IsSeeding reports whether this peer is a seed (left == 0) for ih.
func (p *SimPeer) IsSeeding(ih InfoHash) bool {
	m, ok := p.infohashes[ih]
	return ok && m.Seeding()
}

// InSwarm reports whether this peer currently has membership in ih.
func (p *SimPeer) InSwarm(ih InfoHash) bool {
	_, ok := p.infohashes[ih]
	return ok
}

// NumTorrents returns the number of swarms this peer currently belongs to.
func (p *SimPeer) NumTorrents() int {
	return len(p.infohashes)
}

// Memberships returns a copy of this peer's swarm membership table, for
// callers (the state-file writer) that need a consistent snapshot.
func (p *SimPeer) Memberships() map[InfoHash]Membership {
	out := make(map[InfoHash]Membership, len(p.infohashes))
	for k, v := range p.infohashes {
		out[k] = v
	}

	return out
}
