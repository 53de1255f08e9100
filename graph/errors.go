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

import "errors"

// ErrNoAvailableNid is returned by Connect when the two peers' available-NID
// sets do not intersect. The failure is local to the attempted edge; other
// edges are unaffected.
var ErrNoAvailableNid = errors.New("graph: no available nid for this edge")

// ErrSelfConnect is returned when a or b name the same peer.
var ErrSelfConnect = errors.New("graph: a peer cannot be its own neighbor")

// ErrPeerNotFound is returned when an operation names a peer ID absent from
// the graph.
var ErrPeerNotFound = errors.New("graph: peer not found")
