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
	"fmt"
	"net"

	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/util"
)

// ScheduleNATCheck probes a newly-announced peer's reachability in the
// background: up to nat_check dial-back attempts, each bounded by
// socket_timeout. A successful connect clears the peer's NAT flag, making it
// eligible as a rand_connect candidate and as a destination other peers'
// onions can route through. Exhausting every attempt leaves the peer
// NAT-flagged; this is an I/O failure (§7), logged but never fatal.
func (t *Tracker) ScheduleNATCheck(id graph.PeerID) {
	if t.Config.NatCheck <= 0 {
		return
	}

	peer, ok := t.Graph.Get(id)
	if !ok {
		return
	}

	addr := fmt.Sprintf("%s:%d", peer.Endpoint.IP, peer.Endpoint.Port)

	go func() {
		util.TakeSemaphore(t.natQueue)
		defer util.ReturnSemaphore(t.natQueue)

		for attempt := 0; attempt < t.Config.NatCheck; attempt++ {
			conn, err := net.DialTimeout("tcp", addr, t.Config.SocketTimeout)
			if err == nil {
				_ = conn.Close()
				t.Graph.ClearNAT(id)

				return
			}

			log.Verbose.Printf("nat check attempt %d/%d for %s failed: %v", attempt+1, t.Config.NatCheck, id, err)
		}
	}()
}
