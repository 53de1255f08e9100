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
	"time"

	"github.com/lingyu0w0/Anomos/log"
)

// expireIdle removes every SimPeer whose last_seen predates the cutoff,
// cascading through Graph.Disconnect so no other peer's tables keep
// referencing it afterward.
func (t *Tracker) expireIdle() {
	cutoff := time.Now().Add(-t.Config.TimeoutDownloadersInterval)

	snapshot := t.Graph.Snapshot()

	expired := 0

	for id, peer := range snapshot {
		if peer.LastSeen.Before(cutoff) {
			t.Graph.Disconnect(id)
			expired++
		}
	}

	if expired > 0 {
		log.Info.Printf("expired %d idle peer(s)", expired)

		if t.Analytics != nil {
			t.Analytics.RecordChurn(expired)
		}
	}
}
