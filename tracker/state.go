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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinzhu/copier"
	"github.com/zeebo/bencode"

	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"
)

// statePeer is the persisted shape of one peer's membership in one swarm.
type statePeer struct {
	IP   string `bencode:"ip"`
	Port uint16 `bencode:"port"`
	Left uint64 `bencode:"left"`
}

// stateFile is the bencoded document written atomically every
// save_dfile_interval, matching §6's persisted-state shape.
type stateFile struct {
	Peers           map[string]map[string]statePeer `bencode:"peers"`
	Completed       map[string]int64                `bencode:"completed"`
	Allowed         []string                         `bencode:"allowed"`
	AllowedDirFiles []string                         `bencode:"allowed_dir_files"`
}

// peerSnapshot is a plain-data copy of the exported fields of a SimPeer,
// deep-copied with jinzhu/copier so the encoder never runs against state
// still reachable from a live Graph.
type peerSnapshot struct {
	ID        graph.PeerID
	Endpoint  graph.Endpoint
	SessionID graph.SessionID
}

// SaveState takes a consistent snapshot of the graph and writes it to path,
// replacing any existing file atomically (write to a temp file, then
// rename) so a crash mid-write never leaves a torn file for a concurrent
// load to trip over.
func (t *Tracker) SaveState(path string) error {
	raw := t.Graph.Snapshot()

	snapshots := make([]peerSnapshot, 0, len(raw))
	memberships := make(map[graph.PeerID]map[graph.InfoHash]graph.Membership, len(raw))

	var copyErr error

	t.Graph.WithReadLock(func(lookup func(graph.PeerID) (*graph.SimPeer, bool)) {
		for id := range raw {
			p, ok := lookup(id)
			if !ok {
				continue
			}

			var snap peerSnapshot
			if err := copier.Copy(&snap, p); err != nil {
				copyErr = fmt.Errorf("state: snapshot peer %s: %w", id, err)
				return
			}

			snapshots = append(snapshots, snap)
			memberships[id] = p.Memberships()
		}
	})

	if copyErr != nil {
		return copyErr
	}

	sf := stateFile{
		Peers:     make(map[string]map[string]statePeer),
		Completed: make(map[string]int64),
	}

	for _, snap := range snapshots {
		for ih, m := range memberships[snap.ID] {
			ihHex := hex.EncodeToString(ih[:])

			if sf.Peers[ihHex] == nil {
				sf.Peers[ihHex] = make(map[string]statePeer)
			}

			sf.Peers[ihHex][snap.ID.String()] = statePeer{
				IP:   snap.Endpoint.IP,
				Port: snap.Endpoint.Port,
				Left: m.Left,
			}
		}
	}

	for ih, count := range t.CompletedSnapshot() {
		sf.Completed[hex.EncodeToString(ih[:])] = count
	}

	if t.Allowed != nil {
		t.Allowed.mu.RLock()
		for ih, info := range t.Allowed.torrents {
			ihHex := hex.EncodeToString(ih[:])
			sf.Allowed = append(sf.Allowed, ihHex)

			if !info.Dead {
				sf.AllowedDirFiles = append(sf.AllowedDirFiles, info.Name)
			}
		}
		t.Allowed.mu.RUnlock()
	}

	encoded, err := bencode.EncodeBytes(sf)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".anomos-state-*")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("state: write: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: close: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: rename: %w", err)
	}

	return nil
}

// LoadState reads a previously-saved state file, used only to recover the
// persisted "completed" snatch counters across restarts — the live graph
// itself is never reconstructed from disk, since peers re-announce shortly
// after the tracker restarts. A corrupt file is not fatal: it is logged and
// treated as empty state.
func (t *Tracker) LoadState(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warning.Printf("state: could not read %s: %v", path, err)
		}

		return
	}

	var sf stateFile

	if err := bencode.DecodeBytes(raw, &sf); err != nil {
		log.Warning.Printf("state: %s is corrupt, starting from empty state: %v", path, err)
		return
	}

	t.completedMu.Lock()
	defer t.completedMu.Unlock()

	for ihHex, count := range sf.Completed {
		decoded, err := hex.DecodeString(ihHex)
		if err != nil || len(decoded) != 20 {
			continue
		}

		var ih graph.InfoHash

		copy(ih[:], decoded)
		t.completed[ih] = count
	}
}
