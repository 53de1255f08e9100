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
	"crypto/sha1" //nolint:gosec // infohash is defined as SHA-1 by the BitTorrent metainfo format
	"os"
	"path/filepath"
	"sync"

	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"

	"github.com/zeebo/bencode"
)

// metainfo mirrors only the fields the allow-list cares about; Info is kept
// as raw bencode so its hash is computed over the exact encoded bytes, as
// the infohash is defined.
type metainfo struct {
	Info bencode.RawMessage `bencode:"info"`
}

type metainfoName struct {
	Name string `bencode:"name"`
}

// TorrentInfo is one allow-listed swarm.
type TorrentInfo struct {
	InfoHash graph.InfoHash
	Name     string
	Raw      []byte // the original .torrent file bytes, served by /file
	Dead     bool   // missing from disk on last rescan; kept per keep_dead
}

// AllowList restricts which infohashes the tracker will serve to those found
// under a configured directory of .torrent files, rescanned periodically.
// An empty dir means no restriction is in force.
type AllowList struct {
	mu       sync.RWMutex
	dir      string
	keepDead bool
	torrents map[graph.InfoHash]*TorrentInfo
}

// NewAllowList returns an allow-list rooted at dir. keepDead controls
// whether a torrent removed from disk is marked dead (kept, but excluded
// from /file and new announces) or deleted outright on the next rescan.
func NewAllowList(dir string, keepDead bool) *AllowList {
	return &AllowList{dir: dir, keepDead: keepDead, torrents: make(map[graph.InfoHash]*TorrentInfo)}
}

// Enforced reports whether an allow-list is in force at all.
func (a *AllowList) Enforced() bool {
	return a.dir != ""
}

// Authorized reports whether ih may be announced/scraped against. When no
// allow-list is configured, everything is authorized.
func (a *AllowList) Authorized(ih graph.InfoHash) bool {
	if !a.Enforced() {
		return true
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	t, ok := a.torrents[ih]

	return ok && !t.Dead
}

// Range calls fn once for every currently-live (non-dead) allow-listed
// infohash.
func (a *AllowList) Range(fn func(graph.InfoHash)) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for ih, t := range a.torrents {
		if !t.Dead {
			fn(ih)
		}
	}
}

// Get returns the allow-listed torrent for ih.
func (a *AllowList) Get(ih graph.InfoHash) (*TorrentInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	t, ok := a.torrents[ih]

	return t, ok
}

// Rescan walks dir for *.torrent files, parses each one's info dict,
// computes its infohash, and refreshes the allow-list. A torrent present in
// the map but absent from this rescan is marked dead (or removed, if
// keepDead is false) rather than dropped mid-scan.
func (a *AllowList) Rescan() error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return err
	}

	seen := make(map[graph.InfoHash]struct{}, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".torrent" {
			continue
		}

		path := filepath.Join(a.dir, entry.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warning.Printf("allowed_dir: skipping %s: %v", path, err)
			continue
		}

		info, ih, err := parseMetainfo(raw)
		if err != nil {
			log.Warning.Printf("allowed_dir: skipping malformed %s: %v", path, err)
			continue
		}

		seen[ih] = struct{}{}

		a.mu.Lock()
		a.torrents[ih] = &TorrentInfo{InfoHash: ih, Name: info.Name, Raw: raw, Dead: false}
		a.mu.Unlock()
	}

	a.mu.Lock()
	for ih, t := range a.torrents {
		if _, ok := seen[ih]; ok {
			continue
		}

		if a.keepDead {
			t.Dead = true
		} else {
			delete(a.torrents, ih)
		}
	}
	a.mu.Unlock()

	return nil
}

func parseMetainfo(raw []byte) (metainfoName, graph.InfoHash, error) {
	var (
		mi   metainfo
		name metainfoName
		ih   graph.InfoHash
	)

	if err := bencode.DecodeBytes(raw, &mi); err != nil {
		return name, ih, err
	}

	if err := bencode.DecodeBytes(mi.Info, &name); err != nil {
		return name, ih, err
	}

	sum := sha1.Sum(mi.Info) //nolint:gosec

	return name, graph.InfoHash(sum), nil
}
