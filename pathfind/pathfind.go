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

// Package pathfind searches the overlay maintained by package graph for
// simple paths from a source peer to anonymous destinations in a swarm,
// subject to a minimum hop-count floor.
package pathfind

import (
	"github.com/lingyu0w0/Anomos/graph"
)

// Finder searches Graph for qualifying paths, using RNG for every
// random tie-break so tests can inject a deterministic source.
type Finder struct {
	Graph *graph.Graph
	RNG   graph.RNG

	// MaxPathLen caps the number of neighbor-expansion levels grown from the
	// destination before a candidate is abandoned (config key max_path_len).
	MaxPathLen int
}

// New returns a Finder bound to g, using rng for tie-breaks.
func New(g *graph.Graph, rng graph.RNG, maxPathLen int) *Finder {
	if maxPathLen <= 0 {
		maxPathLen = 10
	}

	return &Finder{Graph: g, RNG: rng, MaxPathLen: maxPathLen}
}

// FindPaths returns up to count simple paths source -> ... -> dest through
// the existing overlay, each of length >= minHops, for destinations in the
// set constrained by sourceIsSeed:
//   - source is seeding: destinations are the swarm's non-seeding downloaders
//   - source is leeching: destinations are the entire swarm minus source
func (f *Finder) FindPaths(source graph.PeerID, ih graph.InfoHash, minHops, count int, sourceIsSeed bool) [][]graph.PeerID {
	var destinations []graph.PeerID

	if sourceIsSeed {
		destinations = f.Graph.Downloaders(ih)
	} else {
		for _, id := range f.Graph.Swarm(ih) {
			if id != source {
				destinations = append(destinations, id)
			}
		}
	}

	if len(destinations) == 0 {
		return nil
	}

	f.RNG.Shuffle(len(destinations), func(i, j int) {
		destinations[i], destinations[j] = destinations[j], destinations[i]
	})

	sourceNeighbors := f.Graph.NeighborsOf(source)

	var paths [][]graph.PeerID

	for _, dest := range destinations {
		if len(paths) >= count {
			break
		}

		if path, ok := f.searchOne(source, dest, sourceNeighbors, minHops); ok {
			paths = append(paths, path)
		}
	}

	return paths
}

// searchOne runs the per-destination search described in component design
// §4.3: grow neighbor-expansion levels outward from dest until they meet
// source's direct neighbors, then walk backward to assemble a simple path.
func (f *Finder) searchOne(source, dest graph.PeerID, sourceNeighbors map[graph.PeerID]graph.Neighbor, minHops int) ([]graph.PeerID, bool) {
	if len(sourceNeighbors) == 0 {
		return nil, false
	}

	levels := [][]graph.PeerID{peerSet(f.Graph.NeighborsOf(dest))}

	var (
		meetingLevel int
		intersection []graph.PeerID
		found        bool
	)

	for j := 0; j < f.MaxPathLen; j++ {
		if j >= minHops-2 {
			if inter := intersectWithNeighbors(levels[j], sourceNeighbors, dest); len(inter) > 0 {
				meetingLevel, intersection, found = j, inter, true
				break
			}
		}

		next := expandLevel(f.Graph, levels[j])
		if len(next) == 0 {
			break
		}

		levels = append(levels, next)
	}

	if !found {
		return nil, false
	}

	firstHop := intersection[f.RNG.Intn(len(intersection))]

	path := []graph.PeerID{source, firstHop}
	onPath := map[graph.PeerID]struct{}{source: {}, firstHop: {}}

	tail := firstHop

	for level := meetingLevel - 1; level >= 0; level-- {
		next, ok := f.pickBackwardStep(tail, levels[level], source, dest, onPath)
		if !ok {
			return nil, false
		}

		path = append(path, next)
		onPath[next] = struct{}{}
		tail = next
	}

	path = append(path, dest)

	if len(path) < minHops {
		return nil, false
	}

	return path, true
}

// pickBackwardStep chooses, from candidates (the previous expansion level),
// a neighbor of tail not already on the path and not source or dest.
func (f *Finder) pickBackwardStep(tail graph.PeerID, candidates []graph.PeerID, source, dest graph.PeerID, onPath map[graph.PeerID]struct{}) (graph.PeerID, bool) {
	tailNeighbors := f.Graph.NeighborsOf(tail)

	var choices []graph.PeerID

	for _, c := range candidates {
		if c == source || c == dest {
			continue
		}

		if _, used := onPath[c]; used {
			continue
		}

		if _, isNeighbor := tailNeighbors[c]; isNeighbor {
			choices = append(choices, c)
		}
	}

	if len(choices) == 0 {
		var zero graph.PeerID
		return zero, false
	}

	return choices[f.RNG.Intn(len(choices))], true
}

func peerSet(neighbors map[graph.PeerID]graph.Neighbor) []graph.PeerID {
	out := make([]graph.PeerID, 0, len(neighbors))
	for id := range neighbors {
		out = append(out, id)
	}

	return out
}

// expandLevel computes L_{i+1} = union of neighbors(v) for v in level.
func expandLevel(g *graph.Graph, level []graph.PeerID) []graph.PeerID {
	seen := make(map[graph.PeerID]struct{})

	var out []graph.PeerID

	for _, v := range level {
		for id := range g.NeighborsOf(v) {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}

	return out
}

// intersectWithNeighbors returns the members of level that are also direct
// neighbors of source, with dest removed from the result.
func intersectWithNeighbors(level []graph.PeerID, sourceNeighbors map[graph.PeerID]graph.Neighbor, dest graph.PeerID) []graph.PeerID {
	var out []graph.PeerID

	for _, v := range level {
		if v == dest {
			continue
		}

		if _, ok := sourceNeighbors[v]; ok {
			out = append(out, v)
		}
	}

	return out
}
