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
	"math/rand"
	"sync"
	"time"
)

// RNG is the single graph-wide source of randomness for tie-breaks (NID
// selection, rand_connect candidate order). Tests inject a deterministic
// implementation instead of the process default.
type RNG interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand adapts math/rand.Rand (not itself goroutine-safe) behind a
// mutex, mirroring the pooled-source idiom used elsewhere in this codebase
// for concurrent pseudo-random draws.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRNG returns the process-default graph RNG, seeded from the clock.
func NewRNG() RNG {
	return &lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))} //nolint:gosec
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.src.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.src.Shuffle(n, swap)
}
