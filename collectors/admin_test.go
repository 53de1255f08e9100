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

package collectors

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestIncrementNidExhaustion(t *testing.T) {
	before := nidExhaustionCount

	IncrementNidExhaustion()

	if nidExhaustionCount != before+1 {
		t.Fatalf("expected nidExhaustionCount to increase by 1, got %d -> %d", before, nidExhaustionCount)
	}
}

func TestIncrementPathSearchFailure(t *testing.T) {
	before := pathSearchFailureCount

	IncrementPathSearchFailure()

	if pathSearchFailureCount != before+1 {
		t.Fatalf("expected pathSearchFailureCount to increase by 1, got %d -> %d", before, pathSearchFailureCount)
	}
}

func TestIncrementErroredRequests(t *testing.T) {
	before := erroredRequests

	IncrementErroredRequests()

	if erroredRequests != before+1 {
		t.Fatalf("expected erroredRequests to increase by 1, got %d -> %d", before, erroredRequests)
	}
}

func TestObserveOnionBuildTime(t *testing.T) {
	var m dto.Metric

	if err := onionBuildSeconds.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}

	before := m.GetHistogram().GetSampleCount()

	ObserveOnionBuildTime(0.01)

	m = dto.Metric{}
	if err := onionBuildSeconds.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if got := m.GetHistogram().GetSampleCount(); got != before+1 {
		t.Fatalf("expected sample count to increase by 1, got %d -> %d", before, got)
	}
}
