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
	"github.com/prometheus/client_golang/prometheus"
)

// AdminCollector reports counters that reveal operational health an
// operator cares about but a random scraper should not see for free: how
// often NID space is exhausted on an edge attempt, how often the path
// finder comes up empty, and request failures by kind.
type AdminCollector struct {
	nidExhaustionMetric     *prometheus.Desc
	pathSearchFailureMetric *prometheus.Desc
	erroredRequestsMetric   *prometheus.Desc

	onionBuildTime prometheus.Histogram
}

var (
	nidExhaustionCount     int
	pathSearchFailureCount int
	erroredRequests        int
)

var onionBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "anomos_onion_build_seconds",
	Help:    "Histogram of time taken to build one layered onion",
	Buckets: prometheus.DefBuckets,
})

func NewAdminCollector() *AdminCollector {
	return &AdminCollector{
		nidExhaustionMetric: prometheus.NewDesc("anomos_nid_exhaustion_total",
			"Number of Connect attempts that failed with no available NID", nil, nil),
		pathSearchFailureMetric: prometheus.NewDesc("anomos_path_search_failures_total",
			"Number of destinations abandoned by the path finder", nil, nil),
		erroredRequestsMetric: prometheus.NewDesc("anomos_requests_failed_total",
			"Number of requests that returned a failure reason", nil, nil),
		onionBuildTime: onionBuildSeconds,
	}
}

func (c *AdminCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nidExhaustionMetric
	ch <- c.pathSearchFailureMetric
	ch <- c.erroredRequestsMetric
	c.onionBuildTime.Describe(ch)
}

func (c *AdminCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.nidExhaustionMetric, prometheus.CounterValue, float64(nidExhaustionCount))
	ch <- prometheus.MustNewConstMetric(c.pathSearchFailureMetric, prometheus.CounterValue, float64(pathSearchFailureCount))
	ch <- prometheus.MustNewConstMetric(c.erroredRequestsMetric, prometheus.CounterValue, float64(erroredRequests))
	c.onionBuildTime.Collect(ch)
}

func IncrementNidExhaustion()     { nidExhaustionCount++ }
func IncrementPathSearchFailure() { pathSearchFailureCount++ }
func IncrementErroredRequests()   { erroredRequests++ }

func ObserveOnionBuildTime(seconds float64) {
	onionBuildSeconds.Observe(seconds)
}
