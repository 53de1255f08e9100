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

// Package collectors exposes tracker-internal counters as prometheus
// metrics, split the way the external interface is split: a NormalCollector
// safe to expose to anyone scraping /metrics, and an AdminCollector gated
// behind the metrics_bearer_token.
package collectors

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NormalCollector reports point-in-time tracker size and request volume.
type NormalCollector struct {
	uptimeMetric   *prometheus.Desc
	peersMetric    *prometheus.Desc
	edgesMetric    *prometheus.Desc
	swarmsMetric   *prometheus.Desc
	requestsMetric *prometheus.Desc
}

var (
	uptime       float64
	peers        int
	edges        int
	swarms       int
	requestCount uint64
)

func NewNormalCollector() *NormalCollector {
	return &NormalCollector{
		uptimeMetric:   prometheus.NewDesc("anomos_uptime_seconds", "Tracker uptime in seconds", nil, nil),
		peersMetric:    prometheus.NewDesc("anomos_peers", "Number of peers currently registered in the graph", nil, nil),
		edgesMetric:    prometheus.NewDesc("anomos_graph_edges", "Number of overlay edges currently established", nil, nil),
		swarmsMetric:   prometheus.NewDesc("anomos_swarms", "Number of distinct swarms currently tracked", nil, nil),
		requestsMetric: prometheus.NewDesc("anomos_requests_total", "Number of HTTP requests served", nil, nil),
	}
}

func (c *NormalCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptimeMetric
	ch <- c.peersMetric
	ch <- c.edgesMetric
	ch <- c.swarmsMetric
	ch <- c.requestsMetric
}

func (c *NormalCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.uptimeMetric, prometheus.CounterValue, uptime)
	ch <- prometheus.MustNewConstMetric(c.peersMetric, prometheus.GaugeValue, float64(peers))
	ch <- prometheus.MustNewConstMetric(c.edgesMetric, prometheus.GaugeValue, float64(edges))
	ch <- prometheus.MustNewConstMetric(c.swarmsMetric, prometheus.GaugeValue, float64(swarms))
	ch <- prometheus.MustNewConstMetric(c.requestsMetric, prometheus.CounterValue, float64(requestCount))
}

func UpdateUptime(seconds float64) { uptime = seconds }
func UpdatePeers(count int)        { peers = count }
func UpdateEdges(count int)        { edges = count }
func UpdateSwarms(count int)       { swarms = count }
func UpdateRequests(count uint64)  { requestCount = count }
