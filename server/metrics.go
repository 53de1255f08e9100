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

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/collectors"
)

const bearerPrefix = "Bearer "

const metricsContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	startTime        = time.Now()
	normalRegisterer = prometheus.NewRegistry()
	normalCollector  = collectors.NewNormalCollector()
)

func init() {
	normalRegisterer.MustRegister(normalCollector)
	prometheus.MustRegister(collectors.NewAdminCollector())
}

// Metrics serves GET /metrics: normal (size/throughput) gauges to anyone,
// plus the default process/go collectors and the admin counters when the
// request carries the configured bearer token.
func (h *Handler) Metrics(ctx *fasthttp.RequestCtx) {
	buf := h.bufferPool.Take()
	defer h.bufferPool.Give(buf)

	peerCount, edgeCount, swarmCount := h.Tracker.Graph.Stats()

	collectors.UpdateUptime(time.Since(startTime).Seconds())
	collectors.UpdatePeers(peerCount)
	collectors.UpdateEdges(edgeCount)
	collectors.UpdateSwarms(swarmCount)

	mfs, _ := normalRegisterer.Gather()
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			break
		}
	}

	auth := string(ctx.Request.Header.Peek("Authorization"))
	if h.Tracker.Config.MetricsBearerToken != "" &&
		len(auth) > len(bearerPrefix) && auth[:len(bearerPrefix)] == bearerPrefix &&
		auth[len(bearerPrefix):] == h.Tracker.Config.MetricsBearerToken {
		adminMfs, _ := prometheus.DefaultGatherer.Gather()
		for _, mf := range adminMfs {
			if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
				break
			}
		}
	}

	ctx.SetContentType(metricsContentType)
	ctx.SetBody(buf.Bytes())
}
