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
	"strings"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/config"
)

func TestMetricsExposesNormalGaugesWithoutToken(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MetricsBearerToken = "secret" })

	var ctx fasthttp.RequestCtx
	h.Metrics(&ctx)

	body := string(ctx.Response.Body())

	if !strings.Contains(body, "anomos_peers") {
		t.Fatalf("expected the normal peers gauge in an unauthenticated scrape, got %q", body)
	}

	if strings.Contains(body, "anomos_onion_build_seconds") {
		t.Fatalf("admin metrics must not appear without a valid bearer token")
	}
}

func TestMetricsExposesAdminMetricsWithValidToken(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MetricsBearerToken = "secret" })

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer secret")

	h.Metrics(&ctx)

	body := string(ctx.Response.Body())
	if !strings.Contains(body, "anomos_onion_build_seconds") {
		t.Fatalf("expected admin metrics with a correct bearer token, got %q", body)
	}
}

func TestMetricsRejectsWrongToken(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.MetricsBearerToken = "secret" })

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer wrong")

	h.Metrics(&ctx)

	body := string(ctx.Response.Body())
	if strings.Contains(body, "anomos_onion_build_seconds") {
		t.Fatalf("admin metrics must not appear with an incorrect bearer token")
	}
}
