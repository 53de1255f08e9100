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
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/config"
)

func TestInfopageHiddenReturns404(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.ShowInfopage = false })

	var ctx fasthttp.RequestCtx
	h.Infopage(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 when show_infopage is false, got %d", ctx.Response.StatusCode())
	}
}

func TestInfopageRedirectsWhenConfigured(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.InfopageRedirect = "https://example.invalid/" })

	var ctx fasthttp.RequestCtx
	h.Infopage(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusFound {
		t.Fatalf("expected a 302 redirect, got %d", ctx.Response.StatusCode())
	}

	if loc := string(ctx.Response.Header.Peek("Location")); loc != "https://example.invalid/" {
		t.Fatalf("expected Location header to be set to the configured redirect, got %q", loc)
	}
}

func TestInfopageServesStatusWhenShown(t *testing.T) {
	h := newTestHandler(t, func(c *config.Config) { c.ShowInfopage = true })

	var ctx fasthttp.RequestCtx
	h.Infopage(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("expected 200, got %d", ctx.Response.StatusCode())
	}
}
