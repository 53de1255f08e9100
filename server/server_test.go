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
)

func TestServeDispatchesUnknownPathsToNotFound(t *testing.T) {
	h := newTestHandler(t, nil)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/nonexistent")

	h.serve(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 for an unrouted path, got %d", ctx.Response.StatusCode())
	}
}

func TestServeDispatchesRoot(t *testing.T) {
	h := newTestHandler(t, nil)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/")

	h.serve(&ctx)

	if ctx.Response.StatusCode() == fasthttp.StatusNotFound {
		t.Fatalf("expected / to be routed to the infopage, got 404")
	}
}

// TestServeRecoversFromPanic confirms the top-level recover() turns a panic
// in one handler into a 500 response rather than taking the listener down.
func TestServeRecoversFromPanic(t *testing.T) {
	h := newTestHandler(t, nil)
	h.Tracker = nil // File immediately dereferences h.Tracker.Config, a nil pointer here

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/file")

	h.serve(&ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Fatalf("expected serve() to recover a handler panic into a 500, got %d", ctx.Response.StatusCode())
	}
}
