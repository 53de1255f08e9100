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
	"os"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/graph"
)

// File serves GET /file?info_hash=..., returning the original .torrent
// bytes for an allow-listed swarm. Gated entirely by allow_get: when it is
// false the endpoint does not exist, regardless of whether an allow-list is
// configured.
func (h *Handler) File(ctx *fasthttp.RequestCtx) {
	if !h.Tracker.Config.AllowGet {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	raw := ctx.QueryArgs().Peek("info_hash")
	if len(raw) != 20 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}

	var ih graph.InfoHash

	copy(ih[:], raw)

	info, ok := h.Tracker.Allowed.Get(ih)
	if !ok || info.Dead {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	ctx.SetContentType("application/x-bittorrent")
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+info.Name+`.torrent"`)
	ctx.SetBody(info.Raw)
}

// Favicon serves GET /favicon.ico from the configured path, or 404 if unset.
func (h *Handler) Favicon(ctx *fasthttp.RequestCtx) {
	path := h.Tracker.Config.Favicon
	if path == "" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	ctx.SetContentType("image/x-icon")
	ctx.SetBody(data)
}
