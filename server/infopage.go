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
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

const infopageTemplate = `<!DOCTYPE html>
<html>
<head><title>Anomos Tracker</title></head>
<body>
<h1>Anomos Tracker</h1>
<ul>
<li>peers: %d</li>
<li>uptime: %s</li>
</ul>
</body>
</html>
`

// Infopage serves GET /: a minimal human-readable status page, or a
// redirect when infopage_redirect is set, or a 404 when show_infopage is
// false.
func (h *Handler) Infopage(ctx *fasthttp.RequestCtx) {
	cfg := h.Tracker.Config

	if cfg.InfopageRedirect != "" {
		ctx.Redirect(cfg.InfopageRedirect, fasthttp.StatusFound)
		return
	}

	if !cfg.ShowInfopage {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	ctx.SetContentType("text/html; charset=utf-8")
	fmt.Fprintf(ctx, infopageTemplate, h.Tracker.Graph.Len(), time.Since(startTime).Round(time.Second))
}
