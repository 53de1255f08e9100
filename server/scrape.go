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
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/config"
	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/util"
)

var errScrapeInfoHashLength = errors.New("info_hash must be 20 bytes")

// Scrape implements GET /scrape, honoring the scrape_allowed policy: none
// serves nothing, specific requires one or more info_hash query values, full
// additionally allows an info_hash-less request that dumps every swarm the
// tracker knows about.
func (h *Handler) Scrape(ctx *fasthttp.RequestCtx) {
	buf := h.bufferPool.Take()
	defer h.bufferPool.Give(buf)

	mode := h.Tracker.Config.ScrapeAllowed

	if mode == config.ScrapeNone {
		h.writeAnnounceError(ctx, buf, authorizationError("scrape disabled"))
		return
	}

	hashes, err := parseScrapeHashes(ctx.QueryArgs())
	if err != nil {
		h.writeAnnounceError(ctx, buf, validationError(err.Error()))
		return
	}

	if len(hashes) == 0 {
		if mode != config.ScrapeFull {
			h.writeAnnounceError(ctx, buf, authorizationError("full scrape not permitted"))
			return
		}

		hashes = h.knownInfoHashes()
	}

	util.BencodeScrapeHeader(buf)

	for _, ih := range hashes {
		if h.Tracker.Allowed.Enforced() && !h.Tracker.Allowed.Authorized(ih) {
			continue
		}

		complete, incomplete, downloaded := h.scrapeCounts(ih)
		util.BencodeScrapeTorrent(buf, ih, complete, downloaded, incomplete)
	}

	util.BencodeScrapeFooter(buf, int(h.Tracker.Config.ReannounceInterval.Seconds()))

	ctx.SetContentType("text/plain; charset=iso-8859-1")
	ctx.SetBody(buf.Bytes())
}

// scrapeCounts computes one swarm's counters directly from the graph:
// complete (seeders), incomplete (downloaders), and the persisted
// all-time completed (snatch) count.
func (h *Handler) scrapeCounts(ih graph.InfoHash) (complete, incomplete, downloaded int64) {
	complete = int64(len(h.Tracker.Graph.Seeders(ih)))
	incomplete = int64(len(h.Tracker.Graph.Downloaders(ih)))
	downloaded = h.Tracker.CompletedSnapshot()[ih]

	return complete, incomplete, downloaded
}

// knownInfoHashes names every swarm a full scrape should report on. The
// graph itself is organized by peer, not by swarm, so when an allow-list is
// configured it is the authoritative source of swarm names; otherwise the
// persisted "completed" counters (which accumulate for the life of the
// process, independent of current swarm membership) serve the same purpose.
func (h *Handler) knownInfoHashes() []graph.InfoHash {
	seen := make(map[graph.InfoHash]struct{})

	if h.Tracker.Allowed.Enforced() {
		h.Tracker.Allowed.Range(func(ih graph.InfoHash) {
			seen[ih] = struct{}{}
		})
	} else {
		for ih := range h.Tracker.CompletedSnapshot() {
			seen[ih] = struct{}{}
		}
	}

	out := make([]graph.InfoHash, 0, len(seen))
	for ih := range seen {
		out = append(out, ih)
	}

	return out
}

func parseScrapeHashes(args *fasthttp.Args) ([]graph.InfoHash, error) {
	var hashes []graph.InfoHash

	var parseErr error

	args.VisitAll(func(key, value []byte) {
		if string(key) != "info_hash" || parseErr != nil {
			return
		}

		if len(value) != 20 {
			parseErr = errScrapeInfoHashLength
			return
		}

		var ih graph.InfoHash

		copy(ih[:], value)
		hashes = append(hashes, ih)
	})

	return hashes, parseErr
}
