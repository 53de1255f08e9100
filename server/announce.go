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
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/collectors"
	"github.com/lingyu0w0/Anomos/graph"
	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/onion"
	"github.com/lingyu0w0/Anomos/util"
)

// minHopsForTrackingCode is the fixed floor the path finder applies when
// computing paths for tracking-code selection (component design §4.5).
const minHopsForTrackingCode = 3

// maxAnnounceDriftSeconds bounds the random jitter added to the reannounce
// interval handed back to clients, spreading reannounce load instead of
// letting every client wake on the same tick.
const maxAnnounceDriftSeconds = 300

// announceRequest is the decoded, validated shape of a GET /announce.
type announceRequest struct {
	peerID     graph.PeerID
	infoHash   graph.InfoHash
	ip         string
	port       uint16
	left       uint64
	downloaded uint64
	event      string
	numwant    int
	failedNIDs []byte
	wantScrape bool
}

// Announce implements the core tracker endpoint: validate, update the peer's
// SimPeer, sample destinations, build tracking codes, and reply.
func (h *Handler) Announce(ctx *fasthttp.RequestCtx) {
	buf := h.bufferPool.Take()
	defer h.bufferPool.Give(buf)

	req, pubkey, err := h.parseAnnounce(ctx)
	if err != nil {
		h.writeAnnounceError(ctx, buf, err)
		return
	}

	if h.Tracker.Allowed.Enforced() && !h.Tracker.Allowed.Authorized(req.infoHash) {
		h.writeAnnounceError(ctx, buf, authorizationError("infohash not allowed"))
		return
	}

	now := time.Now()

	if req.event == "stopped" {
		h.Tracker.Graph.Update(req.peerID, req.event, req.infoHash, req.downloaded, req.left, req.failedNIDs, now)
		h.Tracker.Graph.Disconnect(req.peerID)

		h.writeAnnounceReply(ctx, buf, nil, nil, req)

		return
	}

	sid, err := newSessionID()
	if err != nil {
		h.writeAnnounceError(ctx, buf, internalError("could not generate session id"))
		return
	}

	derKey, err := marshalPubKey(pubkey)
	if err != nil {
		h.writeAnnounceError(ctx, buf, validationError("invalid peer certificate"))
		return
	}

	ep := graph.Endpoint{IP: req.ip, Port: req.port}
	h.Tracker.Graph.InitPeer(req.peerID, derKey, ep, sid, h.Tracker.Config.NumNeighbors, now)

	if ok := h.Tracker.Graph.Update(req.peerID, req.event, req.infoHash, req.downloaded, req.left, req.failedNIDs, now); !ok {
		h.writeAnnounceError(ctx, buf, validationError("malformed announce"))
		return
	}

	if needed := h.Tracker.Graph.NeedsNeighborsOf(req.peerID); needed > 0 {
		made := h.Tracker.Graph.RandConnect(req.peerID, needed, now)
		if made < needed {
			collectors.IncrementNidExhaustion()
			h.Tracker.Analytics.RecordNidExhaustion()
		}

		h.Tracker.Graph.ConsumeNeedsNeighbors(req.peerID, made)
	}

	h.Tracker.ScheduleNATCheck(req.peerID)

	if req.event == "completed" {
		h.Tracker.RecordSnatch(req.infoHash)
	}

	neighbors := h.Tracker.Graph.NeighborsOf(req.peerID)

	peers := make([]util.PeerEntry, 0, len(neighbors))
	for _, nbr := range neighbors {
		peers = append(peers, util.PeerEntry{IP: nbr.Endpoint.IP, Port: nbr.Endpoint.Port, NID: nbr.NID})
	}

	if max := h.Tracker.Config.MaxGive; max > 0 {
		peers = peers[:util.Min(len(peers), max)]
	}

	count := req.numwant
	if count <= 0 {
		count = h.Tracker.Config.ResponseSize
	}

	if max := h.Tracker.Config.MaxGive; max > 0 {
		count = util.Min(count, max)
	}

	codes := h.buildTrackingCodes(req.peerID, req.infoHash, count, h.Tracker.Graph.IsSeeding(req.peerID, req.infoHash))

	h.writeAnnounceReply(ctx, buf, peers, codes, req)
}

// buildTrackingCodes runs the path finder for up to count destinations and
// builds one fixed-length onion per path, per §4.5's tracking-code
// selection: fresh symmetric key+IV concatenated with the infohash as the
// destination payload.
func (h *Handler) buildTrackingCodes(source graph.PeerID, ih graph.InfoHash, count int, sourceIsSeed bool) []util.TrackingCode {
	if count <= 0 {
		return nil
	}

	paths := h.Tracker.Finder.FindPaths(source, ih, minHopsForTrackingCode, count, sourceIsSeed)
	if len(paths) < count {
		collectors.IncrementPathSearchFailure()
	}

	codes := make([]util.TrackingCode, 0, len(paths))

	for _, path := range paths {
		start := time.Now()

		code, err := h.buildOneTrackingCode(path, ih)
		if err != nil {
			log.Warning.Printf("announce: skipping path for %x: %v", source, err)
			continue
		}

		collectors.ObserveOnionBuildTime(time.Since(start).Seconds())
		h.Tracker.Analytics.RecordOnionBuilt(len(path) - 1)
		codes = append(codes, code)
	}

	return codes
}

func (h *Handler) buildOneTrackingCode(path []graph.PeerID, ih graph.InfoHash) (util.TrackingCode, error) {
	key, iv, err := onion.GenerateSessionKey()
	if err != nil {
		return util.TrackingCode{}, fmt.Errorf("generate session key: %w", err)
	}

	// path[0] is the source, excluded from the forwarding chain passed to
	// onion.Build per its contract.
	chain := path[1:]

	hops := make([]onion.Hop, 0, len(chain))
	nids := make([]byte, 0, len(chain)-1)

	var lookupErr error

	h.Tracker.Graph.WithReadLock(func(lookup func(graph.PeerID) (*graph.SimPeer, bool)) {
		for i, id := range chain {
			p, ok := lookup(id)
			if !ok {
				lookupErr = fmt.Errorf("hop %x vanished from the graph mid-build", id)
				return
			}

			pub, err := onion.ParsePublicKey(p.PubKey)
			if err != nil {
				lookupErr = fmt.Errorf("hop %x: %w", id, err)
				return
			}

			hops = append(hops, onion.Hop{PubKey: pub, SessionID: p.SessionID})

			if i < len(chain)-1 {
				nid, ok := p.NIDOf(chain[i+1])
				if !ok {
					lookupErr = fmt.Errorf("no edge nid from %x to %x", id, chain[i+1])
					return
				}

				nids = append(nids, nid)
			}
		}
	})

	if lookupErr != nil {
		return util.TrackingCode{}, lookupErr
	}

	payload := make([]byte, 0, len(key)+len(iv)+len(ih))
	payload = append(payload, ih[:]...)
	payload = append(payload, key...)
	payload = append(payload, iv...)

	onionBytes, err := onion.Build(hops, nids, payload, h.Tracker.Config.MsgLen)
	if err != nil {
		return util.TrackingCode{}, err
	}

	keyIV := make([]byte, 0, len(key)+len(iv))
	keyIV = append(keyIV, key...)
	keyIV = append(keyIV, iv...)

	return util.TrackingCode{KeyIV: keyIV, Onion: onionBytes}, nil
}

func (h *Handler) writeAnnounceReply(ctx *fasthttp.RequestCtx, buf *bytes.Buffer, peers []util.PeerEntry, codes []util.TrackingCode, req announceRequest) {
	drift := time.Duration(util.Rand(0, maxAnnounceDriftSeconds)) * time.Second
	util.BencodeAnnounceHeader(buf, h.Tracker.Config.ReannounceInterval+drift, h.Tracker.Config.ReannounceInterval/2)
	util.BencodeAnnouncePeers(buf, peers)
	util.BencodeAnnounceTrackingCodes(buf, codes)

	if req.wantScrape {
		complete, incomplete, downloaded := h.scrapeCounts(req.infoHash)
		util.BencodeAnnounceScrape(buf, complete, incomplete, downloaded, "")
	}

	util.BencodeAnnounceFooter(buf)

	ctx.SetContentType("text/plain; charset=iso-8859-1")
	ctx.SetBody(buf.Bytes())
}

func (h *Handler) writeAnnounceError(ctx *fasthttp.RequestCtx, buf *bytes.Buffer, err error) {
	reason := err.Error()

	var interval time.Duration
	if te, ok := err.(*trackerError); ok {
		interval = te.interval
		logTrackerError(te)
	}

	util.BencodeFailure(buf, reason, interval)

	ctx.SetContentType("text/plain; charset=iso-8859-1")
	ctx.SetBody(buf.Bytes())
}

func logTrackerError(e *trackerError) {
	collectors.IncrementErroredRequests()

	switch e.kind {
	case kindInternal, kindIO:
		log.Error.Printf("%s", e.reason)
	default:
		log.Verbose.Printf("%s", e.reason)
	}
}

// parseAnnounce decodes and validates a GET /announce, including extracting
// the peer's public key from its TLS client certificate -- TLS is mandatory,
// and the certificate stands in for an out-of-band key exchange.
func (h *Handler) parseAnnounce(ctx *fasthttp.RequestCtx) (announceRequest, *rsa.PublicKey, error) {
	var req announceRequest

	args := ctx.QueryArgs()

	peerIDRaw := args.Peek("peer_id")
	if len(peerIDRaw) != len(req.peerID) {
		return req, nil, validationError("peer_id must be 20 bytes")
	}

	copy(req.peerID[:], peerIDRaw)

	infoHashRaw := args.Peek("info_hash")
	if len(infoHashRaw) != len(req.infoHash) {
		return req, nil, validationError("info_hash must be 20 bytes")
	}

	copy(req.infoHash[:], infoHashRaw)

	port, err := strconv.Atoi(string(args.Peek("port")))
	if err != nil || port < 1 || port > 65534 {
		return req, nil, validationError("port out of range")
	}

	req.port = uint16(port)

	left, err := strconv.ParseUint(string(args.Peek("left")), 10, 64)
	if err != nil {
		return req, nil, validationError("left must be a non-negative integer")
	}

	req.left = left

	if raw := args.Peek("downloaded"); len(raw) > 0 {
		downloaded, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return req, nil, validationError("downloaded must be a non-negative integer")
		}

		req.downloaded = downloaded
	}

	req.event = string(args.Peek("event"))

	switch req.event {
	case "", "started", "completed", "stopped":
	default:
		return req, nil, validationError("unrecognized event")
	}

	if raw := args.Peek("numwant"); len(raw) > 0 {
		numwant, err := strconv.Atoi(string(raw))
		if err != nil || numwant < 0 {
			return req, nil, validationError("numwant must be a non-negative integer")
		}

		req.numwant = numwant
	}

	req.failedNIDs = parseFailedNIDs(args.Peek("failed"))
	req.wantScrape = len(args.Peek("scrape")) > 0

	req.ip = h.resolvePeerIP(ctx, args)

	pubkey, err := clientCertPublicKey(ctx)
	if err != nil {
		return req, nil, authorizationError(err.Error())
	}

	return req, pubkey, nil
}

func parseFailedNIDs(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}

	parts := strings.Split(string(raw), ",")
	out := make([]byte, 0, len(parts))

	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > graph.MaxNID {
			continue
		}

		out = append(out, byte(n))
	}

	return out
}

// resolvePeerIP honors an explicit "ip" query override (the peer's own
// claim about its dialable address, e.g. behind a NAT it has mapped
// manually), then the configured forwarded-IP trust policy, then falls back
// to the TCP socket's remote address.
func (h *Handler) resolvePeerIP(ctx *fasthttp.RequestCtx, args *fasthttp.Args) string {
	if ip := strings.TrimSpace(string(args.Peek("ip"))); ip != "" {
		return ip
	}

	if ip, ok := resolveForwardedIP(ctx, h.Tracker.Config.OnlyLocalOverrideIP); ok {
		return ip
	}

	if ip, ok := socketIP(ctx); ok {
		return ip
	}

	return ""
}

// clientCertPublicKey extracts the RSA public key from the peer's TLS client
// certificate. The certificate chain is not validated anywhere: the listener
// uses tls.RequireAnyClientCert, and this function only reads out the key
// material.
func clientCertPublicKey(ctx *fasthttp.RequestCtx) (*rsa.PublicKey, error) {
	tlsConn, ok := ctx.Conn().(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("connection is not TLS")
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("no client certificate presented")
	}

	pub, ok := state.PeerCertificates[0].PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("client certificate key is not RSA")
	}

	return pub, nil
}

func marshalPubKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

func newSessionID() (graph.SessionID, error) {
	var sid graph.SessionID

	if _, err := rand.Read(sid[:]); err != nil {
		return sid, err
	}

	return sid, nil
}
