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

// Package server implements the tracker's HTTP surface: the announce and
// scrape endpoints that read and mutate the graph owned by package tracker,
// plus the informational endpoints (infopage, file, favicon, metrics).
package server

import (
	"crypto/tls"
	"fmt"
	"path/filepath"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/tracker"
	"github.com/lingyu0w0/Anomos/util"
)

// Handler dispatches every HTTP request against one Tracker. Its only
// mutable state besides the tracker it wraps is a pooled scratch-buffer
// source for reply encoding.
type Handler struct {
	Tracker *tracker.Tracker

	bufferPool *util.BufferPool
	fasthttp   *fasthttp.Server
}

// New builds a Handler bound to t.
func New(t *tracker.Tracker) *Handler {
	h := &Handler{
		Tracker:    t,
		bufferPool: util.NewBufferPool(t.Config.MsgLen),
	}

	h.fasthttp = &fasthttp.Server{
		Handler:      h.serve,
		Name:         "anomos",
		ReadTimeout:  t.Config.SocketTimeout,
		WriteTimeout: t.Config.SocketTimeout,
	}

	return h
}

// ListenAndServeTLS starts the listener. TLS is mandatory (the client
// certificate carries the peer's public key): certFile/keyFile are the
// tracker's own identity, and clientAuth governs how strictly peer
// certificates are checked -- tls.RequireAnyClientCert accepts any
// presented certificate without chain validation, since the tracker only
// reads the key out of it, never the identity.
func (h *Handler) ListenAndServeTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("server: load tracker identity: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAnyClientCert,
		MinVersion:   tls.VersionTLS12,
	}

	h.fasthttp.TLSConfig = tlsCfg

	log.Info.Printf("listening on %s", addr)

	return h.fasthttp.ListenAndServeTLS(addr, certFile, keyFile)
}

// Shutdown stops accepting new connections and waits for in-flight requests
// to finish.
func (h *Handler) Shutdown() error {
	return h.fasthttp.Shutdown()
}

// serve is the single entry point fasthttp calls for every request. A
// recover() here is the one place a single malformed or adversarial request
// is stopped from taking the whole listener down with it; the stack trace is
// logged so the underlying bug can still be found.
func (h *Handler) serve(ctx *fasthttp.RequestCtx) {
	defer func() {
		if r := recover(); r != nil {
			log.Error.Printf("panic handling %s: %v", ctx.Path(), r)
			log.WriteStack()

			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		}
	}()

	switch string(ctx.Path()) {
	case "/announce":
		h.Announce(ctx)
	case "/scrape":
		h.Scrape(ctx)
	case "/file":
		h.File(ctx)
	case "/favicon.ico":
		h.Favicon(ctx)
	case "/metrics":
		h.Metrics(ctx)
	case "/":
		h.Infopage(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

// DefaultCertPaths returns the tracker's own TLS identity paths within
// dataDir, used when the operator does not pass explicit -cert/-key flags.
func DefaultCertPaths(dataDir string) (certFile, keyFile string) {
	return filepath.Join(dataDir, "tracker.crt"), filepath.Join(dataDir, "tracker.key")
}
