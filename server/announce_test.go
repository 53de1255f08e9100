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
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/lingyu0w0/Anomos/graph"
)

func TestParseFailedNIDsSkipsOutOfRangeAndGarbage(t *testing.T) {
	got := parseFailedNIDs([]byte("3, 999, abc, 0, -1, 254"))

	want := []byte{3, 0, 254}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestParseFailedNIDsEmptyInput(t *testing.T) {
	if got := parseFailedNIDs(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestMarshalPubKeyRoundTrips(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	der, err := marshalPubKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshalPubKey: %v", err)
	}

	if len(der) == 0 {
		t.Fatalf("expected non-empty DER-encoded public key")
	}
}

func TestNewSessionIDIsNonZeroAndVaries(t *testing.T) {
	a, err := newSessionID()
	if err != nil {
		t.Fatalf("newSessionID: %v", err)
	}

	b, err := newSessionID()
	if err != nil {
		t.Fatalf("newSessionID: %v", err)
	}

	if a == b {
		t.Fatalf("expected two independently generated session ids to differ")
	}
}

func TestParseAnnounceRejectsMissingPeerID(t *testing.T) {
	h := newTestHandler(t, nil)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/announce")

	_, _, err := h.parseAnnounce(&ctx)
	if err == nil || !strings.Contains(err.Error(), "peer_id") {
		t.Fatalf("expected a peer_id validation error, got %v", err)
	}
}

func TestParseAnnounceRejectsUnrecognizedEvent(t *testing.T) {
	h := newTestHandler(t, nil)

	var ctx fasthttp.RequestCtx
	args := ctx.QueryArgs()
	args.Set("peer_id", strings.Repeat("a", 20))
	args.Set("info_hash", strings.Repeat("b", 20))
	args.Set("port", "6881")
	args.Set("left", "0")
	args.Set("event", "sideways")

	_, _, err := h.parseAnnounce(&ctx)
	if err == nil || !strings.Contains(err.Error(), "event") {
		t.Fatalf("expected an unrecognized-event validation error, got %v", err)
	}
}

func TestParseAnnounceRejectsPortOutOfRange(t *testing.T) {
	h := newTestHandler(t, nil)

	var ctx fasthttp.RequestCtx
	args := ctx.QueryArgs()
	args.Set("peer_id", strings.Repeat("a", 20))
	args.Set("info_hash", strings.Repeat("b", 20))
	args.Set("port", "0")
	args.Set("left", "0")

	_, _, err := h.parseAnnounce(&ctx)
	if err == nil || !strings.Contains(err.Error(), "port") {
		t.Fatalf("expected a port validation error, got %v", err)
	}
}

func TestBuildTrackingCodesZeroCountReturnsNil(t *testing.T) {
	h := newTestHandler(t, nil)

	var ih graph.InfoHash

	codes := h.buildTrackingCodes(graph.PeerID{}, ih, 0, false)
	if codes != nil {
		t.Fatalf("expected nil tracking codes when count is 0, got %v", codes)
	}
}
