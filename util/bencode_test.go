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

package util

import (
	"bytes"
	"testing"
	"time"
)

func TestBencodeFailure(t *testing.T) {
	var buf bytes.Buffer

	BencodeFailure(&buf, "nope", 0)

	want := "d14:failure reason4:nopee"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestBencodeFailureWithInterval(t *testing.T) {
	var buf bytes.Buffer

	BencodeFailure(&buf, "nope", 30*time.Second)

	want := "d14:failure reason4:nope8:intervali30ee"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestBencodeAnnounceRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	BencodeAnnounceHeader(&buf, 1800*time.Second, 900*time.Second)
	BencodeAnnouncePeers(&buf, []PeerEntry{{IP: "1.2.3.4", Port: 6881, NID: 7}})
	BencodeAnnounceTrackingCodes(&buf, []TrackingCode{{KeyIV: []byte("k"), Onion: []byte("o")}})
	BencodeAnnounceFooter(&buf)

	want := "d8:intervali1800e12:min intervali900e5:peersld2:ip7:1.2.3.47:peer_id1:\x074:porti6881eee14:tracking codesll1:k1:oeee"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestBencodeScrapeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	var hash [20]byte

	BencodeScrapeHeader(&buf)
	BencodeScrapeTorrent(&buf, hash, 1, 2, 3)
	BencodeScrapeFooter(&buf, 900)

	if buf.Len() == 0 {
		t.Fatalf("expected non-empty scrape reply")
	}
}
