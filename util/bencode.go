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
	"encoding/hex"
	"strconv"
	"time"
)

func bencodeWriteInt64[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	// Static allocation, length of max int64
	var lenBuf [20]byte

	buf.Write(strconv.AppendInt(lenBuf[:0], int64(v), 10))
}

func bencodeWriteString[T ~string | ~[]byte](buf *bytes.Buffer, v T) {
	bencodeWriteInt64(buf, len(v))
	buf.WriteByte(':')
	buf.Write([]byte(v))
}

func bencodeWriteNumber[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	buf.WriteByte('i')
	bencodeWriteInt64(buf, v)
	buf.WriteByte('e')
}

// BencodeFailure writes a {"failure reason": err[, "interval": n]} dict,
// the shape returned for every Validation/Authorization error (§7).
func BencodeFailure(buf *bytes.Buffer, err string, interval time.Duration) {
	if interval < 0 {
		panic("bencode: negative interval")
	}

	buf.WriteByte('d')

	bencodeWriteString(buf, "failure reason")
	bencodeWriteString(buf, err)

	if interval > 0 {
		bencodeWriteString(buf, "interval")
		bencodeWriteNumber(buf, interval/time.Second)
	}

	buf.WriteByte('e')
}

// PeerEntry is one neighbor entry of an announce reply: the NID the
// announcing peer uses to address this neighbor, not its full peer ID.
type PeerEntry struct {
	IP   string
	Port uint16
	NID  byte
}

// TrackingCode is a (key||iv, onion) pair as returned by the tracking-code
// selection step.
type TrackingCode struct {
	KeyIV []byte
	Onion []byte
}

// BencodeAnnounceHeader writes the announce reply's outer dict up through
// "interval"/"min interval". Call BencodeAnnouncePeers and
// BencodeAnnounceTrackingCodes next (order matching the wire format's key
// order), then finish with BencodeAnnounceFooter.
func BencodeAnnounceHeader(buf *bytes.Buffer, interval, minInterval time.Duration) {
	buf.WriteByte('d')

	bencodeWriteString(buf, "interval")
	bencodeWriteNumber(buf, interval/time.Second)

	bencodeWriteString(buf, "min interval")
	bencodeWriteNumber(buf, minInterval/time.Second)
}

// BencodeAnnouncePeers writes the "peers" key: a list of
// {ip, port, peer_id: <nid>} dicts, ordered as given.
func BencodeAnnouncePeers(buf *bytes.Buffer, peers []PeerEntry) {
	bencodeWriteString(buf, "peers")
	buf.WriteByte('l')

	for _, p := range peers {
		buf.WriteByte('d')

		bencodeWriteString(buf, "ip")
		bencodeWriteString(buf, p.IP)

		bencodeWriteString(buf, "peer_id")
		bencodeWriteString(buf, []byte{p.NID})

		bencodeWriteString(buf, "port")
		bencodeWriteNumber(buf, int64(p.Port))

		buf.WriteByte('e')
	}

	buf.WriteByte('e')
}

// BencodeAnnounceTrackingCodes writes the "tracking codes" key: a list of
// two-element lists [key||iv, onion].
func BencodeAnnounceTrackingCodes(buf *bytes.Buffer, codes []TrackingCode) {
	bencodeWriteString(buf, "tracking codes")
	buf.WriteByte('l')

	for _, c := range codes {
		buf.WriteByte('l')
		bencodeWriteString(buf, c.KeyIV)
		bencodeWriteString(buf, c.Onion)
		buf.WriteByte('e')
	}

	buf.WriteByte('e')
}

// BencodeAnnounceScrape writes the optional "scrape" key.
func BencodeAnnounceScrape(buf *bytes.Buffer, complete, incomplete, downloaded int64, name string) {
	bencodeWriteString(buf, "scrape")
	buf.WriteByte('d')

	bencodeWriteString(buf, "complete")
	bencodeWriteNumber(buf, complete)

	bencodeWriteString(buf, "downloaded")
	bencodeWriteNumber(buf, downloaded)

	bencodeWriteString(buf, "incomplete")
	bencodeWriteNumber(buf, incomplete)

	if name != "" {
		bencodeWriteString(buf, "name")
		bencodeWriteString(buf, name)
	}

	buf.WriteByte('e')
}

// BencodeAnnounceFooter closes the announce reply's outer dict.
func BencodeAnnounceFooter(buf *bytes.Buffer) {
	buf.WriteByte('e')
}

// BencodeScrapeHeader writes the scrape reply's header.
// Call BencodeScrapeTorrent per swarm, then finish with BencodeScrapeFooter.
func BencodeScrapeHeader(buf *bytes.Buffer) {
	buf.WriteByte('d')

	bencodeWriteString(buf, "files")

	buf.WriteByte('d')
}

// BencodeScrapeTorrent writes one swarm's counters, keyed by the hex-encoded
// infohash as the original tracker did.
func BencodeScrapeTorrent(buf *bytes.Buffer, infoHash [20]byte, complete, downloaded, incomplete int64) {
	var hashBuf [40]byte

	hex.Encode(hashBuf[:], infoHash[:])
	bencodeWriteString(buf, hashBuf[:])

	buf.WriteByte('d')

	bencodeWriteString(buf, "complete")
	bencodeWriteNumber(buf, complete)

	bencodeWriteString(buf, "downloaded")
	bencodeWriteNumber(buf, downloaded)

	bencodeWriteString(buf, "incomplete")
	bencodeWriteNumber(buf, incomplete)

	buf.WriteByte('e')
}

// BencodeScrapeFooter closes the scrape reply.
func BencodeScrapeFooter(buf *bytes.Buffer, scrapeInterval int) {
	buf.WriteByte('e')

	bencodeWriteString(buf, "flags")

	buf.WriteByte('d')

	bencodeWriteString(buf, "min_request_interval")
	bencodeWriteNumber(buf, scrapeInterval)

	buf.WriteByte('e')

	buf.WriteByte('e')
}
