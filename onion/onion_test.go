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

package onion

import (
	"bytes"
	"crypto/rsa"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// relayView is the subset of UnwrappedLayer a relay hop is expected to
// expose; Rest is excluded since it's the opaque ciphertext passed on to the
// next hop, not something a test asserts a literal value for.
type relayView struct {
	Tag       byte
	SessionID [8]byte
	NextNID   byte
}

const testMsgLen = 4096

type testHop struct {
	priv *rsa.PrivateKey
	hop  Hop
}

func mustHop(t *testing.T, sid byte) testHop {
	t.Helper()

	priv, der, err := GenerateKeyPair(2048)
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	pub, err := ParsePublicKey(der)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}

	var session [8]byte
	session[0] = sid

	return testHop{priv: priv, hop: Hop{PubKey: pub, SessionID: session}}
}

// TestOnionRoundTrip is concrete scenario 5: a path [B, C, D] carrying
// payload "HELLO" unwraps at each hop to the expected tag, session ID, and
// (for relays) next NID, finally yielding the original payload at D. The
// fully-layered onion is exactly msg_len bytes.
func TestOnionRoundTrip(t *testing.T) {
	b := mustHop(t, 0xB0)
	c := mustHop(t, 0xC0)
	d := mustHop(t, 0xD0)

	const nidBC, nidCD = 11, 22

	payload := []byte("HELLO")

	onionBytes, err := Build(
		[]Hop{b.hop, c.hop, d.hop},
		[]byte{nidBC, nidCD},
		payload,
		testMsgLen,
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(onionBytes) != testMsgLen {
		t.Fatalf("expected onion of length %d, got %d", testMsgLen, len(onionBytes))
	}

	atB, err := Unwrap(b.priv, onionBytes)
	if err != nil {
		t.Fatalf("Unwrap at B: %v", err)
	}

	wantB := relayView{Tag: TagRelay, SessionID: b.hop.SessionID, NextNID: nidBC}
	gotB := relayView{Tag: atB.Tag, SessionID: atB.SessionID, NextNID: atB.NextNID}

	if diff := cmp.Diff(wantB, gotB); diff != "" {
		t.Fatalf("B: unexpected layer (-want +got):\n%s", diff)
	}

	atC, err := Unwrap(c.priv, atB.Rest)
	if err != nil {
		t.Fatalf("Unwrap at C: %v", err)
	}

	wantC := relayView{Tag: TagRelay, SessionID: c.hop.SessionID, NextNID: nidCD}
	gotC := relayView{Tag: atC.Tag, SessionID: atC.SessionID, NextNID: atC.NextNID}

	if diff := cmp.Diff(wantC, gotC); diff != "" {
		t.Fatalf("C: unexpected layer (-want +got):\n%s", diff)
	}

	atD, err := Unwrap(d.priv, atC.Rest)
	if err != nil {
		t.Fatalf("Unwrap at D: %v", err)
	}

	if atD.Tag != TagDestination {
		t.Fatalf("D: expected destination tag, got %#x", atD.Tag)
	}

	if atD.SessionID != d.hop.SessionID {
		t.Fatalf("D: session id mismatch")
	}

	if !bytes.Equal(atD.Rest, payload) {
		t.Fatalf("D: expected payload %q, got %q", payload, atD.Rest)
	}
}

func TestBuildRejectsMismatchedNidCount(t *testing.T) {
	b := mustHop(t, 1)
	c := mustHop(t, 2)

	_, err := Build([]Hop{b.hop, c.hop}, nil, []byte("x"), testMsgLen)
	if err == nil {
		t.Fatalf("expected an error for a missing nid")
	}
}

func TestBuildRejectsOversizeOnion(t *testing.T) {
	b := mustHop(t, 1)

	_, err := Build([]Hop{b.hop}, nil, bytes.Repeat([]byte{0}, testMsgLen), 16)
	if err != ErrOnionTooLong {
		t.Fatalf("expected ErrOnionTooLong, got %v", err)
	}
}

func TestWrapUnwrapLayerRejectsTamperedCiphertext(t *testing.T) {
	h := mustHop(t, 1)

	wrapped, err := WrapLayer(h.hop.PubKey, []byte("plaintext"))
	if err != nil {
		t.Fatalf("WrapLayer: %v", err)
	}

	tampered := append([]byte(nil), wrapped...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := UnwrapLayer(h.priv, tampered); err == nil {
		t.Fatalf("expected authentication failure on tampered ciphertext")
	}
}
