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
	"crypto/rsa"
	"errors"
	"fmt"
)

// Tag values distinguishing "relay to the NID that follows" from "this
// payload is for me", the leading byte of every decrypted layer.
const (
	TagRelay       byte = 0x00
	TagDestination byte = 0x01
)

// ErrOnionTooLong is returned when the fully-layered onion exceeds msg_len.
// Per the length-discipline design note, the tracker rejects rather than
// emitting an over-length blob; callers may retry with a shorter path.
var ErrOnionTooLong = errors.New("onion: layered ciphertext exceeds msg_len")

// Hop is one forwarding-chain entry passed to Build: the relay's long-lived
// public key and the session ID the tracker issued it at registration.
type Hop struct {
	PubKey    *rsa.PublicKey
	SessionID [8]byte
}

// Build constructs one fixed-length onion for the forwarding chain hops
// (source excluded, per component design — hops[len(hops)-1] is the
// destination) carrying payload to the destination.
//
// nids must have exactly len(hops)-1 entries; nids[i] is the NID naming the
// edge from hops[i] to hops[i+1] in the overlay, as looked up on hops[i]'s
// neighbor table.
//
// This is an explicit loop run in reverse over the path, accumulating
// ciphertext in a local variable — not the recursive self-call the original
// implementation used.
func Build(hops []Hop, nids []byte, payload []byte, msgLen int) ([]byte, error) {
	if len(hops) == 0 {
		return nil, fmt.Errorf("onion: empty forwarding chain")
	}

	if len(nids) != len(hops)-1 {
		return nil, fmt.Errorf("onion: need %d nids for %d hops, got %d", len(hops)-1, len(hops), len(nids))
	}

	last := len(hops) - 1

	plaintext := make([]byte, 0, 1+8+len(payload))
	plaintext = append(plaintext, TagDestination)
	plaintext = append(plaintext, hops[last].SessionID[:]...)
	plaintext = append(plaintext, payload...)

	ciphertext, err := WrapLayer(hops[last].PubKey, plaintext)
	if err != nil {
		return nil, fmt.Errorf("onion: wrap destination layer: %w", err)
	}

	for i := last - 1; i >= 0; i-- {
		plaintext = make([]byte, 0, 1+8+1+len(ciphertext))
		plaintext = append(plaintext, TagRelay)
		plaintext = append(plaintext, hops[i].SessionID[:]...)
		plaintext = append(plaintext, nids[i])
		plaintext = append(plaintext, ciphertext...)

		ciphertext, err = WrapLayer(hops[i].PubKey, plaintext)
		if err != nil {
			return nil, fmt.Errorf("onion: wrap layer %d: %w", i, err)
		}
	}

	switch {
	case len(ciphertext) > msgLen:
		return nil, ErrOnionTooLong
	case len(ciphertext) < msgLen:
		padding, err := RandomPadding(msgLen - len(ciphertext))
		if err != nil {
			return nil, fmt.Errorf("onion: pad: %w", err)
		}

		ciphertext = append(ciphertext, padding...)
	}

	return ciphertext, nil
}

// UnwrappedLayer is the parsed result of peeling one layer.
type UnwrappedLayer struct {
	Tag       byte
	SessionID [8]byte
	NextNID   byte   // valid only when Tag == TagRelay
	Rest      []byte // remaining ciphertext (TagRelay) or final payload (TagDestination)
}

// Unwrap peels exactly one layer of onion using priv, the private key
// corresponding to the public key it was wrapped under. Padding bytes
// trailing the real ciphertext at the outermost layer are harmless: they sit
// past the AEAD-authenticated region recovered from the length-prefixed wrap
// header, so Unwrap never reads into them.
func Unwrap(priv *rsa.PrivateKey, ciphertext []byte) (UnwrappedLayer, error) {
	plaintext, err := UnwrapLayer(priv, ciphertext)
	if err != nil {
		return UnwrappedLayer{}, err
	}

	if len(plaintext) < 1+8 {
		return UnwrappedLayer{}, fmt.Errorf("onion: layer plaintext too short")
	}

	var out UnwrappedLayer

	out.Tag = plaintext[0]
	copy(out.SessionID[:], plaintext[1:9])

	switch out.Tag {
	case TagDestination:
		out.Rest = plaintext[9:]
	case TagRelay:
		if len(plaintext) < 10 {
			return UnwrappedLayer{}, fmt.Errorf("onion: relay layer missing nid")
		}

		out.NextNID = plaintext[9]
		out.Rest = plaintext[10:]
	default:
		return UnwrappedLayer{}, fmt.Errorf("onion: unknown layer tag %#x", out.Tag)
	}

	return out, nil
}
