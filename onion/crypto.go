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

// Package onion holds the crypto primitives and the inside-out layer builder
// that together let a source peer hand a path through the overlay to a
// sequence of relays without any hop learning the full route.
//
// The tracker itself never reads plaintext inside a tracking code beyond the
// single outermost layer it constructs here; it only composes layers using
// each hop's public key, which it stores opaquely.
package onion

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SessionKeySize and SessionIVSize describe the fresh symmetric material
// generated per tracking code, concatenated with the infohash to form the
// destination's payload (§4.5 tracking-code selection).
const (
	SessionKeySize = chacha20poly1305.KeySize
	SessionIVSize  = chacha20poly1305.NonceSize
)

// ParsePublicKey accepts a well-formed DER-encoded SubjectPublicKeyInfo, as
// presented by a peer's TLS client certificate. The tracker does not validate
// key material beyond this parse: it stores the key opaquely.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("onion: invalid public key material: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("onion: public key is not RSA")
	}

	return rsaPub, nil
}

// GenerateKeyPair is a test/tooling helper producing a fresh RSA key pair and
// its DER encoding, standing in for a peer's long-lived certificate key.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, []byte, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	return priv, der, nil
}

// GenerateSessionKey returns fresh symmetric key+IV material for one
// tracking code's payload.
func GenerateSessionKey() (key []byte, iv []byte, err error) {
	key = make([]byte, SessionKeySize)
	if _, err = rand.Read(key); err != nil {
		return nil, nil, err
	}

	iv = make([]byte, SessionIVSize)
	if _, err = rand.Read(iv); err != nil {
		return nil, nil, err
	}

	return key, iv, nil
}

// RandomPadding returns n cryptographically random bytes, used to pad an
// onion out to the configured msg_len.
func RandomPadding(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// wrapKeySize is the length of the hybrid header RSA-OAEP-encrypts ahead of
// every layer: a fresh chacha20poly1305 key followed by its nonce.
const wrapKeySize = chacha20poly1305.KeySize + chacha20poly1305.NonceSize

var errShortCiphertext = errors.New("onion: ciphertext too short to contain a wrap header")

// WrapLayer encrypts plaintext for pub. Each layer uses a fresh symmetric
// key: RSA-OAEP wraps only that key (small, fits well under any reasonable
// modulus), and the layer plaintext itself is sealed with
// ChaCha20-Poly1305, so layer size is not bounded by the RSA modulus — only
// by msg_len.
func WrapLayer(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	keyAndNonce := make([]byte, wrapKeySize)
	if _, err := rand.Read(keyAndNonce); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(keyAndNonce[:chacha20poly1305.KeySize])
	if err != nil {
		return nil, err
	}

	nonce := keyAndNonce[chacha20poly1305.KeySize:]
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, keyAndNonce, nil)
	if err != nil {
		return nil, fmt.Errorf("onion: wrap key: %w", err)
	}

	// sealed's length is recorded explicitly (rather than implied by "the
	// rest of the slice") so that random padding appended to the outermost
	// layer after the full onion is built never gets mistaken for part of
	// this layer's authenticated ciphertext.
	out := make([]byte, 2+len(wrappedKey)+4+len(sealed))
	binary.BigEndian.PutUint16(out, uint16(len(wrappedKey)))
	copy(out[2:], wrappedKey)
	binary.BigEndian.PutUint32(out[2+len(wrappedKey):], uint32(len(sealed)))
	copy(out[2+len(wrappedKey)+4:], sealed)

	return out, nil
}

// UnwrapLayer reverses WrapLayer using priv, recovering the original layer
// plaintext (the tag byte, session ID, and either the next NID plus
// remaining ciphertext, or the final payload).
func UnwrapLayer(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2 {
		return nil, errShortCiphertext
	}

	wrappedLen := int(binary.BigEndian.Uint16(ciphertext))
	if len(ciphertext) < 2+wrappedLen {
		return nil, errShortCiphertext
	}

	if len(ciphertext) < 2+wrappedLen+4 {
		return nil, errShortCiphertext
	}

	wrappedKey := ciphertext[2 : 2+wrappedLen]
	sealedLen := int(binary.BigEndian.Uint32(ciphertext[2+wrappedLen:]))
	sealedStart := 2 + wrappedLen + 4

	if len(ciphertext) < sealedStart+sealedLen {
		return nil, errShortCiphertext
	}

	sealed := ciphertext[sealedStart : sealedStart+sealedLen]

	keyAndNonce, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("onion: unwrap key: %w", err)
	}

	if len(keyAndNonce) != wrapKeySize {
		return nil, fmt.Errorf("onion: unexpected wrap header length %d", len(keyAndNonce))
	}

	aead, err := chacha20poly1305.New(keyAndNonce[:chacha20poly1305.KeySize])
	if err != nil {
		return nil, err
	}

	nonce := keyAndNonce[chacha20poly1305.KeySize:]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("onion: layer authentication failed: %w", err)
	}

	return plaintext, nil
}
