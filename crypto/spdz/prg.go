//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// SeedSize defines the size of the engine seed in bytes.
const SeedSize = 32

const (
	labelShares = "kep spdz local shares"
	labelLink   = "kep spdz ole link"
)

// stream is a ChaCha20 key stream usable as an io.Reader.
type stream struct {
	cipher *chacha20.Cipher
}

func newStream(seed []byte, label string, info ...byte) (*stream, error) {
	key := make([]byte, chacha20.KeySize)
	kdf := hkdf.New(sha256.New, seed, nil, append([]byte(label), info...))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, err
	}
	return &stream{
		cipher: cipher,
	}, nil
}

func (s *stream) Read(p []byte) (int, error) {
	clear(p)
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}
