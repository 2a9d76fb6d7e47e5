package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	nonceSize = 24
)

// Sealed encrypts every value with NaCl secretbox before handing it to the
// wrapped store. Keys are stored in the clear so they can still be listed.
type Sealed struct {
	inner Store
	key   [KeySize]byte
}

func NewSealed(inner Store, key [KeySize]byte) *Sealed {
	return &Sealed{inner: inner, key: key}
}

// ParseKey decodes a base64 encoded 32 byte secretbox key.
func ParseKey(encoded string) ([KeySize]byte, error) {
	var key [KeySize]byte
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return key, fmt.Errorf("decode seal key: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("seal key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

func (s *Sealed) Put(ctx context.Context, key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], value, &nonce, &s.key)
	return s.inner.Put(ctx, key, box)
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	box, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	value, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrCorrupt
	}
	return value, nil
}

func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *Sealed) ListKeys(ctx context.Context) ([]string, error) {
	return s.inner.ListKeys(ctx)
}
