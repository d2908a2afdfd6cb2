package tenant

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

var ErrBadCookie = errors.New("tenant cookie cannot be opened")

const nonceSize = 24

// Codec seals a Config into an opaque cookie value and opens it again.
type Codec struct {
	key [32]byte
}

// NewCodec derives the sealing key from secret.
func NewCodec(secret string) *Codec {
	return &Codec{key: sha256.Sum256([]byte(secret))}
}

func (c *Codec) Seal(cfg Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	plain, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode tenant config: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open returns the config sealed in value. Garbled, tampered or invalid
// values return ErrBadCookie.
func (c *Codec) Open(value string) (*Config, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrBadCookie
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, ErrBadCookie
	}
	var cfg Config
	if err := json.Unmarshal(plain, &cfg); err != nil {
		return nil, ErrBadCookie
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCookie, err)
	}
	return &cfg, nil
}
