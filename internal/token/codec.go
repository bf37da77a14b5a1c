// ABOUTME: Symmetric SSO token codec shared with the upstream identity provider
// ABOUTME: Tokens are base64url(nonce || XChaCha20-Poly1305 sealed username)

package token

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of a shared SSO key.
const KeySize = chacha20poly1305.KeySize

var (
	// ErrInvalidToken is returned for any token that does not open under the key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidKey is returned when the configured key is not 32 hex-encoded bytes.
	ErrInvalidKey = errors.New("invalid sso key")
)

// Codec encrypts and decrypts SSO tokens with a single process-wide key.
// No expiry or nonce tracking is applied: a token stays valid for as long
// as the key that sealed it.
type Codec struct {
	key  []byte
	aead cipher.AEAD
}

// NewCodec creates a codec for a raw 32-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k, aead: aead}, nil
}

// LoadKey parses the hex form of a shared key as it appears in configuration.
func LoadKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// GenerateKey returns a fresh random key in its hex configuration form.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals username into an opaque URL-safe token.
func (c *Codec) Encrypt(username string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(username)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(username), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token and returns the username it carries.
// Every failure is reported as ErrInvalidToken.
func (c *Codec) Decrypt(tok string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(tok, "="))
	if err != nil {
		return "", ErrInvalidToken
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", ErrInvalidToken
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrInvalidToken
	}
	if len(plain) == 0 || !utf8.Valid(plain) {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}

// DerivePassword returns the deterministic password for username under this codec's key.
func (c *Codec) DerivePassword(username string) string {
	return DerivePassword(username, c.key)
}
