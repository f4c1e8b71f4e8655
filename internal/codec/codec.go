// Package codec encrypts group message bodies at rest.
//
// Records are AES-256-CBC with PKCS#7 padding and a fresh 16-byte IV per
// call, stored as hex(iv) + ":" + hex(ciphertext). Keys are 32 bytes,
// hex-encoded, and resolved per sender through a KeyProvider.
package codec

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/capitalize-ai/realtime-chat/internal/model"
)

const (
	keySize   = 32
	delimiter = ":"
)

var (
	// ErrInvalidKey is returned for keys that are not 32 hex-encoded bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 hex-encoded bytes")
	// ErrMalformedRecord is returned when a stored record cannot be parsed or unpadded.
	ErrMalformedRecord = errors.New("malformed ciphertext record")
)

// KeyProvider resolves the encryption key of a user. Implementations return
// an error wrapping model.ErrKeyUnavailable when the user or key is missing.
type KeyProvider interface {
	Key(ctx context.Context, userID string) (string, error)
}

// GenerateKey returns a new random hex-encoded 256-bit key.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt seals plaintext under keyHex with a fresh IV.
func Encrypt(plaintext, keyHex string) (string, error) {
	block, err := newBlock(keyHex)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + delimiter + hex.EncodeToString(out), nil
}

// Decrypt opens a record produced by Encrypt.
func Decrypt(record, keyHex string) (string, error) {
	block, err := newBlock(keyHex)
	if err != nil {
		return "", err
	}

	ivHex, ctHex, ok := strings.Cut(record, delimiter)
	if !ok {
		return "", ErrMalformedRecord
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedRecord
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrMalformedRecord
	}

	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ct)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func newBlock(keyHex string) (cipher.Block, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}
	return aes.NewCipher(key)
}

func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrMalformedRecord
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrMalformedRecord
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrMalformedRecord
		}
	}
	return b[:len(b)-n], nil
}

// DecryptPolicy decides what Open does when a record cannot be decrypted.
type DecryptPolicy int

const (
	// FailClosed withholds content that cannot be decrypted.
	FailClosed DecryptPolicy = iota
	// FailOpen returns the stored record unchanged.
	FailOpen
)

// ParsePolicy maps "closed" and "open" to a DecryptPolicy.
func ParsePolicy(s string) (DecryptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "closed":
		return FailClosed, nil
	case "open":
		return FailOpen, nil
	default:
		return FailClosed, fmt.Errorf("unknown decrypt policy %q", s)
	}
}

// MessageCodec seals and opens message bodies with the sender's key.
type MessageCodec struct {
	keys   KeyProvider
	policy DecryptPolicy
}

// New creates a MessageCodec.
func New(keys KeyProvider, policy DecryptPolicy) *MessageCodec {
	return &MessageCodec{keys: keys, policy: policy}
}

// Seal encrypts plaintext for senderID. A missing sender or key rejects the
// write. Empty plaintext stays empty.
func (c *MessageCodec) Seal(ctx context.Context, senderID, plaintext string) (string, error) {
	key, err := c.keys.Key(ctx, senderID)
	if err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", nil
	}
	record, err := Encrypt(plaintext, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrKeyUnavailable, err)
	}
	return record, nil
}

// Open decrypts a record written by senderID. When the key is missing or the
// record does not decrypt, FailOpen returns the record as stored and
// FailClosed returns an error wrapping model.ErrKeyUnavailable.
func (c *MessageCodec) Open(ctx context.Context, senderID, record string) (string, error) {
	if record == "" {
		return "", nil
	}

	key, err := c.keys.Key(ctx, senderID)
	if err != nil {
		if !errors.Is(err, model.ErrKeyUnavailable) {
			return "", err
		}
		return c.fallback(record, err)
	}

	plain, err := Decrypt(record, key)
	if err != nil {
		return c.fallback(record, fmt.Errorf("%w: %v", model.ErrKeyUnavailable, err))
	}
	return plain, nil
}

func (c *MessageCodec) fallback(record string, err error) (string, error) {
	if c.policy == FailOpen {
		return record, nil
	}
	return "", err
}
