// Package cipher encrypts chat message bodies at rest.
package cipher

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of a master key in bytes.
const KeySize = chacha20poly1305.KeySize

var (
	// ErrEncrypt is returned when a message cannot be sealed.
	ErrEncrypt = errors.New("encrypt message")
	// ErrDecrypt is returned when a stored body cannot be opened.
	ErrDecrypt = errors.New("decrypt message")
)

var encoding = base64.URLEncoding

// Manager seals and opens message bodies with a single master key.
type Manager struct {
	aead cipher.AEAD
}

// New builds a manager from a raw master key.
func New(key []byte) (*Manager, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Manager{aead: aead}, nil
}

// Encrypt seals text and returns it base64url encoded for storage.
func (m *Manager) Encrypt(text string) (string, error) {
	nonce := make([]byte, m.aead.NonceSize(), m.aead.NonceSize()+len(text)+m.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrEncrypt, err)
	}
	sealed := m.aead.Seal(nonce, nonce, []byte(text), nil)
	return encoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (m *Manager) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("%w: empty body", ErrDecrypt)
	}
	raw, err := encoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrDecrypt, err)
	}
	if len(raw) < m.aead.NonceSize() {
		return "", fmt.Errorf("%w: body too short", ErrDecrypt)
	}
	nonce, sealed := raw[:m.aead.NonceSize()], raw[m.aead.NonceSize():]
	plain, err := m.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

// LoadOrCreateKey returns the master key stored at path, generating and
// persisting one when the file does not exist. If the file cannot be used
// the key falls back to the env var named envName, and finally to a
// temporary key.
func LoadOrCreateKey(path, envName string, logger *zerolog.Logger) ([]byte, error) {
	key, err := loadOrCreateKeyFile(path, logger)
	if err == nil {
		return key, nil
	}
	logger.Error().Err(err).Str("path", path).Msg("error handling master key")

	if envName != "" {
		if envKey := os.Getenv(envName); envKey != "" {
			key := make([]byte, KeySize)
			copy(key, envKey)
			return key, nil
		}
	}

	logger.Warn().Msg("using temporary key, messages will not persist between restarts")
	return generateKey()
}

func loadOrCreateKeyFile(path string, logger *zerolog.Logger) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decErr := encoding.DecodeString(string(data))
		if decErr != nil || len(key) != KeySize {
			return nil, fmt.Errorf("invalid key file %s", path)
		}
		logger.Info().Msg("loaded existing master key")
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(encoding.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	logger.Info().Msg("generated new master key")
	return key, nil
}

func generateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}
