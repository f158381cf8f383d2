package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/99designs/keyring"
)

const keyringService = "hsr-monitor"

// SecretSource looks up secrets that were not provided through the environment.
// A missing secret is reported as ("", nil).
type SecretSource interface {
	Get(key string) (string, error)
}

// KeyringSource reads secrets from the system keyring under the hsr-monitor service.
type KeyringSource struct {
	open func() (keyring.Keyring, error)
}

// NewKeyringSource returns a SecretSource backed by the system keyring.
func NewKeyringSource() *KeyringSource {
	return &KeyringSource{open: openKeyring}
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/hsr-monitor/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("hsr-monitor-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get implements SecretSource.
func (s *KeyringSource) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// IsSecretKey reports whether key names a value Load falls back to the
// keyring for. Case is ignored.
func IsSecretKey(key string) bool {
	return slices.Contains(secretKeys, strings.ToLower(strings.TrimSpace(key)))
}

// Set stores a secret in the system keyring. Keys are stored upper-cased,
// the form Load looks them up in.
func (s *KeyringSource) Set(key, value string) error {
	if !IsSecretKey(key) {
		return fmt.Errorf("unknown secret %q", key)
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	ring, err := s.open()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// NoSecrets is a SecretSource that never has anything.
type NoSecrets struct{}

// Get implements SecretSource.
func (NoSecrets) Get(string) (string, error) { return "", nil }
