package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const (
	serviceName = "bugtracker"

	// TokenKey is the keyring key under which the API access token is kept.
	TokenKey = "access-token"

	// EmailKey holds the email of the signed-in account.
	EmailKey = "account-email"
)

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in a keyring.
type Store struct {
	ring keyring.Keyring
}

// Open returns a Store backed by the system keyring. configDir hosts the
// encrypted file backend used when no OS keyring is available.
func Open(configDir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("bugtracker-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "bugtracker " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Token returns the stored access token, or ErrNotFound.
func (s *Store) Token() (string, error) {
	return s.Get(TokenKey)
}

// SaveToken stores the access token.
func (s *Store) SaveToken(token string) error {
	return s.Set(TokenKey, token)
}

// DeleteToken removes the access token.
func (s *Store) DeleteToken() error {
	return s.Delete(TokenKey)
}

// Email returns the stored account email, or ErrNotFound.
func (s *Store) Email() (string, error) {
	return s.Get(EmailKey)
}

// SaveSession stores the access token and the account email.
func (s *Store) SaveSession(token, email string) error {
	if err := s.SaveToken(token); err != nil {
		return err
	}
	if email == "" {
		return s.Delete(EmailKey)
	}
	return s.Set(EmailKey, email)
}

// Clear removes everything stored for the signed-in account.
func (s *Store) Clear() error {
	if err := s.DeleteToken(); err != nil {
		return err
	}
	return s.Delete(EmailKey)
}
