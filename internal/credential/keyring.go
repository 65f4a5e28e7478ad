package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "planeissues"

// APIKeyName is the keyring entry holding the Plane API key.
const APIKeyName = "plane-api-key"

// ErrNoAPIKey is returned when no API key is configured or stored.
var ErrNoAPIKey = errors.New("no Plane API key: set PLANE_API_KEY or run login")

// open returns the keyring to use; tests replace it with an in-memory ring.
var open = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/planeissues/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("planeissues-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "Plane API key",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// ResolveAPIKey returns configured when set, otherwise the key stored in
// the keyring.
func ResolveAPIKey(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	key, err := Get(APIKeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("%w (%v)", ErrNoAPIKey, err)
	}
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}
