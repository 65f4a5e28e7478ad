package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useMemoryKeyring swaps the system keyring for an in-memory one.
func useMemoryKeyring(t *testing.T) keyring.Keyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	previous := open
	open = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { open = previous })
	return ring
}

func TestSetGetDelete(t *testing.T) {
	useMemoryKeyring(t)

	require.NoError(t, Set(APIKeyName, "plane_api_123"))

	got, err := Get(APIKeyName)
	require.NoError(t, err)
	assert.Equal(t, "plane_api_123", got)

	require.NoError(t, Delete(APIKeyName))
	_, err = Get(APIKeyName)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestResolveAPIKey(t *testing.T) {
	useMemoryKeyring(t)

	key, err := ResolveAPIKey("from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key, "a configured key wins without touching the keyring")

	_, err = ResolveAPIKey("")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	require.NoError(t, Set(APIKeyName, "from-keyring"))
	key, err = ResolveAPIKey("")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", key)
}

func TestResolveAPIKey_KeyringUnavailable(t *testing.T) {
	previous := open
	open = func() (keyring.Keyring, error) { return nil, errors.New("no backend") }
	t.Cleanup(func() { open = previous })

	_, err := ResolveAPIKey("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Contains(t, err.Error(), "no backend")
}
