package config

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCoordinatorRequiresExactlyOneAuthMode(t *testing.T) {
	_, err := LoadCoordinator([]string{})
	assert.Error(t, err)

	c, err := LoadCoordinator([]string{"-auth-token=secret"})
	require.NoError(t, err)
	assert.Equal(t, "secret", c.SingleToken)
	assert.False(t, c.OIDCEnabled)

	_, err = LoadCoordinator([]string{"-auth-token=secret", "-oidc"})
	assert.Error(t, err)
}

func TestLoadCoordinatorGeneratesKeysWhenAbsent(t *testing.T) {
	c, err := LoadCoordinator([]string{"-auth-token=secret"})
	require.NoError(t, err)
	assert.Len(t, c.SessionKey, 64)
	assert.Len(t, c.PersonalAccessTokenSecret, 32)
}

func TestLoadCoordinatorDecodesProvidedSessionKey(t *testing.T) {
	key := make([]byte, 64)
	for i := range key {
		key[i] = byte(i)
	}
	encoded := base64.StdEncoding.EncodeToString(key)

	c, err := LoadCoordinator([]string{"-auth-token=secret", "-session-key=" + encoded})
	require.NoError(t, err)
	assert.Equal(t, key, c.SessionKey)
}

func TestLoadCoordinatorInvokeTimeout(t *testing.T) {
	c, err := LoadCoordinator([]string{"-auth-token=secret", "-invoke-timeout=5"})
	require.NoError(t, err)
	assert.Equal(t, "5s", c.InvokeTimeout.String())
}

func TestLoadWorkerSpawnRequiresSpecSource(t *testing.T) {
	_, err := LoadWorkerSpawn([]string{})
	assert.Error(t, err)

	w, err := LoadWorkerSpawn([]string{"-f=/tmp/spec.json"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/spec.json", w.SpecSource.FilePath)
}

func TestLoadWorkerSpawnDecodesMetadata(t *testing.T) {
	meta := "actor_host: w1:9000\nseed_host: coord:8080\nactor_id: abc\nsidecar_id: sc1\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(meta))

	w, err := LoadWorkerSpawn([]string{"-f=/tmp/spec.json", "-m=" + encoded})
	require.NoError(t, err)
	assert.Equal(t, "w1:9000", w.ActorHost)
	assert.Equal(t, "coord:8080", w.SeedHost)
	assert.Equal(t, "abc", w.ActorID)
	assert.Equal(t, "sc1", w.SidecarID)
}
