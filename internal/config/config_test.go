package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"ACT_ORIGIN_ID", "ACT_ACCESS_MODE", "ACT_REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CIRCUIT_BREAKER_ENABLED", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	id, err := OriginID()
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)

	mode, err := AccessMode()
	require.NoError(t, err)
	assert.Equal(t, domain.AccessRoleBased, mode)

	assert.Equal(t, 30*time.Second, RequestTimeout())
	assert.Equal(t, 100.0, RateLimitRPS())
	assert.Equal(t, 20, RateLimitBurst())
	assert.False(t, CircuitBreakerEnabled())
	assert.Equal(t, "info", LogLevel())
}

func TestOverrides(t *testing.T) {
	origin := uuid.New()
	t.Setenv("ACT_ORIGIN_ID", origin.String())
	t.Setenv("ACT_ACCESS_MODE", "Public")
	t.Setenv("ACT_REQUEST_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("CIRCUIT_BREAKER_ENABLED", "true")

	id, err := OriginID()
	require.NoError(t, err)
	assert.Equal(t, origin, id)

	mode, err := AccessMode()
	require.NoError(t, err)
	assert.Equal(t, domain.AccessPublic, mode)

	assert.Equal(t, 5*time.Second, RequestTimeout())
	assert.Equal(t, 2.5, RateLimitRPS())
	assert.Equal(t, 3, RateLimitBurst())
	assert.True(t, CircuitBreakerEnabled())
}

func TestInvalidValues(t *testing.T) {
	t.Setenv("ACT_ORIGIN_ID", "not-a-uuid")
	t.Setenv("ACT_ACCESS_MODE", "Everyone")
	t.Setenv("RATE_LIMIT_RPS", "-1")

	_, err := OriginID()
	assert.Error(t, err)

	_, err = AccessMode()
	assert.Error(t, err)

	assert.Equal(t, 100.0, RateLimitRPS())
}

func TestLoadReadsEnvAndSecret(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ACT_BASEURL=http://act.local\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("ACT_USER_ID=42\n"), 0o600))

	t.Setenv("ACT_ENV", envFile)
	t.Setenv("ACT_BASEURL", "")
	t.Setenv("ACT_USER_ID", "")
	os.Unsetenv("ACT_BASEURL")
	os.Unsetenv("ACT_USER_ID")

	require.NoError(t, Load())
	assert.Equal(t, "http://act.local", BaseURL())
	assert.Equal(t, "42", UserID())
}
