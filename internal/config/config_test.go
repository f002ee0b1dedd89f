package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg := MustLoad()

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "localhost:6379", cfg.AddressRedis)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 7, cfg.SoonThreshold)
	assert.Equal(t, 24*time.Hour, cfg.GracePeriod)
	assert.Equal(t, 30, cfg.GrantDays)
	assert.Equal(t, 7, cfg.ExtendDays)
	assert.Equal(t, 40, cfg.Fee)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, ":8080", cfg.AddressHTTP)
	assert.Equal(t, 10, cfg.RabbitMQMaxRetries)
}

func TestMustLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV", "local")
	t.Setenv("POLL_INTERVAL", "10s")
	t.Setenv("SOON_THRESHOLD_DAYS", "3")
	t.Setenv("GRACE_PERIOD", "1h")
	t.Setenv("SUBSCRIPTION_FEE", "100")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("PRIVATE_GROUP_ID", "-100123456")

	cfg := MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.SoonThreshold)
	assert.Equal(t, time.Hour, cfg.GracePeriod)
	assert.Equal(t, 100, cfg.Fee)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, int64(-100123456), cfg.PrivateGroupID)
}

func TestMustLoad_YamlFile(t *testing.T) {
	content := `
env: test
redis_connection:
  address: "redis:6380"
lifecycle:
  poll_interval: 15s
  grant_days: 14
telegram:
  private_group_id: -100777
http_server:
  address: ":9090"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg := MustLoad()

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "redis:6380", cfg.AddressRedis)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, 14, cfg.GrantDays)
	assert.Equal(t, int64(-100777), cfg.PrivateGroupID)
	assert.Equal(t, ":9090", cfg.AddressHTTP)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Lifecycle: Lifecycle{Timezone: "Asia/Kolkata"}}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	cfg.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}
