package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 53, cfg.Port)
	assert.Equal(t, uint(1000), cfg.CacheSize)
	assert.False(t, cfg.DisableCache)
	assert.Equal(t, "/etc/sentinel/zones/", cfg.ZoneDir)
	assert.Equal(t, 5*time.Minute, cfg.ZoneTTL)
	assert.Equal(t, "nxdomain", cfg.BlockedRCode)
	assert.Equal(t, "servfail", cfg.NegativeRCode)
	assert.True(t, cfg.Recurse)
	assert.Equal(t, []string{"1.1.1.1:53", "1.0.0.1:53"}, cfg.Servers)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 8, cfg.MaxChainDepth)
	assert.Equal(t, ":53", cfg.ListenAddr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SENTINEL_ENV", "dev")
	t.Setenv("SENTINEL_LOG_LEVEL", "debug")
	t.Setenv("SENTINEL_PORT", "9953")
	t.Setenv("SENTINEL_CACHE_SIZE", "5000")
	t.Setenv("SENTINEL_ZONE_DIR", "/tmp/zones/")
	t.Setenv("SENTINEL_ZONE_TTL", "1m")
	t.Setenv("SENTINEL_BLOCKLIST_FILE", "/tmp/blocklist.txt")
	t.Setenv("SENTINEL_BLOCKLIST_DB", "/tmp/blocklist.db")
	t.Setenv("SENTINEL_BLOCKED_RCODE", "refused")
	t.Setenv("SENTINEL_NEGATIVE_RCODE", "nxdomain")
	t.Setenv("SENTINEL_SINK_ADDRESS", "0.0.0.0")
	t.Setenv("SENTINEL_SERVERS", "8.8.8.8:53 9.9.9.9:53")
	t.Setenv("SENTINEL_UPSTREAM_TIMEOUT", "2s")
	t.Setenv("SENTINEL_MAX_CHAIN_DEPTH", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9953, cfg.Port)
	assert.Equal(t, uint(5000), cfg.CacheSize)
	assert.Equal(t, "/tmp/zones/", cfg.ZoneDir)
	assert.Equal(t, time.Minute, cfg.ZoneTTL)
	assert.Equal(t, "/tmp/blocklist.txt", cfg.BlocklistFile)
	assert.Equal(t, "/tmp/blocklist.db", cfg.BlocklistDB)
	assert.Equal(t, "refused", cfg.BlockedRCode)
	assert.Equal(t, "nxdomain", cfg.NegativeRCode)
	assert.Equal(t, "0.0.0.0", cfg.SinkAddress)
	assert.Equal(t, []string{"8.8.8.8:53", "9.9.9.9:53"}, cfg.Servers)
	assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 12, cfg.MaxChainDepth)
	assert.Equal(t, ":9953", cfg.ListenAddr())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad env":            {"SENTINEL_ENV", "staging"},
		"bad log level":      {"SENTINEL_LOG_LEVEL", "verbose"},
		"bad port":           {"SENTINEL_PORT", "70000"},
		"bad blocked rcode":  {"SENTINEL_BLOCKED_RCODE", "servfail"},
		"bad negative rcode": {"SENTINEL_NEGATIVE_RCODE", "refused"},
		"bad sink address":   {"SENTINEL_SINK_ADDRESS", "not-an-ip"},
		"bad server":         {"SENTINEL_SERVERS", "1.1.1.1"},
		"bad depth":          {"SENTINEL_MAX_CHAIN_DEPTH", "99"},
	}
	for label, kv := range cases {
		t.Run(label, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidIPPort(t *testing.T) {
	valid := []string{"1.1.1.1:53", "[2606:4700:4700::1111]:53", "127.0.0.1:9953"}
	for _, addr := range valid {
		t.Run(addr, func(t *testing.T) {
			t.Setenv("SENTINEL_SERVERS", addr)
			_, err := Load()
			assert.NoError(t, err)
		})
	}

	invalid := []string{"1.1.1.1", "example.com:53", "1.1.1.1:0", "1.1.1.1:99999"}
	for _, addr := range invalid {
		t.Run(addr, func(t *testing.T) {
			t.Setenv("SENTINEL_SERVERS", addr)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
