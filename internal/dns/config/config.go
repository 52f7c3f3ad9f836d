// Package config loads the application configuration from environment
// variables prefixed with SENTINEL_. Defaults are merged first, then the
// environment, and the result is validated before anything else starts.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds all runtime settings.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod". It selects the
	// log encoder.
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the UDP port the server binds to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// CacheSize is the maximum number of cached answer sets.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// DisableCache bypasses the answer cache entirely.
	DisableCache bool `koanf:"disable_cache"`

	// ZoneDir is the directory holding authoritative zone files.
	ZoneDir string `koanf:"zone_dir" validate:"required"`

	// ZoneTTL is the default record TTL for zone files that set none.
	ZoneTTL time.Duration `koanf:"zone_ttl" validate:"required"`

	// BlocklistFile is a plain-text blocklist to load. Empty disables blocking.
	BlocklistFile string `koanf:"blocklist_file"`

	// BlocklistDB is an optional compiled blocklist index. When set, the index
	// is used if it is newer than the blocklist file and rebuilt otherwise.
	BlocklistDB string `koanf:"blocklist_db"`

	// BlockedRCode is the response code for blocked names: "nxdomain" or
	// "refused". Ignored when SinkAddress is set.
	BlockedRCode string `koanf:"blocked_rcode" validate:"required,oneof=nxdomain refused"`

	// SinkAddress answers blocked address queries with a fixed IP instead of
	// an error response.
	SinkAddress string `koanf:"sink_address" validate:"omitempty,ip"`

	// NegativeRCode is the response code for a full miss when recursion is
	// unwanted or unavailable: "servfail" or "nxdomain".
	NegativeRCode string `koanf:"negative_rcode" validate:"required,oneof=servfail nxdomain"`

	// Recurse enables forwarding of unresolved queries to upstream servers.
	Recurse bool `koanf:"recurse"`

	// Servers is the list of upstream DNS servers in ip:port form, tried in
	// order.
	Servers []string `koanf:"servers" validate:"required,dive,ip_port"`

	// UpstreamTimeout bounds one recursive resolution across all servers.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"required"`

	// MaxChainDepth bounds CNAME chain expansion.
	MaxChainDepth int `koanf:"max_chain_depth" validate:"required,gte=1,lte=32"`
}

// DefaultAppConfig is the baseline configuration before environment overrides.
var DefaultAppConfig = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Port:            53,
	CacheSize:       1000,
	ZoneDir:         "/etc/sentinel/zones/",
	ZoneTTL:         5 * time.Minute,
	BlockedRCode:    "nxdomain",
	NegativeRCode:   "servfail",
	Recurse:         true,
	Servers:         []string{"1.1.1.1:53", "1.0.0.1:53"},
	UpstreamTimeout: 5 * time.Second,
	MaxChainDepth:   8,
}

// ListenAddr returns the UDP listen address derived from Port.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// validIPPort reports whether a field holds a valid "ip:port" value.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// envLoader loads SENTINEL_-prefixed environment variables, lowercasing keys
// and splitting list values on spaces or commas. Swappable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SENTINEL_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SENTINEL_"))
			value = strings.TrimSpace(value)

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}
			return key, value
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

// Load merges defaults and environment, then validates.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("ip_port", validIPPort); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
