package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/sentineldns/sentinel/internal/dns/common/clock"
	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/config"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/gateways/transport"
	"github.com/sentineldns/sentinel/internal/dns/gateways/upstream"
	"github.com/sentineldns/sentinel/internal/dns/gateways/wire"
	"github.com/sentineldns/sentinel/internal/dns/repos/blocklist"
	"github.com/sentineldns/sentinel/internal/dns/repos/dnscache"
	"github.com/sentineldns/sentinel/internal/dns/repos/zone"
	"github.com/sentineldns/sentinel/internal/dns/repos/zonestore"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

const (
	version = "0.1.0-dev"

	shutdownTimeout = 10 * time.Second
)

// Application holds the wired server components.
type Application struct {
	config    *config.AppConfig
	transport *transport.UDPTransport
	resolver  *resolver.Resolver
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"port":      cfg.Port,
		"zone_dir":  cfg.ZoneDir,
		"recurse":   cfg.Recurse,
		"servers":   cfg.Servers,
	}, "Starting sentineld")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Server failed")
	}

	log.Info(nil, "sentineld stopped gracefully")
}

// buildApplication constructs and wires every component.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()
	codec := wire.New(logger)

	zones, err := buildZoneStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}

	filter, err := buildBlocklist(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocklist: %w", err)
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build cache: %w", err)
	}

	var upstreamClient resolver.UpstreamClient
	if cfg.Recurse {
		client, err := upstream.New(upstream.Options{
			Servers: cfg.Servers,
			Timeout: cfg.UpstreamTimeout,
			Codec:   codec,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream client: %w", err)
		}
		upstreamClient = client
		log.Info(map[string]any{
			"servers": cfg.Servers,
			"timeout": cfg.UpstreamTimeout.String(),
		}, "Upstream DNS client configured")
	} else {
		log.Info(nil, "Recursion disabled; serving authoritative and cached data only")
	}

	blockedRCode, err := domain.ParseRCode(cfg.BlockedRCode)
	if err != nil {
		return nil, err
	}
	negativeRCode, err := domain.ParseRCode(cfg.NegativeRCode)
	if err != nil {
		return nil, err
	}
	var sink netip.Addr
	if cfg.SinkAddress != "" {
		sink, err = netip.ParseAddr(cfg.SinkAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid sink address %q: %w", cfg.SinkAddress, err)
		}
	}

	engine := resolver.New(resolver.Options{
		Blocklist:     filter,
		Zones:         zones,
		Cache:         cache,
		Upstream:      upstreamClient,
		Clock:         clock.RealClock{},
		Logger:        logger,
		MaxChainDepth: cfg.MaxChainDepth,
		BlockedRCode:  blockedRCode,
		NegativeRCode: negativeRCode,
		SinkAddress:   sink,
	})

	return &Application{
		config:    cfg,
		transport: transport.NewUDP(cfg.ListenAddr(), codec, logger),
		resolver:  engine,
	}, nil
}

// buildZoneStore loads every zone file and indexes it for lookup.
func buildZoneStore(cfg *config.AppConfig, logger log.Logger) (*zonestore.ZoneStore, error) {
	store := zonestore.New()
	zones, err := zone.LoadDirectory(cfg.ZoneDir, cfg.ZoneTTL, logger)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		store.PutZone(z)
	}
	log.Info(map[string]any{
		"zone_dir": cfg.ZoneDir,
		"zones":    len(zones),
		"records":  store.Count(),
	}, "Zone store initialized")
	return store, nil
}

// buildBlocklist assembles the block filter. With a compiled index
// configured, rules are served from it when it is at least as fresh as the
// source file; otherwise the file is parsed and the index rebuilt.
func buildBlocklist(cfg *config.AppConfig, logger log.Logger) (resolver.Blocklist, error) {
	if cfg.BlocklistFile == "" && cfg.BlocklistDB == "" {
		log.Info(nil, "No blocklist configured")
		return nil, nil
	}

	var rules []blocklist.Rule
	var err error

	switch {
	case cfg.BlocklistDB == "":
		rules, err = blocklist.ParseFile(cfg.BlocklistFile, logger)
		if err != nil {
			return nil, err
		}

	default:
		store, openErr := blocklist.OpenStore(cfg.BlocklistDB)
		if openErr != nil {
			return nil, openErr
		}
		defer store.Close()

		if stale, statErr := indexStale(cfg.BlocklistFile, store); statErr != nil {
			return nil, statErr
		} else if stale {
			rules, err = blocklist.ParseFile(cfg.BlocklistFile, logger)
			if err != nil {
				return nil, err
			}
			if err = store.Rebuild(rules, time.Now()); err != nil {
				return nil, fmt.Errorf("rebuild blocklist index: %w", err)
			}
			log.Info(map[string]any{
				"db":    cfg.BlocklistDB,
				"rules": len(rules),
			}, "Blocklist index rebuilt")
		} else {
			rules, err = store.Rules()
			if err != nil {
				return nil, err
			}
			log.Info(map[string]any{
				"db":    cfg.BlocklistDB,
				"rules": len(rules),
			}, "Blocklist loaded from index")
		}
	}

	return blocklist.NewFilter(rules, logger), nil
}

// indexStale reports whether the blocklist source file is newer than the
// compiled index. A missing source file never invalidates the index.
func indexStale(file string, store *blocklist.Store) (bool, error) {
	if file == "" {
		return false, nil
	}
	info, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.ModTime().After(store.UpdatedAt()), nil
}

// buildCache creates the answer cache unless disabled.
func buildCache(cfg *config.AppConfig) (resolver.Cache, error) {
	if cfg.DisableCache {
		log.Info(nil, "DNS response caching disabled")
		return nil, nil
	}
	cache, err := dnscache.New(int(cfg.CacheSize))
	if err != nil {
		return nil, err
	}
	log.Info(map[string]any{
		"type": "LRU",
		"size": cfg.CacheSize,
	}, "DNS response cache configured")
	return cache, nil
}

// Run starts the transport and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.resolver); err != nil {
		return fmt.Errorf("failed to start UDP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "udp",
	}, "DNS server started")

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		shutdownErr = multierr.Append(shutdownErr, app.transport.Stop())
		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timed out after %v", shutdownTimeout)
	}
}
