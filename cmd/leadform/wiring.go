package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nodus-reseau/leadform/internal/config"
	"github.com/nodus-reseau/leadform/pkg/adapters/formpost"
	"github.com/nodus-reseau/leadform/pkg/adapters/memory"
	"github.com/nodus-reseau/leadform/pkg/adapters/redis"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/observability"
	"github.com/nodus-reseau/leadform/pkg/persistence/middleware"
	"github.com/nodus-reseau/leadform/pkg/ports"
	"github.com/nodus-reseau/leadform/pkg/session"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// backend is the wired session layer shared by the server frontends.
type backend struct {
	Sessions *wizard.Sessions
	Manager  *session.Manager
	Registry *prometheus.Registry

	close func() error
}

// Close releases the store connection.
func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// newSubmitter returns nil when no endpoint is configured; submissions then
// fail with wizard.ErrNoSubmitter.
func newSubmitter(cfg *config.Config, logger *slog.Logger) ports.Submitter {
	if cfg.Submit.Endpoint == "" {
		return nil
	}
	opts := []formpost.Option{
		formpost.WithTimeout(cfg.Submit.Timeout),
		formpost.WithLogger(logger),
	}
	if cfg.Submit.Multipart {
		opts = append(opts, formpost.WithMultipart())
	}
	return formpost.New(cfg.Submit.Endpoint, opts...)
}

// newStore picks Redis when an address is configured, memory otherwise, and
// applies the PII and encryption middlewares. The locker is nil for memory.
func newStore(cfg *config.Config) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
		closer func() error
	)
	if cfg.Redis.Addr != "" {
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		store, closer = rs, rs.Close
		locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix+"lock:")
	} else {
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if cfg.Encryption.ScrubSubmitted {
		pii, err := middleware.NewPIIMiddleware(middleware.PersonalFieldPatterns)
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.Encryption.Key != "" {
		active, err := middleware.ParseKey(cfg.Encryption.Key)
		if err != nil {
			return nil, nil, nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.Encryption.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("fallback key %d: %w", i, err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

// newBackend wires store, metrics, hooks and submitter into the session command layer.
func newBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	store, locker, closer, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	hooks := metrics.Hooks(logger)

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithHooks(hooks),
		session.WithSplashDelay(cfg.Form.SplashDelay),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	manager := session.NewManager(store, opts...)

	sessions := wizard.NewSessions(manager, wizard.Deliverer{
		Submitter: newSubmitter(cfg, logger),
		Hooks:     hooks,
		Logger:    logger,
	}, wizard.WithClientSelectDelay(cfg.Form.SelectDelay))

	if cfg.Redis.Addr != "" {
		logger.Info("session store ready", "store", "redis", "addr", cfg.Redis.Addr)
	} else {
		logger.Info("session store ready", "store", "memory")
	}
	return &backend{Sessions: sessions, Manager: manager, Registry: reg, close: closer}, nil
}

// controllerOptions configures a single-respondent wizard from cfg.
func controllerOptions(cfg *config.Config, logger *slog.Logger) []wizard.Option {
	opts := []wizard.Option{
		wizard.WithLogger(logger),
		wizard.WithSplashDelay(cfg.Form.SplashDelay),
		wizard.WithSelectDelay(cfg.Form.SelectDelay),
		wizard.WithDefaultSource(defaultSource(cfg)),
	}
	if sub := newSubmitter(cfg, logger); sub != nil {
		opts = append(opts, wizard.WithSubmitter(sub))
	}
	return opts
}

func defaultSource(cfg *config.Config) string {
	if cfg.Form.DefaultSource == "" {
		return domain.DefaultSource
	}
	return cfg.Form.DefaultSource
}
