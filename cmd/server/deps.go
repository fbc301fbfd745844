package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/ashureev/chatrelay/internal/assistant"
	"github.com/ashureev/chatrelay/internal/config"
	"github.com/ashureev/chatrelay/internal/dedup"
	"github.com/ashureev/chatrelay/internal/identity"
	"github.com/ashureev/chatrelay/internal/provider"
	"github.com/ashureev/chatrelay/internal/relay"
	"github.com/ashureev/chatrelay/internal/store"
	"github.com/ashureev/chatrelay/internal/webhook"
)

type deps struct {
	dedup      dedup.Set
	journal    store.Repository
	provider   *provider.Client
	relay      *relay.Service
	reconciler *webhook.Reconciler
}

func (d *deps) Close() error {
	var errs []error
	if d.dedup != nil {
		errs = append(errs, d.dedup.Close())
	}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	return errors.Join(errs...)
}

// newProviderDeps builds only what webhook reconciliation needs.
func newProviderDeps(cfg *config.Config, logger *slog.Logger) *deps {
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	pc := provider.New(httpClient, cfg.Provider.BaseURL, cfg.Provider.Token)
	return &deps{
		provider:   pc,
		reconciler: webhook.NewReconciler(pc, cfg.Webhook.URL, cfg.Webhook.Name, logger),
	}
}

func newDeps(cfg *config.Config, logger *slog.Logger) (*deps, error) {
	d := newProviderDeps(cfg, logger)

	set, err := newDedupSet(cfg)
	if err != nil {
		return nil, err
	}
	d.dedup = set

	if cfg.JournalEnabled() {
		repo, err := store.NewSQLite(cfg.Journal.Path)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("initialize journal: %w", err)
		}
		d.journal = repo
	} else {
		d.journal = store.Noop{}
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	runner := assistant.NewOpenAIRunner(httpClient, cfg.Assistant.APIKey, cfg.Assistant.BaseURL, cfg.Assistant.AssistantID)
	poller := &assistant.Poller{
		Interval:    cfg.Poll.Interval,
		Multiplier:  cfg.Poll.Multiplier,
		MaxInterval: cfg.Poll.MaxInterval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		MaxWait:     cfg.Poll.MaxWait,
	}
	asst := assistant.NewService(runner, poller, logger)

	allow := identity.NewAllowlist(cfg.AllowedPhoneNumbers)
	resolver := identity.NewResolver(allow, d.provider, cfg.Provider.Transport, logger)

	var journal relay.Journal
	if cfg.JournalEnabled() {
		journal = d.journal
	}
	d.relay = relay.NewService(d.dedup, resolver, asst, d.provider, journal, relay.Options{
		Transport:    cfg.Provider.Transport,
		SendFallback: cfg.SendFallback,
	}, logger)

	logger.Info("Relay configured",
		"dedup_driver", cfg.Dedup.Driver,
		"dedup_capacity", cfg.Dedup.Capacity,
		"allowed_phones", allow.Len(),
		"journal", cfg.JournalEnabled(),
		"send_fallback", cfg.SendFallback,
	)
	return d, nil
}

func newDedupSet(cfg *config.Config) (dedup.Set, error) {
	opts := []dedup.Option{dedup.WithCapacity(cfg.Dedup.Capacity)}
	driver := dedup.Driver(cfg.Dedup.Driver)
	if driver == dedup.DriverRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Dedup.RedisAddr,
			Password: cfg.Dedup.RedisPassword,
			DB:       cfg.Dedup.RedisDB,
		})
		opts = append(opts, dedup.WithRedisClient(client), dedup.WithRedisKey(cfg.Dedup.RedisKey))
	}

	set, err := dedup.NewSet(driver, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize dedup set: %w", err)
	}
	return set, nil
}
