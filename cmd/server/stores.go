package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/database"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/logging"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/maintenance"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/providers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/repository"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/services"
	"gorm.io/gorm"
)

// stores holds the persistence chosen by TOKEN_STORE. db is nil in memory mode.
type stores struct {
	db       *gorm.DB
	redis    *repository.RedisTokenRepo
	logs     *repository.LogRepo
	dbLog    *logging.DBHandler
	accounts services.AccountStore
	tokens   services.TokenStore
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.TokenStore == "memory" {
		slog.Warn("using in-memory stores, data is lost on restart")
		return &stores{
			accounts: repository.NewMemoryAccountRepo(),
			tokens:   repository.NewMemoryTokenRepo(),
		}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	st := &stores{
		db:       db,
		logs:     repository.NewLogRepo(db),
		accounts: repository.NewAccountRepo(db),
		tokens:   repository.NewTokenRepo(db),
	}

	if cfg.TokenStore == "redis" {
		st.redis = repository.NewRedisTokenRepo(repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.redis.Ping(pctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
		}
		st.tokens = st.redis
	}
	return st, nil
}

// logPurger returns an untyped nil without a database so the sweeper skips logs.
func (s *stores) logPurger() maintenance.LogPurger {
	if s.logs == nil {
		return nil
	}
	return s.logs
}

func (s *stores) ping() func(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := database.Ping(ctx, s.db); err != nil {
			return err
		}
		if s.redis != nil {
			return s.redis.Ping(ctx)
		}
		return nil
	}
}

func (s *stores) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			slog.Error("database close error", "error", err)
		}
	}
}

// newGateway registers a verifier for each provider that is configured.
// Facebook and Instagram need no client credentials.
func newGateway(ctx context.Context, cfg *config.Config) *providers.Gateway {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	verifiers := []providers.Verifier{
		providers.NewFacebook(cfg.FacebookGraphURL, httpClient),
		providers.NewInstagram(cfg.InstagramGraphURL, cfg.InstagramPlaceholderDomain, httpClient),
	}
	if cfg.GoogleClientID != "" {
		verifiers = append(verifiers, providers.NewGoogle(ctx, providers.GoogleConfig{ClientID: cfg.GoogleClientID}))
	} else {
		slog.Warn("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}
	if len(cfg.AppleClientIDs) > 0 {
		verifiers = append(verifiers, providers.NewApple(providers.AppleConfig{
			ClientIDs: cfg.AppleClientIDs,
			KeysURL:   cfg.AppleKeysURL,
			Timeout:   cfg.ProviderTimeout,
		}))
	} else {
		slog.Warn("APPLE_CLIENT_IDS not set, apple sign-in disabled")
	}

	return providers.NewGateway(cfg.ProviderTimeout, verifiers...)
}
