package fx

import (
	"context"

	"league-ratings/internal/api"
	"league-ratings/internal/config"
	"league-ratings/internal/constants"
	"league-ratings/internal/database"
	"league-ratings/internal/lock"
	"league-ratings/internal/logger"
	"league-ratings/internal/repository"
	"league-ratings/internal/server"
	"league-ratings/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideStore opens the configured storage backend. The SQL database is
// closed when the app stops.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (service.Store, error) {
	if cfg.StoreBackend == config.BackendSupabase {
		logger.Info().Str("url", cfg.SupabaseURL).Msg("using supabase store")
		return api.NewSupabaseClient(cfg, logger), nil
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
	return repository.NewStore(db, logger), nil
}

// ProvideLocker uses Redis when it is configured and reachable, in-process
// locks otherwise.
func ProvideLocker(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) lock.Locker {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	client := lock.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, logger)
	if client == nil {
		return lock.NewLocalLocker()
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return lock.NewRedisLocker(client, cfg.MatchLockTTL, logger)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	// storage
	fx.Provide(ProvideStore),
	fx.Provide(ProvideLocker),
	// svc
	fx.Provide(service.NewRatingService),
	fx.Provide(service.NewMatchService),
	// server
	fx.Provide(server.NewRatingServer),
)
