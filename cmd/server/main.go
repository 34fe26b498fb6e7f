package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"league-ratings/internal/config"
	"league-ratings/internal/constants"
	fxmodules "league-ratings/internal/fx"
	"league-ratings/internal/middleware"
	"league-ratings/internal/server"
	"league-ratings/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	ratingServer *server.RatingServer,
	ratingSvc *service.RatingService,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	path, handler := ratingServer.Handler()
	auth := middleware.Auth(cfg.JWTSecret, server.MutatingProcedures, logger)
	router.PathPrefix(path).Handler(auth(handler))

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "Error-Kind"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: middleware.RequestID(logger)(c.Handler(router)),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			ratingSvc.Wait()
			stats := ratingSvc.Stats()
			logger.Info().
				Int64("write_failures", stats.WriteFailures).
				Int64("history_failures", stats.HistoryFailures).
				Msg("server stopped gracefully")
			return nil
		},
	})
}
