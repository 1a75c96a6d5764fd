package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	adapthttp "bereal/internal/adapter/http"
	"bereal/internal/adapter/postgres"
	"bereal/internal/app"
	"bereal/internal/config"
	"bereal/internal/logging"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	accounts := app.NewAccountService(st.users, st.sessions, cfg.SessionTTL)
	posts := app.NewPostService(accounts, st.posts, st.blobs).WithMaxImagePixels(cfg.MaxImagePixels)
	feed := app.NewFeedService(st.posts, st.blobs, log.Named("feed"), cfg.FeedFetchConcurrency).
		WithMaxImagePixels(cfg.MaxImagePixels)
	comments := app.NewCommentService(st.posts, st.comments)

	oidcCfg, err := setupOIDC(ctx, cfg)
	if err != nil {
		return err
	}

	h := adapthttp.New(accounts, posts, feed, comments, log.Named("http"), adapthttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		SessionTTL:     cfg.SessionTTL,
		OIDC:           oidcCfg,
	}).Handler()

	go accounts.SweepSessions(ctx, cfg.SessionSweepInterval, log.Named("sessions"))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("store", cfg.Store),
			zap.String("sessionStore", cfg.SessionStore),
			zap.String("blobStore", cfg.BlobStore),
			zap.Bool("sso", oidcCfg.Enabled))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupOIDC(ctx context.Context, cfg config.Config) (adapthttp.OIDCConfig, error) {
	if !cfg.OIDCEnabled() {
		return adapthttp.OIDCConfig{}, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider: %w", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}
