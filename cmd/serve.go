package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/drillsergeant/internal/auth"
	"github.com/abhisek/drillsergeant/internal/coach"
	"github.com/abhisek/drillsergeant/internal/config"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/server"
	"github.com/abhisek/drillsergeant/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the drill backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ServerAddr = addr
		}

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, dbPath, err := openStore(cmd)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		logger.Info("database ready", "path", dbPath)

		srv, err := newServer(ctx, cfg, st, logger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, cfg.ServerAddr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides DRILL_SERVER_ADDR env var)")
}

// newServer wires the LLM provider, services and HTTP server over st.
func newServer(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*server.Server, error) {
	if cfg.InsecureSecret() {
		logger.Warn("DRILL_JWT_SECRET is not set; using the development secret")
	}

	llmCfg, err := llm.ResolveConfig()
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	provider, err := llm.NewProvider(ctx, llmCfg, st.EventRepo(), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("LLM provider ready", "provider", llmCfg.Provider, "model", provider.ModelID())

	coachSvc := coach.New(provider, st.Drills(), coach.DefaultConfig(), logger)
	authSvc := auth.New(st.Users(), auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), auth.DefaultHashParams, logger)

	return server.New(coachSvc, authSvc, st.Drills(), server.Options{
		SessionTTL:      cfg.SessionTTL,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	}), nil
}
