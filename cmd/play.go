package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/drillsergeant/internal/app"
	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/config"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/session"
)

const logFileName = "drillsergeant.log"

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a drill session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func init() {
	addClientFlags(playCmd)
}

func runApp(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.APIURL = api
	}

	st, dbPath, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(dbPath), logFileName),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if embedded, _ := cmd.Flags().GetBool("embedded"); embedded {
		srv, err := newServer(gctx, cfg, st, logger.With("component", "server"))
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen for embedded server: %w", err)
		}
		cfg.APIURL = "http://" + ln.Addr().String()
		g.Go(func() error { return srv.Serve(gctx, ln) })
	}

	client := backend.NewClient(cfg.APIURL, nil)
	if err := ping(ctx, client, logger); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	ctrl, err := session.NewController(ctx, session.Options{
		Backend: client,
		Prefs:   prefs.New(st.KV(), logger),
		Logger:  logger,
	})
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	runErr := app.Run(ctx, ctrl, app.Options{Splash: true, Logger: logger})
	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("embedded server stopped", "error", err)
	}
	return runErr
}

// ping checks the backend before the UI starts. An unreachable backend is
// not fatal: every network action reports it in the UI. A server speaking
// another API major version is.
func ping(ctx context.Context, client *backend.Client, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	h, err := client.Ping(ctx)
	switch {
	case err == nil:
		logger.Info("backend reachable", "url", client.BaseURL(), "service", h.Service, "version", h.Version)
		return nil
	case errors.Is(err, backend.ErrIncompatible):
		return fmt.Errorf("backend at %s: %w", client.BaseURL(), err)
	default:
		logger.Warn("backend unreachable", "url", client.BaseURL(), "error", err)
		fmt.Fprintf(os.Stderr, "Backend at %s is not responding; drills will fail until it is up.\n", client.BaseURL())
		return nil
	}
}
