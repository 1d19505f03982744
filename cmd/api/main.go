// cmd/api/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/beststories/cache"
	"github.com/briangreenhill/beststories/hackernews"
	"github.com/briangreenhill/beststories/internal/config"
	"github.com/briangreenhill/beststories/internal/http/routes"
	"github.com/briangreenhill/beststories/internal/stories"
)

const shutdownTimeout = 10 * time.Second

var flagTopN int

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "beststories",
		Short:         "Hacker News best stories API",
		Long:          "beststories serves the n highest-scoring Hacker News best stories over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}

	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Print the n best stories as JSON and exit",
		RunE:  runTop,
	}
	topCmd.Flags().IntVarP(&flagTopN, "n", "n", 10, "number of stories to print")

	rootCmd.AddCommand(serveCmd, topCmd)
	return rootCmd
}

// app bundles the wired service graph shared by both commands.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	cache   *cache.Memory
	service *stories.Service
}

// newApp wires the service graph. Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}

	opts := []hackernews.Option{
		hackernews.WithBaseURL(cfg.HackerNews.BaseURL),
		hackernews.WithTimeout(cfg.HackerNews.Timeout),
		hackernews.WithRetry(cfg.HackerNews.MaxRetries, cfg.HackerNews.RetryBaseDelay),
		hackernews.WithLogger(logger),
	}
	if cfg.HackerNews.RateLimit > 0 {
		opts = append(opts, hackernews.WithRateLimit(cfg.HackerNews.RateLimit, cfg.Stories.MaxConcurrency))
	}
	client, err := hackernews.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create hacker news client: %w", err)
	}

	mem := cache.NewMemory(logger)
	svc := stories.New(stories.Options{
		Upstream: client,
		Cache:    mem,
		Gate:     stories.NewGate(cfg.Stories.MaxConcurrency),
		TTL:      cfg.Cache.TTL,
	})

	return &app{cfg: cfg, logger: logger, cache: mem, service: svc}, nil
}

func newLogger(cfg config.Config, out io.Writer) (zerolog.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(lvl).With().Timestamp().Logger(), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.cache.ReapLoop(ctx, a.cfg.Cache.ReapInterval)

	s := routes.New(routes.ServerOptions{
		Stories: a.service,
		Logger:  a.logger,
		MaxN:    a.cfg.Stories.MaxN,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runTop keeps stdout for the JSON result and logs to stderr.
func runTop(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	n := flagTopN
	if n > a.cfg.Stories.MaxN {
		n = a.cfg.Stories.MaxN
	}

	ctx := a.logger.WithContext(cmd.Context())
	best, err := a.service.BestStories(ctx, n)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(best)
}
