package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depvet/internal/server"
	"github.com/matzehuels/depvet/pkg/cache"
	"github.com/matzehuels/depvet/pkg/config"
	"github.com/matzehuels/depvet/pkg/integrations/npm"
	"github.com/matzehuels/depvet/pkg/integrations/osv"
	"github.com/matzehuels/depvet/pkg/scan"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string // listen address
	configPath string // config file (.depvet.toml by default)
	redisAddr  string // optional Redis address for a shared response cache
}

// serveCommand creates the serve command, exposing the scanner as an
// HTTP API. With --redis, registry and OSV responses are cached in a
// shared Redis instance instead of per-process files, so multiple
// replicas behind a load balancer deduplicate registry traffic.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080"}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scanner as an HTTP API",
		Long: `Serve starts an HTTP server exposing the scanner.

Endpoints:
  GET  /healthz                  liveness and version
  POST /api/scan                 scan a manifest, returns the report
  GET  /api/reports/{id}         retrieve a finished report
  GET  /api/reports/{id}/svg     render a report's dependency graph`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default .depvet.toml)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address for a shared response cache (e.g. localhost:6379)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	cfg, err := loadConfig(opts.configPath, "")
	if err != nil {
		return err
	}

	scanner, err := c.newServeScanner(cfg, opts.redisAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           server.New(scanner, c.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", opts.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServeScanner builds a Scanner whose registry clients share a Redis
// response cache when redisAddr is set, and fall back to the standard
// file cache otherwise.
func (c *CLI) newServeScanner(cfg config.Config, redisAddr string) (*scan.Scanner, error) {
	if redisAddr == "" {
		return c.newScanner(cfg, false)
	}

	redis, err := cache.NewRedisCache(redisAddr, time.Duration(cfg.Cache.TTL))
	if err != nil {
		return nil, err
	}
	c.Logger.Info("using shared response cache", "redis", redisAddr)

	fetcher := npm.NewClientWithCache(cfg.Registry.URL, redis.Namespace("npm:"))

	var vulns scan.VulnerabilitySource
	if cfg.Vulnerabilities.Enabled {
		vulns = osv.NewClientWithCache(cfg.Vulnerabilities.URL, redis.Namespace("osv:"))
	}

	return scan.New(fetcher, vulns, cfg, c.Logger), nil
}
