package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/history"
	"github.com/vango-dev/vroute/pkg/router"
	"github.com/vango-dev/vroute/pkg/server"
)

// serveOptions are the flags of the serve command.
type serveOptions struct {
	address string
	watch   bool

	s3Bucket    string
	s3Key       string
	s3Region    string
	s3Endpoint  string
	s3PathStyle bool
}

func serveCmd(opts *globalOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route table over HTTP",
		Long: `Start an HTTP server around a router built from the route table.

The server exposes matching, path generation and navigation under /api,
a WebSocket state stream at /ws and Prometheus metrics.

With --watch the route table is reloaded whenever its file changes.
With --s3-bucket and --s3-key the table is read from S3; credentials
come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.

Examples:
  vroute serve
  vroute serve --addr :8080 --watch
  vroute serve --s3-bucket routes --s3-key prod/routes.yaml --s3-region eu-west-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, so)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&so.address, "addr", "a", "", "Address to listen on (default from the route table)")
	flags.BoolVarP(&so.watch, "watch", "w", false, "Reload the route table when its file changes")
	flags.StringVar(&so.s3Bucket, "s3-bucket", "", "S3 bucket holding the route table")
	flags.StringVar(&so.s3Key, "s3-key", "", "S3 key of the route table")
	flags.StringVar(&so.s3Region, "s3-region", "us-east-1", "S3 region")
	flags.StringVar(&so.s3Endpoint, "s3-endpoint", "", "S3 endpoint URL, for S3-compatible stores")
	flags.BoolVar(&so.s3PathStyle, "s3-path-style", false, "Use path-style S3 addressing")

	return cmd
}

func runServe(ctx context.Context, opts *globalOptions, so *serveOptions) error {
	cfg, err := so.loadConfig(ctx, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := opts.newLogger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	srv := newServer(cfg, so.address, logger)
	r := srv.Router()
	defer r.Stop()

	if so.watch {
		if cfg.Path() == "" {
			return errors.New("E140").WithDetail("--watch needs a route table file")
		}
		w, err := config.NewWatcher(cfg.Path(), logger)
		if err != nil {
			return errors.New("E120").WithDetail("could not watch " + cfg.Path()).Wrap(err)
		}
		go func() {
			_ = w.Run(ctx, func(next *config.Config) {
				if err := r.SetRoutes(next.Routes()); err != nil {
					logger.Warn("reloaded route table does not resolve", "error", err)
				}
			})
		}()
	}

	printBanner(os.Stdout)
	success(os.Stdout, "serving %s (%d routes)", cfg.Source(), len(cfg.Entries))
	info(os.Stdout, "http://%s", srv.Config().Address)
	fmt.Println()

	if err := srv.Run(ctx); err != nil {
		return errors.New("E142").Wrap(err)
	}
	return nil
}

// loadConfig reads the route table from S3 when a bucket is given, and
// from the local file system otherwise.
func (so *serveOptions) loadConfig(ctx context.Context, opts *globalOptions) (*config.Config, error) {
	if so.s3Bucket == "" && so.s3Key == "" {
		return opts.loadConfig()
	}
	if so.s3Bucket == "" || so.s3Key == "" {
		return nil, errors.New("E140").WithDetail("--s3-bucket and --s3-key go together")
	}

	client := config.NewS3Client(config.S3Settings{
		Region:          so.s3Region,
		Endpoint:        so.s3Endpoint,
		UsePathStyle:    so.s3PathStyle,
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	})
	return config.LoadS3(ctx, client, so.s3Bucket, filepath.ToSlash(so.s3Key))
}

// newServer wires a started router and its server from a validated route
// table. Router, matcher and HTTP metrics share one registry.
func newServer(cfg *config.Config, address string, logger *slog.Logger) *server.Server {
	reg := server.NewRegistry()

	matcher := router.NewMatcher(
		router.WithMetrics(router.NewMetrics("vroute", reg)),
		router.WithLogger(logger),
	)
	h := history.NewMemory(append(cfg.HistoryOptions(), history.WithLogger(logger))...)
	r := router.NewRouter(h, matcher, cfg.Routes(), router.WithRouterLogger(logger))
	if err := r.Start(); err != nil {
		logger.Warn("initial location does not resolve", "path", h.Location().Path(), "error", err)
	}

	if address == "" {
		address = cfg.Server.Address
	}
	return server.New(r, &server.Config{
		Address:           address,
		MetricsPath:       cfg.Server.MetricsPath,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeoutDuration(),
		ShutdownTimeout:   cfg.Server.ShutdownTimeoutDuration(),
	}, server.WithRegistry(reg), server.WithLogger(logger))
}
