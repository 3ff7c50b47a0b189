// Command honyaku serves the Japanese to English reading aid over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaguanLabs/honyaku"
	"github.com/ZaguanLabs/honyaku/cache"
	"github.com/ZaguanLabs/honyaku/config"
	"github.com/ZaguanLabs/honyaku/metrics/prom"
	"github.com/ZaguanLabs/honyaku/provider"
	"github.com/ZaguanLabs/honyaku/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = honyaku.Version
	commit    = honyaku.GitCommit
	buildDate = honyaku.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("honyaku", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	configPath := fs.String("config", "", "Path to YAML config file")
	addr := fs.String("addr", "", "Listen address (overrides server.addr)")
	debug := fs.Bool("debug", false, "Debug mode: console logs, timings, /debug/cache")
	useMock := fs.Bool("mock", false, "Use the built-in mock provider instead of the API")
	printConfig := fs.Bool("print-config", false, "Print the effective configuration and exit")
	showVersion := fs.Bool("version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", honyaku.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Explicit flags win over file and environment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "debug":
			cfg.Server.Debug = *debug
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if *printConfig {
		fmt.Fprint(stdout, cfg.String())
		return nil
	}

	if !*useMock && cfg.Model.APIKey == "" {
		return fmt.Errorf("API key required (model.api_key, %s or %s env)", config.EnvAPIKey, config.EnvOpenAIAPIKey)
	}

	a, err := newApp(cfg, *useMock, stderr)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}

	var metricsLn net.Listener
	if cfg.Server.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", cfg.Server.MetricsAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen on %s: %w", cfg.Server.MetricsAddr, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx, ln, metricsLn)
}

// backend is a provider that can also read images.
type backend interface {
	honyaku.AIProvider
	honyaku.TextExtractor
}

// app holds the wired components of a running server.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	handler http.Handler
	metrics http.Handler // served on its own listener when metrics_addr is set
}

func newApp(cfg *config.Config, useMock bool, logOut io.Writer) (*app, error) {
	logger := newLogger(cfg.Server.Debug, logOut)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	store := cache.NewStore(cfg.Cache.Size,
		cache.WithMetrics(prom.New(reg, "honyaku", "cache", nil)),
	)

	var p backend
	if useMock {
		logger.Warn().Msg("using mock provider")
		p = provider.NewMockProvider()
	} else {
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey:          cfg.Model.APIKey,
			Model:           cfg.Model.Model,
			OCRModel:        cfg.Model.OCRModel,
			Temperature:     cfg.Model.Temperature,
			ReasoningEffort: cfg.Model.ReasoningEffort,
			BaseURL:         cfg.Model.BaseURL,
			Timeout:         cfg.Model.Timeout,
		})
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		p = honyaku.NewRateLimitedProvider(p, honyaku.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.Burst,
		})
	}
	if cfg.Retry.MaxRetries > 0 {
		p = honyaku.NewRetryableProvider(p, honyaku.RetryConfig{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		})
	}

	svc := honyaku.NewService(p,
		honyaku.WithCache(store),
		honyaku.WithExtractor(p),
		honyaku.WithLogger(logger),
		honyaku.WithMaxTextLength(cfg.Server.MaxTextLength),
	)

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithDebug(cfg.Server.Debug),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	}
	a := &app{cfg: cfg, logger: logger}
	if cfg.Server.MetricsAddr == "" {
		opts = append(opts, server.WithMetricsHandler(metricsHandler))
	} else {
		a.metrics = metricsHandler
	}

	srv, err := server.New(svc, opts...)
	if err != nil {
		return nil, err
	}
	a.handler = srv

	return a, nil
}

// serve runs the HTTP (and optional metrics) servers until ctx is done or
// one of them fails, then shuts both down.
func (a *app) serve(ctx context.Context, ln, metricsLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	servers := []*http.Server{{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	listeners := []net.Listener{ln}
	if metricsLn != nil && a.metrics != nil {
		servers = append(servers, &http.Server{
			Handler:           a.metrics,
			ReadHeaderTimeout: 10 * time.Second,
		})
		listeners = append(listeners, metricsLn)
	}

	for i := range servers {
		srv, l := servers[i], listeners[i]
		g.Go(func() error {
			a.logger.Info().Str("addr", l.Addr().String()).Msg("listening")
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", l.Addr(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newLogger(debug bool, w io.Writer) zerolog.Logger {
	if debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
