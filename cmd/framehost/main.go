package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openframes/framehost/internal/config"
	"github.com/openframes/framehost/internal/debughub"
	"github.com/openframes/framehost/internal/logx"
	"github.com/openframes/framehost/internal/metrics"
	"github.com/openframes/framehost/internal/proxy"
	"github.com/openframes/framehost/internal/sessionstore"
	"github.com/openframes/framehost/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.ServerConfig
	// Resolve config with precedence: defaults < file < env < args
	cfg.SetDefaults()
	cfg.ApplyEnv() // allows CONFIG_FILE from env
	// Allow --config to override file path before loading it
	for i := 1; i < len(os.Args); i++ {
		a := os.Args[i]
		if a == "--config" && i+1 < len(os.Args) {
			cfg.ConfigFile = os.Args[i+1]
			break
		}
		if strings.HasPrefix(a, "--config=") {
			cfg.ConfigFile = strings.TrimPrefix(a, "--config=")
			break
		}
	}
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFile(cfg.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logx.Log.Fatal().Err(err).Str("path", cfg.ConfigFile).Msg("load config")
		}
	}
	// Overlay env (after file) and then bind flags
	cfg.ApplyEnv()
	cfg.BindFlagsFromCurrent()
	flag.Parse()
	if *showVersion {
		fmt.Printf("framehost version=%s sha=%s date=%s\n", version.Version, version.BuildSHA, version.BuildDate)
		return
	}

	logx.Configure(cfg.LogLevel)

	preg := prometheus.NewRegistry()
	metrics.Register(preg)
	metrics.SetServerBuildInfo(version.Version, version.BuildSHA, version.BuildDate)

	var sessions sessionstore.Store = sessionstore.NewMemoryStore(0)
	if cfg.RedisAddr != "" {
		rs, err := sessionstore.NewRedisStore(cfg.RedisAddr, 0)
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("connect redis")
		}
		sessions = rs
		logx.Log.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
	}

	var hub *debughub.Hub
	if cfg.DebugHub {
		hub = debughub.NewHub()
	}

	handler := proxy.New(cfg, proxy.Options{
		Sessions: sessions,
		Hub:      hub,
		Client:   &http.Client{Timeout: cfg.RequestTimeout},
		Registry: preg,
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: handler}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" && cfg.MetricsAddr != fmt.Sprintf(":%d", cfg.Port) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(preg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logx.Log.Warn().Msg("termination requested")
		cancel()
	}()
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			logx.Log.Error().Err(err).Msg("server shutdown")
		}
	}()
	if metricsSrv != nil {
		go func() {
			<-ctx.Done()
			if err := metricsSrv.Shutdown(context.Background()); err != nil {
				logx.Log.Error().Err(err).Msg("metrics server shutdown")
			}
		}()
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	logx.Log.Info().Int("port", cfg.Port).Str("version", version.Version).Msg("framehost server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Log.Fatal().Err(err).Msg("server")
	}
}
