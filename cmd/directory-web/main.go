package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/waste-directory/internal/api"
	"github.com/pribylovaa/waste-directory/internal/config"
	"github.com/pribylovaa/waste-directory/internal/guard"
	webhttp "github.com/pribylovaa/waste-directory/internal/http"
	"github.com/pribylovaa/waste-directory/internal/http/handlers"
	"github.com/pribylovaa/waste-directory/internal/metrics"
	"github.com/pribylovaa/waste-directory/internal/session"
	"github.com/pribylovaa/waste-directory/internal/session/tokenstore"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting directory-web", "env", cfg.Env, "backend", cfg.Backend.BaseURL)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	client, err := api.New(api.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Timeouts.Backend,
		UserAgent: cfg.Backend.UserAgent,
		RPS:       cfg.Backend.RPS,
		Burst:     cfg.Backend.Burst,
		Logger:    log,
		Metrics:   m,
	})
	if err != nil {
		log.Error("api_client_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	tokens, err := openTokenStore(rootCtx, cfg.Session)
	if err != nil {
		log.Error("token_store_init_failed", slog.String("store", cfg.Session.Store), slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if c, ok := tokens.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				log.Warn("token_store_close_failed", slog.String("err", cerr.Error()))
			}
		}
	}()

	log.Info("token_store_initialized", slog.String("store", cfg.Session.Store))

	sess := session.New(client, tokens, log)
	sess.SetMetrics(m)
	client.Bind(sess)

	var ready int32 // 0 — not ready; 1 — ready

	// Restore идёт в фоне: до его завершения view ждут, а /healthz отвечает 503.
	go func() {
		ctx, cancel := context.WithTimeout(rootCtx, cfg.Timeouts.Restore)
		defer cancel()

		sess.Restore(ctx)
		atomic.StoreInt32(&ready, 1)
		log.Info("session_ready", slog.Bool("authenticated", sess.Authenticated()))
	}()

	views := webhttp.NewRouter(
		handlers.New(client, sess, cfg.Directory.PageSize),
		guard.New(sess, "/login"),
		webhttp.Options{Logger: log, Timeout: cfg.Timeouts.Request},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", views)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// openTokenStore выбирает хранилище токена по конфигу.
func openTokenStore(ctx context.Context, cfg config.SessionConfig) (session.TokenStore, error) {
	switch cfg.Store {
	case config.StoreFile:
		path, err := cfg.Path()
		if err != nil {
			return nil, err
		}
		return tokenstore.NewFile(path, cfg.Key)
	case config.StoreRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tokenstore.NewRedis(pingCtx, cfg.RedisURL, cfg.Key, cfg.TTL)
	case config.StoreMemory:
		return tokenstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
