package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/edgepulse/edgepulse/internal/api"
	"github.com/edgepulse/edgepulse/internal/classify"
	"github.com/edgepulse/edgepulse/internal/config"
	"github.com/edgepulse/edgepulse/internal/ingest"
	"github.com/edgepulse/edgepulse/internal/pipeline"
	"github.com/edgepulse/edgepulse/internal/scrape"
	"github.com/edgepulse/edgepulse/internal/state"
	"github.com/edgepulse/edgepulse/internal/store"
	"github.com/edgepulse/edgepulse/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// .env is optional; secrets may come from the real environment.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("edgepulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"storage_driver", cfg.Storage.Driver,
		"mqtt", cfg.MQTT.Enabled(),
		"redis", cfg.Redis.Enabled(),
		"scrape_targets", len(cfg.Scrape.Targets),
	)
	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.Key() == "" {
		slog.Warn("auth mode is apikey but the key env is empty, API is open",
			"key_env", cfg.Server.Auth.KeyEnv)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// Classifier: the rule cascade is always available; the learned model
	// joins in when an artifact is configured and loads cleanly.
	rules := classify.NewRuleBased(cfg.Classifier.FeatureKeys)
	learned := classify.NewLearned(nil)
	if cfg.Classifier.ArtifactPath != "" {
		artifact, err := classify.LoadArtifact(cfg.Classifier.ArtifactPath)
		if err != nil {
			slog.Error("failed to load classifier artifact", "err", err)
			os.Exit(1)
		}
		if err := artifact.CheckOrder(cfg.Classifier.FeatureKeys); err != nil {
			slog.Error("classifier artifact does not match feature keys", "err", err)
			os.Exit(1)
		}
		learned.Swap(artifact)
		slog.Info("classifier artifact loaded", "path", cfg.Classifier.ArtifactPath)

		if cfg.Classifier.Watch {
			go func() {
				err := classify.WatchArtifact(ctx, cfg.Classifier.ArtifactPath, func(a *classify.Artifact) {
					if err := a.CheckOrder(cfg.Classifier.FeatureKeys); err != nil {
						slog.Error("reloaded artifact rejected", "err", err)
						return
					}
					learned.Swap(a)
				})
				if err != nil {
					slog.Error("artifact watcher stopped", "err", err)
				}
			}()
		}
	}

	pipe := pipeline.New(st, classify.NewChain(learned, rules), cfg.Classifier.FeatureKeys)

	if cfg.Redis.Enabled() {
		pub, err := state.NewPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password(), cfg.Redis.DB, cfg.Redis.StateTTL)
		if err != nil {
			slog.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		pipe.SetLiveState(pub)
		slog.Info("live state publishing enabled", "addr", cfg.Redis.Addr)
	}

	if cfg.MQTT.Enabled() {
		consumer := ingest.NewConsumer(ingest.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topics:   cfg.MQTT.Topics,
			QoS:      byte(cfg.MQTT.QoS),
			Username: cfg.MQTT.Username(),
			Password: cfg.MQTT.Password(),
		}, pipe)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("failed to start bus intake", "err", err)
			os.Exit(1)
		}
		slog.Info("bus intake connected", "broker", cfg.MQTT.Broker, "topics", cfg.MQTT.Topics)
	}

	if cfg.Scrape.Enabled() {
		poller := scrape.New(cfg.Scrape, pipe)
		go poller.Run(ctx)
		slog.Info("gateway scraper running",
			"targets", len(cfg.Scrape.Targets), "interval", cfg.Scrape.Interval)
	}

	// WebSocket hub broadcasting device summaries on an interval.
	hub := ws.New(st, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	httpMux := http.NewServeMux()
	httpMux.Handle("/ws", hub)
	httpMux.Handle("/", api.New(st, pipe, cfg.Server.Auth))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("edgepulse-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return store.Open(ctx, cfg.DSN())
	default:
		slog.Warn("using in-memory store, records will not survive a restart")
		return store.NewMemory(), nil
	}
}
