package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/johnnewto/seamap/cmd/tracker/internal/feed"
	"github.com/johnnewto/seamap/cmd/tracker/internal/gateway"
	"github.com/johnnewto/seamap/cmd/tracker/internal/generator"
	"github.com/johnnewto/seamap/cmd/tracker/internal/hub"
	"github.com/johnnewto/seamap/cmd/tracker/internal/observability"
	"github.com/johnnewto/seamap/cmd/tracker/internal/publisher"
	"github.com/johnnewto/seamap/pkg/config"
	"github.com/johnnewto/seamap/pkg/track"
)

const pageTitle = "Ōrākei Bay Marine Area Ship Tracking"

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Zap Logger
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Track storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open track store", zap.Error(err))
	}
	defer store.Close()

	// 4. Feed: generator + store + sinks
	clock := generator.RealClock{}
	gen := generator.NewWaypointGenerator(generator.NewRealRand(time.Now().UnixNano()), clock, generator.Params{
		StepDegrees: cfg.Track.StepDegrees,
		MinSpeed:    cfg.Track.MinSpeed,
		MaxSpeed:    cfg.Track.MaxSpeed,
	})

	wsHub := hub.NewHub(store, logger)
	f := feed.NewFeed(store, gen, clock, logger, wsHub)

	added, err := f.Seed(ctx, generator.SeedTrack(clock, cfg.Track.VesselName))
	if err != nil {
		logger.Fatal("Failed to seed track", zap.Error(err))
	}
	logger.Info("Track ready", zap.String("vessel", cfg.Track.VesselName), zap.Int("seeded", added))

	if cfg.Kafka.Enabled {
		kp := newKafkaPublisher(ctx, cfg, logger)
		defer func() {
			// Flush Kafka Buffer
			if err := kp.Close(); err != nil {
				logger.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		f.AddSink(kp)
	}

	// 5. HTTP surface
	mux := http.NewServeMux()
	feed.NewHandler(f, logger, feed.PageOptions{
		Title:        pageTitle,
		Vessel:       cfg.Track.VesselName,
		PollInterval: cfg.Track.PollInterval,
		Zoom:         cfg.Track.Zoom,
	}).Routes(mux)
	mux.Handle("GET /ws", gateway.Handler(wsHub, logger))

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	metricsSrv := observability.NewMetricsServer(cfg.App.MetricsPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		return serve(srv)
	})
	g.Go(func() error {
		logger.Info("Metrics Started", zap.String("port", cfg.App.MetricsPort))
		return serve(metricsSrv)
	})
	if cfg.Track.AutoAdvance > 0 {
		g.Go(func() error {
			f.Run(gctx, cfg.Track.AutoAdvance)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Error("Tracker stopped with error", zap.Error(err))
		return
	}
	logger.Info("Shutdown Complete")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (track.Store, error) {
	if cfg.Track.Backend == "memory" {
		return track.NewMemoryStore(cfg.Track.MaxHistory), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	return track.NewRedisStore(rdb, cfg.Track.VesselName, cfg.Track.MaxHistory), nil
}

func newKafkaPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) *publisher.KafkaPublisher {
	// Create Topic (Ensure it exists)
	dialer := &publisher.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 5 * time.Second}}
	publisher.NewTopicCreator(logger, dialer, generator.RealClock{}).Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true, // the feed never waits on the broker
	}
	return publisher.NewKafkaPublisher(writer, logger)
}
