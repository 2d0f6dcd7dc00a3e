package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/chuvpilo/pricer/internal/app/engine"
	feedv1 "github.com/chuvpilo/pricer/internal/domain/feed/v1"
	quotev1 "github.com/chuvpilo/pricer/internal/domain/quote/v1"
	snapshotv1 "github.com/chuvpilo/pricer/internal/domain/snapshot/v1"
	"github.com/chuvpilo/pricer/internal/usecase/feed"
	"github.com/chuvpilo/pricer/internal/usecase/orderbook"
	quotepublisher "github.com/chuvpilo/pricer/internal/usecase/quote-publisher"
	"github.com/chuvpilo/pricer/internal/usecase/snapshot"
	"github.com/chuvpilo/pricer/pkg/config"
	"github.com/chuvpilo/pricer/pkg/logger"
	"github.com/chuvpilo/pricer/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	cfg = &config.Config{}
	if err := config.Load(cfg); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	l, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.LogLevel)),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		panic(err)
	}

	log = l
}

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize components
	book := orderbook.NewOrderbook()

	orderReader, err := newOrderReader()
	if err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "init_order_reader",
		})
		return
	}

	var snapshotStore snapshotv1.Store
	var rclient redis.Client
	if cfg.SnapshotConfig.Enabled {
		redisConfig := redis.DefaultConfig()
		redisConfig.Addrs = []string{cfg.RedisConfig.Addrs}
		redisConfig.Password = cfg.RedisConfig.Password
		redisConfig.Username = cfg.RedisConfig.Username
		redisConfig.DB = cfg.RedisConfig.DB

		rclient = redis.NewClient(log, redisConfig)
		if err := rclient.Connect(ctx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "connect_redis",
			})
			return
		}
		snapshotStore = snapshot.NewSnapshotStore(rclient, cfg.Instrument, log)
	}

	var quotePublisher quotev1.QuotePublisher
	if cfg.QuotePublisherConfig.Enabled {
		quotePublisher = quotepublisher.NewPublisher(cfg.QuotePublisherConfig, log)
	}

	engine := app.NewEngineWithOptions(
		book,
		orderReader,
		snapshotStore,
		quotePublisher,
		log,
		cfg,
		&app.Options{
			SnapshotInterval:    cfg.SnapshotConfig.Interval,
			SnapshotOffsetDelta: cfg.SnapshotConfig.OffsetDelta,
		},
	)

	// Start the engine
	if err := engine.Start(ctx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "start_engine",
		})
		return
	}

	log.Info("Pricer started successfully", logger.Field{
		Key:   "instrument",
		Value: cfg.Instrument,
	}, logger.Field{
		Key:   "source",
		Value: string(cfg.Source),
	}, logger.Field{
		Key:   "targetSize",
		Value: cfg.TargetSize,
	})

	// Wait for a shutdown signal or for a finite feed to drain
	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.Field{
			Key:   "signal",
			Value: sig.String(),
		})
	case <-engine.Done():
	}

	// Cancel the main context to signal shutdown
	cancel()

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the engine gracefully
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Error(err, logger.Field{
			Key:   "action",
			Value: "stop_engine",
		})
	}

	if quotePublisher != nil {
		if err := quotePublisher.Close(); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "close_quote_publisher",
			})
		}
	}

	if rclient != nil {
		if err := rclient.Disconnect(shutdownCtx); err != nil {
			log.Error(err, logger.Field{
				Key:   "action",
				Value: "disconnect_redis",
			})
		}
	}

	log.Info("Pricer shutdown complete")
}

func newOrderReader() (feedv1.OrderReader, error) {
	switch cfg.Source {
	case config.SourceFile:
		return feed.NewFileReader(cfg.FeedFile, log)
	case config.SourceKafka:
		return feed.NewKafkaReader(cfg.KafkaConfig, log), nil
	default:
		return feed.NewStdinReader(log), nil
	}
}
