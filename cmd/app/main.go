package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/TemirB/merch-checkout/internal/application/service"
	"github.com/TemirB/merch-checkout/internal/cache"
	"github.com/TemirB/merch-checkout/internal/config"
	"github.com/TemirB/merch-checkout/internal/database"
	"github.com/TemirB/merch-checkout/internal/httpapi"
	"github.com/TemirB/merch-checkout/internal/kafka"
	"github.com/TemirB/merch-checkout/internal/observability"
	"github.com/TemirB/merch-checkout/internal/paypal"
	"github.com/TemirB/merch-checkout/internal/pkg/retry"
)

func main() {
	app := &cli.App{
		Name:  "merch-checkout",
		Usage: "PayPal checkout backend for the merch storefront",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides HTTP_ADDR/PORT)",
					},
					&cli.StringFlag{
						Name:  "static-dir",
						Usage: "Directory with index.html and merch/index.html (overrides STATIC_DIR)",
					},
				},
				Action: serve,
			},
			{
				Name:   "orders",
				Usage:  "Print all recorded orders as JSON, newest first",
				Action: listOrders,
			},
			{
				Name:  "events",
				Usage: "Tail capture events from Kafka",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "group",
						Usage: "Consumer group (overrides KAFKA_GROUP)",
					},
				},
				Action: tailEvents,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	cfg := config.Load()
	if v := c.String("addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := c.String("static-dir"); v != "" {
		cfg.StaticDir = v
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := newMetrics(cfg.Metrics)

	store, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := cache.New(cfg.CacheCap)
	if err != nil {
		return err
	}
	warmed := records.Warm(ctx, store)
	logger.Info("Order cache warmed", zap.Int("records", warmed), zap.Int("capacity", cfg.CacheCap))

	var publisher service.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		topicCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := retry.Do(topicCtx, retry.Startup, func(ctx context.Context) error {
			return kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Kafka.Topic}, logger)
		}, logRetry(logger, "kafka topic"))
		cancel()
		if err != nil {
			logger.Warn("Can't ensure capture topic, publishing anyway",
				zap.String("topic", cfg.Kafka.Topic),
				zap.Error(err),
			)
		}
		pub := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger, metrics)
		defer pub.Close()
		publisher = pub
	} else {
		logger.Info("KAFKA_BROKERS not set, capture events disabled")
	}

	processor := paypal.New(cfg.PayPal, logger, metrics)
	svc := service.NewService(processor, store, records, publisher, cfg.Public(), logger, metrics)
	server := httpapi.New(svc, cfg.StaticDir, logger, metrics)

	logger.Info("Starting checkout server",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("paypal_env", cfg.PayPal.Env),
		zap.String("paypal_base", cfg.PayPal.BaseURL),
		zap.String("db_driver", cfg.Storage.Driver),
		zap.String("metrics", cfg.Metrics),
	)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func listOrders(c *cli.Context) error {
	cfg := config.Load()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := openStore(c.Context, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	orders, err := store.ListAll(c.Context)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(orders)
}

func tailEvents(c *cli.Context) error {
	cfg := config.Load()
	if len(cfg.Kafka.Brokers) == 0 {
		return cli.Exit("KAFKA_BROKERS is not set", 1)
	}
	group := cfg.Kafka.Group
	if v := c.String("group"); v != "" {
		group = v
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafka.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, group)
	defer reader.Close()

	kafka.NewConsumer(printer{w: c.App.Writer}, reader, logger).Start(ctx)
	return nil
}

// printer writes each capture event as one JSON line.
type printer struct {
	w io.Writer
}

func (p printer) Handle(_ context.Context, ev kafka.CaptureEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

type store interface {
	service.Storage
	Migrate(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.Storage, logger *zap.Logger) (store, func(), error) {
	var (
		s       store
		closeFn func()
	)
	switch cfg.Driver {
	case "postgres":
		var pool *pgxpool.Pool
		err := retry.Do(ctx, retry.Startup, func(ctx context.Context) error {
			var err error
			pool, err = database.Connect(ctx, cfg.PgDSN, logger)
			return err
		}, logRetry(logger, "postgres"))
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = database.NewPostgres(pool), pool.Close
	default:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, closeFn = db, func() { _ = db.Close() }
	}

	if err := s.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Info("Order store ready", zap.String("driver", cfg.Driver))
	return s, closeFn, nil
}

func logRetry(logger *zap.Logger, what string) func(int, error) {
	return func(attempt int, err error) {
		logger.Warn("Dependency not ready, retrying",
			zap.String("dependency", what),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func newMetrics(kind string) observability.Metrics {
	switch kind {
	case "prometheus":
		return observability.NewPrometheus()
	case "noop":
		return observability.NewNoop()
	default:
		return observability.NewInmem(1000)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	if lvl.Level() == zap.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
