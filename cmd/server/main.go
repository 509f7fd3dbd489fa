package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sedoy107/iot-dex/config"
	"github.com/sedoy107/iot-dex/domain/asset"
	"github.com/sedoy107/iot-dex/infra/journal"
	"github.com/sedoy107/iot-dex/infra/kafka"
	"github.com/sedoy107/iot-dex/infra/logger"
	"github.com/sedoy107/iot-dex/infra/metrics"
	"github.com/sedoy107/iot-dex/jobs/broadcaster"
	"github.com/sedoy107/iot-dex/service"
)

// tradeFeed publishes market-data ticks through the kafka-go producer.
type tradeFeed struct {
	producer *kafka.Producer
}

func (f tradeFeed) Publish(t service.TradeTick) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return f.producer.Send(context.Background(), []byte(t.Pair), b)
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("logger init failed", zap.Error(err))
	}
	defer lg.Sync()

	// ---------------- Journal ----------------

	jnl, err := journal.Open(cfg.Journal.Dir)
	if err != nil {
		lg.Fatal("journal open failed", zap.Error(err))
	}
	defer jnl.Close()

	// ---------------- Market data feed ----------------

	var feed service.TradeFeed
	if cfg.Kafka.TradesTopic != "" {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic)
		defer p.Close()
		feed = tradeFeed{producer: p}
	}

	// ---------------- Exchange ----------------

	m := metrics.New(prometheus.DefaultRegisterer)
	ex := service.New(asset.Account(cfg.Server.Owner), service.Options{
		Logger:  lg,
		Events:  jnl,
		Trades:  feed,
		Metrics: m,
	})

	owner := asset.Account(cfg.Server.Owner)
	for _, sym := range cfg.Bootstrap.Tokens {
		t, err := asset.TickerFromString(sym)
		if err != nil {
			lg.Fatal("bad bootstrap token", zap.String("token", sym), zap.Error(err))
		}
		if err := ex.AddToken(owner, t); err != nil {
			lg.Fatal("bootstrap token failed", zap.String("token", sym), zap.Error(err))
		}
	}
	for _, p := range cfg.Bootstrap.Pairs {
		base, err := asset.TickerFromString(p.Base)
		if err != nil {
			lg.Fatal("bad bootstrap pair", zap.String("base", p.Base), zap.Error(err))
		}
		quote, err := asset.TickerFromString(p.Quote)
		if err != nil {
			lg.Fatal("bad bootstrap pair", zap.String("quote", p.Quote), zap.Error(err))
		}
		if err := ex.AddPair(owner, base, quote); err != nil {
			lg.Fatal("bootstrap pair failed",
				zap.String("base", p.Base), zap.String("quote", p.Quote), zap.Error(err))
		}
	}

	// ---------------- Background jobs ----------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bc, err := broadcaster.New(jnl, cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, lg)
	if err != nil {
		lg.Fatal("broadcaster init failed", zap.Error(err))
	}
	defer bc.Close()
	bc.Start(ctx)

	if cfg.Server.MetricsApi != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Server.MetricsApi, mux); err != nil {
				lg.Error("metrics server exited", zap.Error(err))
			}
		}()
	}

	// ---------------- Order ingress ----------------

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID)
	defer consumer.Close()

	lg.Info("exchange running",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("orders_topic", cfg.Kafka.OrdersTopic))

	err = consumer.Run(ctx, func(_ context.Context, _, value []byte) error {
		var cmd service.OrderCommand
		if err := json.Unmarshal(value, &cmd); err != nil {
			lg.Warn("bad order command, skipping", zap.Error(err))
			return nil
		}
		if _, err := ex.Apply(cmd); err != nil {
			// Business rejections are answered through events; only log.
			lg.Info("command rejected",
				zap.String("op", cmd.Op),
				zap.String("trader", cmd.Trader),
				zap.Error(err))
		}
		return nil
	})
	if err != nil {
		lg.Error("consumer exited", zap.Error(err))
		os.Exit(1)
	}
}
