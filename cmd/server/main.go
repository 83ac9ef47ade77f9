package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Spok95/warehouse-ledger/internal/analytics"
	"github.com/Spok95/warehouse-ledger/internal/api"
	"github.com/Spok95/warehouse-ledger/internal/bot"
	"github.com/Spok95/warehouse-ledger/internal/config"
	httpx "github.com/Spok95/warehouse-ledger/internal/infra/http"
	"github.com/Spok95/warehouse-ledger/internal/infra/logger"
	"github.com/Spok95/warehouse-ledger/internal/infra/metrics"
	"github.com/Spok95/warehouse-ledger/internal/infra/notify"
	"github.com/Spok95/warehouse-ledger/internal/recorder"
	"github.com/Spok95/warehouse-ledger/internal/report"
	"github.com/Spok95/warehouse-ledger/internal/store"
	"github.com/Spok95/warehouse-ledger/internal/store/memory"
	"github.com/Spok95/warehouse-ledger/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "config/example.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	loc, err := cfg.Location()
	if err != nil {
		log.Error("bad timezone", "err", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	var (
		notifier recorder.Notifier = notify.Nop{}
		botAPI   *tgbotapi.BotAPI
	)
	if cfg.Telegram.Token != "" {
		botAPI, err = notify.Dial(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			os.Exit(1)
		}
		log.Info("telegram authorized", "bot", botAPI.Self.UserName)
		notifier = notify.NewTelegram(botAPI, cfg.Telegram.AdminChatID, log)
	}

	rec := recorder.New(st, log,
		recorder.WithPolicy(recorder.Policy{
			DefaultTargetStock: cfg.Ledger.DefaultTargetStock,
			CodePrefix:         cfg.Ledger.CodePrefix,
			CodeAttempts:       cfg.Ledger.CodeAttempts,
			AutoCreateItems:    cfg.Ledger.AutoCreateItems,
		}),
		recorder.WithNotifier(notifier),
		recorder.WithMetrics(m),
		recorder.WithLocation(loc),
	)
	engine := analytics.New(st, log, m).WithForecastDays(cfg.Ledger.ForecastDays)
	reports := report.NewBuilder(st, engine)
	handler := api.New(st, rec, engine, reports, log)

	if botAPI != nil {
		b := bot.New(botAPI, log, cfg.Telegram.AdminChatID, st, rec, engine, reports)
		go func() {
			if err := b.Run(ctx, 30); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped", "err", err)
			}
		}()
	}

	srv := httpx.New(httpx.Options{
		Addr:          cfg.HTTP.Addr,
		ExposeMetrics: cfg.Metrics.Enabled,
		CORSOrigins:   cfg.HTTP.CORSOrigins,
	}, log, []gin.HandlerFunc{api.RequestID(), api.AccessLog(log)}, handler.Register)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

// openStore поднимает хранилище по storage.driver; для postgres сначала миграции.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	if err := postgres.Migrate(ctx, cfg.Postgres.DSN, log); err != nil {
		return nil, nil, err
	}
	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	log.Info("db connected")
	return postgres.New(pool), pool.Close, nil
}
