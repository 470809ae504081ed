package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrader/internal/auth"
	"papertrader/internal/config"
	"papertrader/internal/engine"
	"papertrader/internal/history"
	"papertrader/internal/httpserver"
	"papertrader/internal/logging"
	"papertrader/internal/marketdata"
	"papertrader/internal/sessions"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	defaultCash, err := decimal.NewFromString(cfg.DefaultCash)
	if err != nil {
		logger.Fatal("invalid default_cash", zap.Error(err))
	}

	ctx, stopAll := context.WithCancel(context.Background())
	defer stopAll()

	var archive engine.Recorder
	if cfg.DBDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatal("connect postgres", zap.Error(err))
		}
		defer pool.Close()
		arc := history.NewArchive(pool, logger)
		if err := arc.Init(ctx); err != nil {
			logger.Fatal("init trade archive", zap.Error(err))
		}
		go arc.Run(ctx)
		archive = arc
		logger.Info("trade archive enabled")
	}

	feed := marketdata.NewFeed(marketdata.FeedConfig{
		Instrument: cfg.Instrument,
		StartPrice: cfg.FeedStartPrice,
		Interval:   cfg.FeedInterval,
		Volatility: cfg.FeedVolatility,
		Drift:      cfg.FeedDrift,
	}, nil, logger)
	go feed.Run(ctx)

	mgr := sessions.NewManager(ctx, sessions.Config{
		Instrument:       cfg.Instrument,
		DefaultCash:      defaultCash,
		AnalysisInterval: cfg.AnalysisInterval,
		SignalCooldown:   cfg.SignalCooldown,
		StochasticDemo:   cfg.StochasticDemo,
	}, feed, archive, logger)

	authSvc := auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	sessionsHandler := sessions.NewHandler(mgr, authSvc)
	streamHandler := httpserver.NewStreamHandler(authSvc, mgr, feed, cfg.WebSocketOrigin, logger)
	adminHandler := httpserver.NewAdminHandler(feed)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		SessionsHandler: sessionsHandler,
		AdminHandler:    adminHandler,
		StreamHandler:   streamHandler,
		AuthService:     authSvc,
		Manager:         mgr,
		AdminTokenHash:  cfg.AdminTokenHash,
		CORSOrigin:      cfg.WebSocketOrigin,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	logger.Info("server listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("instrument", cfg.Instrument),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		stopAll()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}
