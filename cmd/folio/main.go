package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"folio/internal/domain/model"
	"folio/internal/infrastructure/config"
	"folio/internal/infrastructure/logger"
	"folio/internal/infrastructure/svc"
	"folio/internal/interfaces/console"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	portfolioID := flag.String("portfolio", "", "one-shot: portfolio to report on, then exit")
	fromStr := flag.String("from", "", "one-shot: window start (YYYY-MM-DD)")
	toStr := flag.String("to", "", "one-shot: window end (YYYY-MM-DD), default today")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer func() { _ = sc.Close() }()

	if *portfolioID != "" {
		runQuery(ctx, sc, *portfolioID, *fromStr, *toStr)
		return
	}

	if err := sc.StartWorkers(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker startup failed")
	}
	log.Info().Str("config", *configPath).Msg("folio started")
	<-ctx.Done()
	log.Info().Msg("folio shutting down")
}

func runQuery(ctx context.Context, sc *svc.ServiceContext, portfolioID, fromStr, toStr string) {
	to := model.Today()
	if toStr != "" {
		var err error
		if to, err = model.ParseDate(toStr); err != nil {
			log.Fatal().Err(err).Str("to", toStr).Msg("bad -to date")
		}
	}
	from := to.AddDays(-sc.Config.App.LookbackDays)
	if fromStr != "" {
		var err error
		if from, err = model.ParseDate(fromStr); err != nil {
			log.Fatal().Err(err).Str("from", fromStr).Msg("bad -from date")
		}
	}

	report, err := sc.Performance.Query(ctx, portfolioID, from, to)
	if err != nil {
		log.Fatal().Err(err).Str("portfolio", portfolioID).Msg("performance query failed")
	}
	if err := console.NewRenderer(os.Stdout).Render(report); err != nil {
		log.Fatal().Err(err).Msg("render failed")
	}
}
