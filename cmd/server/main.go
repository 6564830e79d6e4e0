// Package main is the entry point for the ad budget allocation service.
// It wires the optimization engine (grid allocator, Monte Carlo simulator,
// strategy ensemble, benchmark validator) behind a thin HTTP API, with a
// fingerprint-keyed result cache and pipeline-progress event streaming.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/adbudget/internal/cache"
	"github.com/aristath/adbudget/internal/config"
	"github.com/aristath/adbudget/internal/events"
	"github.com/aristath/adbudget/internal/modules/ensemble"
	"github.com/aristath/adbudget/internal/modules/gridsearch"
	"github.com/aristath/adbudget/internal/modules/planning"
	"github.com/aristath/adbudget/internal/modules/simulation"
	"github.com/aristath/adbudget/internal/modules/strategies"
	"github.com/aristath/adbudget/internal/modules/validation"
	"github.com/aristath/adbudget/internal/scheduler"
	"github.com/aristath/adbudget/internal/server"
	"github.com/aristath/adbudget/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting adbudget")

	// The result cache is an explicit object handed to the request layer,
	// never a package-level singleton: tests and tools own their instances.
	resultCache := cache.New(cfg.CacheTTL, cfg.CacheCapacity, cfg.MemThresholdPct, log)
	bus := events.NewBus()

	allocator := gridsearch.NewAllocator(cfg.GridStep, log)
	simulator := simulation.NewSimulator(cfg.Workers, log)
	combiner := ensemble.NewCombiner(ensemble.DefaultConfig(), log)
	validator := validation.NewValidator(validation.DefaultThresholds(), log)

	strats := []strategies.Strategy{
		strategies.NewGridStrategy(cfg.GridStep, log),
		strategies.NewGradientStrategy(log),
		strategies.NewBayesianStrategy(time.Now().UnixNano(), log),
	}

	planningService := planning.NewService(allocator, strats, simulator, combiner, validator, resultCache, bus, log)
	planningHandler := planning.NewHandler(planningService, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.CacheSweepSchedule, &cache.SweepJob{Cache: resultCache}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache sweep job")
	}
	sched.Start()

	srv := server.New(server.Config{Port: cfg.Port}, planningHandler, resultCache, bus, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
