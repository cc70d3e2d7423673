package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"framefuse/internal/config"
	"framefuse/internal/daemon"
	"framefuse/internal/deps"
	"framefuse/internal/jobs"
	"framefuse/internal/logging"
	"framefuse/internal/queue"
	"framefuse/internal/services/ffmpeg"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if missing := deps.MissingRequired(deps.CheckBinaries(deps.ForConfig(cfg))); len(missing) > 0 {
		log.Fatalf("missing required dependencies: %v", missing)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		log.Fatalf("open job store: %v", err)
	}
	defer store.Close()

	runner := ffmpeg.NewRunner(logger)
	reaper := jobs.NewReaper(cfg, store, logger)
	manager := jobs.NewManager(cfg, store, runner, reaper, logger)

	d, err := daemon.New(cfg, store, manager, reaper, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	d.Stop()
}
