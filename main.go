package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

const sessionSweepInterval = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (defaults to $NEXUS_CONFIG or ./config.yaml)")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()
	if err := app.startup(*configPath, *envPath); err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer app.shutdown()
	go app.sessions.RunSweeper(ctx, sessionSweepInterval)

	if err := app.server.Run(ctx); err != nil {
		log.WithError(err).Error("server stopped")
		app.shutdown()
		os.Exit(1)
	}
}
