// Package main is the CLI entry point for the alert engine. It parses
// flags, loads configuration, sets up logging, and arranges graceful
// shutdown on Ctrl+C/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/app"
	"airraidengine/internal/infra/config"
	"airraidengine/internal/infra/logger"
	"airraidengine/internal/infra/pr"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix(time.Now().Format("2006-01-02 15:04:05 "))

	if err := pr.Init(); err != nil {
		log.Fatalf("failed to set up console: %v", err)
	}

	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(config.Env().LogLevel)
	logger.SetWriters(pr.Stdout(), pr.Stderr())
	logger.InitFile(config.Env().LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := app.NewApp()
	if err := a.Init(ctx, stop); err != nil {
		stop()
		log.Fatalf("app init failed: %v", err)
	}

	if err := a.Run(); err != nil {
		stop()
		if errors.Is(err, chatclient.ErrAuthFailed) {
			log.Printf("upstream authentication failure: %v", err)
			os.Exit(2)
		}
		log.Fatalf("app run failed: %v", err)
	}

	stop()
	log.Println("graceful shutdown complete")
}
