package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/app"
)

func init() {
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	configPath := os.Getenv("MONI_CONFIG")
	if configPath == "" {
		configPath = "./config/application.yaml"
	}

	application, err := app.NewApplication(configPath)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Shutdown(ctx); err != nil {
			log.Errorf("shutdown failed: %v", err)
		}
	}()

	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
