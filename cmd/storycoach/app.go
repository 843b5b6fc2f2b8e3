package main

import (
	"log"

	"github.com/joho/godotenv"

	"story-coach/internal/app"
	"story-coach/internal/config"
)

func loadConfig() *config.Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("⚠️ .env file not found: %v", err)
	}
	return config.New()
}

// withApp wraps a subcommand body with service setup and teardown.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(loadConfig(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("❌ %v", err)
		}
	}()
	return fn(a)
}
