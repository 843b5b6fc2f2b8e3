package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"story-coach/internal/app"
	"story-coach/internal/config"
	"story-coach/internal/history"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg := config.New()

	log.Printf("🚀 Starting Story Coach MCP Server")

	services, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("❌ Failed to init services: %v", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Printf("❌ %v", err)
		}
	}()

	jobs := services.Scheduler()
	if err := jobs.Start(); err != nil {
		log.Printf("⚠️ Scheduled jobs disabled: %v", err)
	} else {
		defer jobs.Stop()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "story-coach-mcp",
		Version: "1.0.0",
	}, nil)
	coach := NewCoachMCPServer(services, history.NewManager())
	tools := coach.Register(server)

	log.Printf("📋 Registered %d tools: %v", len(tools), tools)
	log.Printf("🔗 Starting server on stdin/stdout...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		log.Printf("❌ Server failed: %v", err)
	}
}
