package main

import (
	"log"
	"os"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/cli"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Check if running CLI command
	if len(os.Args) > 1 {
		cli.Execute(db, cfg)
		return
	}

	// No subcommand runs the server directly
	if err := server.Run(db, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
