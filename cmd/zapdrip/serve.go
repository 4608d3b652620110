package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zapdrip/zapdrip/internal/app"
	"github.com/zapdrip/zapdrip/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the campaign dispatcher",
	Long:  `Start the Zapdrip HTTP API, campaign scheduler, and dispatch loops.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Optional .env for local development; the config file is the
	// source of truth in production.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(context.Background())
}
