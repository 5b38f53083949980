// Package main provides the admin CLI for the study backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rshatalov/rpy/cmd/adm/commands"
	"github.com/rshatalov/rpy/internal/config"
	"github.com/rshatalov/rpy/internal/observability"
)

func main() {
	ctx := context.Background()

	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(cfg, "rpy-adm")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	rt := commands.NewRuntime(cfg, logger)
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	rootCmd := commands.NewRootCommand(rt)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = rt.Close()
		os.Exit(1)
	}
}
