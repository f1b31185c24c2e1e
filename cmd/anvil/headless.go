package main

import (
	"context"
	"fmt"
	"log"
	"time"

	appconfig "github.com/craftd/anvil/pkg/config"
	"github.com/craftd/anvil/pkg/executor/headless"
	"github.com/craftd/anvil/pkg/llm"
)

// runHeadless executes the headless mode
func runHeadless(ctx context.Context, config *Config) error {
	// Load and validate configuration
	execConfig, err := loadAndValidateConfig(config)
	if err != nil {
		return err
	}

	// Initialize global configuration
	if initErr := appconfig.Initialize(""); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}

	// Create LLM provider (CLI flags > environment > config file)
	provider, err := appconfig.BuildProvider(config.Provider, config.Model, config.BaseURL, config.APIKey)
	if err != nil {
		return err
	}

	// Create and run executor
	return runExecutor(ctx, provider, execConfig)
}

// loadAndValidateConfig loads and validates headless configuration
func loadAndValidateConfig(config *Config) (*headless.Config, error) {
	if config.HeadlessConfig == "" {
		return nil, fmt.Errorf("headless mode requires a configuration file (use -headless-config flag)")
	}

	execConfig, err := headless.LoadConfigFile(config.HeadlessConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load headless config: %w", err)
	}

	// Override workspace from CLI if provided
	if config.WorkspaceDir != "." {
		execConfig.WorkspaceDir = config.WorkspaceDir
	}
	if execConfig.WorkspaceDir == "" {
		execConfig.WorkspaceDir = config.WorkspaceDir
	}

	// -dry-run forces read-only regardless of the configured mode
	if config.DryRun {
		execConfig.Mode = headless.ModeReadOnly
	}

	// Validate configuration
	if validationErr := execConfig.Validate(); validationErr != nil {
		return nil, fmt.Errorf("invalid headless configuration: %w", validationErr)
	}

	return execConfig, nil
}

// runExecutor creates and runs the headless executor
func runExecutor(ctx context.Context, provider llm.Provider, execConfig *headless.Config) error {
	executor, err := headless.NewExecutor(provider, execConfig)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	// Run execution
	log.Printf("Starting headless execution...")
	log.Printf("Task: %s", execConfig.Task)
	log.Printf("Mode: %s", execConfig.Mode)
	log.Printf("Workspace: %s", execConfig.WorkspaceDir)

	startTime := time.Now()
	if runErr := executor.Run(ctx); runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	duration := time.Since(startTime)
	log.Printf("Execution completed successfully in %s", duration)
	return nil
}
