// Package main provides the Anvil headless executor for CI/CD
// automation. It runs one task to completion without user interaction:
// risk-gated actions that would need approval are denied, results land in
// run artifacts, and the exit code reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/craftd/anvil/pkg/config"
	"github.com/craftd/anvil/pkg/executor/headless"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	ConfigFile  string
	Task        string
	Workspace   string
	Mode        string
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	_ = godotenv.Load(".env")

	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Anvil Headless v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Run the headless executor
	if err := run(ctx, config); err != nil {
		cancel() // Cancel context before exiting
		log.Printf("Execution failed: %v", err)
		os.Exit(1)
	}
	cancel() // Clean up context on success
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.Provider, "provider", "", "LLM provider: anthropic or openai")
	flag.StringVar(&config.APIKey, "api-key", "", "API key (or set ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	flag.StringVar(&config.BaseURL, "base-url", "", "API base URL override")
	flag.StringVar(&config.Model, "model", "", "LLM model to use")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&config.Task, "task", "", "Task description (required if no config file)")
	flag.StringVar(&config.Workspace, "workspace", ".", "Workspace directory")
	flag.StringVar(&config.Mode, "mode", "write", "Execution mode: read-only or write")
	flag.DurationVar(&config.Timeout, "timeout", 5*time.Minute, "Execution timeout (0 disables)")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Anvil Headless - Autonomous Coding Agent for CI/CD\n\n")
		fmt.Fprintf(os.Stderr, "Usage: anvil-headless [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run with inline task\n")
		fmt.Fprintf(os.Stderr, "  anvil-headless -task \"Fix all linting errors\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Run with config file\n")
		fmt.Fprintf(os.Stderr, "  anvil-headless -config anvil-run.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Read-only mode\n")
		fmt.Fprintf(os.Stderr, "  anvil-headless -task \"Analyze code coverage\" -mode read-only\n\n")
	}

	flag.Parse()
	return config
}

// run executes the headless mode
func run(ctx context.Context, cliConfig *CLIConfig) error {
	// Load or create execution configuration
	execConfig, err := loadConfig(cliConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate configuration
	if validationErr := execConfig.Validate(); validationErr != nil {
		return fmt.Errorf("invalid configuration: %w", validationErr)
	}

	// Initialize global configuration
	if initErr := appconfig.Initialize(""); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}

	// Create LLM provider (CLI flags > environment > config file)
	provider, err := appconfig.BuildProvider(cliConfig.Provider, cliConfig.Model, cliConfig.BaseURL, cliConfig.APIKey)
	if err != nil {
		return err
	}

	// Create headless executor
	executor, err := headless.NewExecutor(provider, execConfig)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	// Apply timeout if specified
	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	// Run execution
	log.Printf("Starting headless execution...")
	log.Printf("Task: %s", execConfig.Task)
	log.Printf("Mode: %s", execConfig.Mode)
	log.Printf("Workspace: %s", execConfig.WorkspaceDir)

	if err := executor.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	log.Printf("Execution completed successfully")
	return nil
}

// loadConfig loads execution configuration from file or CLI arguments
func loadConfig(cliConfig *CLIConfig) (*headless.Config, error) {
	// If config file is provided, load from file
	if cliConfig.ConfigFile != "" {
		config, err := headless.LoadConfigFile(cliConfig.ConfigFile)
		if err != nil {
			return nil, err
		}
		if config.WorkspaceDir == "" {
			config.WorkspaceDir = cliConfig.Workspace
		}
		return config, nil
	}

	// Otherwise, create config from CLI arguments
	if cliConfig.Task == "" {
		return nil, fmt.Errorf("task is required when not using a config file")
	}

	config := headless.DefaultConfig()
	config.Task = cliConfig.Task
	config.WorkspaceDir = cliConfig.Workspace

	// Set execution mode
	switch cliConfig.Mode {
	case "read-only":
		config.Mode = headless.ModeReadOnly
	case "write":
		config.Mode = headless.ModeWrite
	default:
		return nil, fmt.Errorf("invalid mode: %s (must be 'read-only' or 'write')", cliConfig.Mode)
	}

	return config, nil
}
