// Package main provides the Anvil terminal coding agent. Anvil plans a
// task into concrete actions, executes them through sandboxed adapters
// with risk gating, observes the results, and iterates until the task is
// done or the loop budget runs out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/craftd/anvil/pkg/agent"
	appconfig "github.com/craftd/anvil/pkg/config"
	"github.com/craftd/anvil/pkg/executor/cli"
	"github.com/craftd/anvil/pkg/executor/tui"
	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/types"
	"github.com/craftd/anvil/pkg/ui"
)

const (
	version = "0.1.0" // Version of the Anvil coding agent

	// eventBuffer sizes the event channel between the engine and the
	// front end. The engine drops events rather than block, so the buffer
	// only needs to absorb bursts.
	eventBuffer = 128
)

// Config holds the application configuration
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	WorkspaceDir   string
	Plain          bool
	DryRun         bool
	ShowVersion    bool
	Headless       bool
	HeadlessConfig string
}

func main() {
	// Load .env before flags so defaults resolved from the environment
	// see it. Missing files are fine.
	_ = godotenv.Load(".env")

	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Anvil v%s\n", version)
		return
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Run the application
	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
}

// parseFlags parses command line flags and environment variables
func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.Provider, "provider", "", "LLM provider: anthropic or openai (default from config, then anthropic)")
	flag.StringVar(&config.APIKey, "api-key", "", "API key (or set ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	flag.StringVar(&config.BaseURL, "base-url", "", "API base URL override (or set ANTHROPIC_BASE_URL / OPENAI_BASE_URL)")
	flag.StringVar(&config.Model, "model", "", "LLM model to use (default from config, then the provider default)")
	flag.StringVar(&config.WorkspaceDir, "workspace", ".", "Workspace directory (default: current directory)")
	flag.BoolVar(&config.Plain, "plain", false, "Use the plain line-based interface instead of the TUI")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Describe every action instead of executing it")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&config.Headless, "headless", false, "Run in headless mode (non-interactive)")
	flag.StringVar(&config.HeadlessConfig, "headless-config", "", "Path to headless mode configuration file (YAML)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Anvil - A terminal coding agent\n\n")
		fmt.Fprintf(os.Stderr, "Usage: anvil [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ANTHROPIC_API_KEY    Anthropic API key (default provider)\n")
		fmt.Fprintf(os.Stderr, "  ANTHROPIC_BASE_URL   Anthropic API base URL override\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY       OpenAI API key (with -provider openai)\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL      OpenAI-compatible API base URL\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # TUI Mode (default)\n")
		fmt.Fprintf(os.Stderr, "  anvil                                    # Start in current directory\n")
		fmt.Fprintf(os.Stderr, "  anvil -workspace /path/to/project\n")
		fmt.Fprintf(os.Stderr, "  anvil -provider openai -model gpt-4o\n")
		fmt.Fprintf(os.Stderr, "  anvil -plain -dry-run                    # Plain REPL, simulated actions\n")
		fmt.Fprintf(os.Stderr, "\n  # Headless Mode (CI/CD)\n")
		fmt.Fprintf(os.Stderr, "  anvil -headless -headless-config run.yaml\n")
		fmt.Fprintf(os.Stderr, "  anvil -headless -headless-config run.yaml -workspace /path/to/project\n")
	}

	flag.Parse()
	return config
}

// validate checks that the configuration is valid. API key resolution is
// left to provider construction, which also consults the environment and
// the config file.
func (c *Config) validate() error {
	// Headless mode requires config file
	if c.Headless && c.HeadlessConfig == "" {
		return fmt.Errorf("headless mode requires a configuration file (use -headless-config flag)")
	}

	// Verify workspace directory exists (unless using headless config which will be validated later)
	if !c.Headless || c.WorkspaceDir != "." {
		info, err := os.Stat(c.WorkspaceDir)
		if err != nil {
			return fmt.Errorf("workspace directory error: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("workspace path '%s' is not a directory", c.WorkspaceDir)
		}
	}

	return nil
}

// run executes the main application logic
func run(ctx context.Context, config *Config) error {
	// Check if headless mode is requested
	if config.Headless {
		return runHeadless(ctx, config)
	}

	if config.Plain {
		return runPlain(ctx, config)
	}

	// Run TUI mode (default)
	return runTUI(ctx, config)
}

// buildEngine initializes global configuration, constructs the LLM
// provider, and wires the engine with config-derived safety, risk, and
// retrieval limits. It returns the engine together with its event channel
// for the front end to consume.
func buildEngine(config *Config) (*agent.CodingAgent, chan *types.AgentEvent, error) {
	// Initialize global configuration (safety, risk, retrieval, llm)
	if err := appconfig.Initialize(""); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	provider, err := appconfig.BuildProvider(config.Provider, config.Model, config.BaseURL, config.APIKey)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan *types.AgentEvent, eventBuffer)

	opts := []agent.Option{
		agent.WithEventChannel(events),
	}
	if safety := appconfig.GetSafety(); safety != nil {
		opts = append(opts,
			agent.WithAllowlist(safety.GetAllowlist()),
			agent.WithShellTimeout(safety.GetTimeout()),
			agent.WithMaxFileSize(safety.GetMaxFileSize()),
		)
	}
	if risk := appconfig.GetRisk(); risk != nil {
		opts = append(opts, agent.WithRiskLimits(
			risk.GetAutoApproveMax(),
			risk.GetDeleteFileMax(),
			risk.GetDangerousPatterns(),
		))
	}
	if retrieval := appconfig.GetRetrieval(); retrieval != nil {
		opts = append(opts, agent.WithRetrievalLimits(retrieval.GetMaxFiles(), retrieval.GetMaxBytes()))
	}
	if config.DryRun {
		opts = append(opts, agent.WithDryRun(true))
	}

	ag, err := agent.New(config.WorkspaceDir, llm.NewClient(provider), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent: %w", err)
	}

	return ag, events, nil
}

// runTUI executes the TUI mode
func runTUI(ctx context.Context, config *Config) error {
	ag, events, err := buildEngine(config)
	if err != nil {
		return err
	}

	executor := tui.NewExecutor(ag, events)

	// Display welcome message
	fmt.Print(ui.GenerateASCIIArt("ANVIL"))
	fmt.Println()
	fmt.Printf("\nAnvil v%s - Coding Agent\n", version)
	fmt.Printf("Workspace: %s\n", ag.Workspace())
	if ag.DryRun() {
		fmt.Println("Dry-run: actions are simulated")
	}
	fmt.Println("\nStarting TUI...")
	fmt.Println()

	// Run the executor
	if err := executor.Run(ctx); err != nil {
		return fmt.Errorf("executor error: %w", err)
	}

	return nil
}

// runPlain executes the plain line-based interface, for terminals where
// the TUI is unwanted or unavailable.
func runPlain(ctx context.Context, config *Config) error {
	ag, events, err := buildEngine(config)
	if err != nil {
		return err
	}

	executor := cli.NewExecutor(ag, events)

	if err := executor.Run(ctx); err != nil {
		return fmt.Errorf("executor error: %w", err)
	}

	return nil
}
