// Package headless runs one agent task to completion without a user,
// for CI pipelines, cron jobs, and webhooks.
//
// The executor wraps the engine's iterative loop with the pieces an
// unattended run needs:
//
// - Confirmations disabled: anything the risk gate would put to a user is denied
// - A read-only mode that maps to dry-run execution
// - Optional auto-commit on a generated run branch
// - Run-report artifacts for debugging and auditing
//
// Architecture:
//
//	┌─────────────────────────────────────────────┐
//	│              Headless Executor              │
//	│  - Branch setup and auto-commit             │
//	│  - Artifact generation                      │
//	│  - Leveled console logging                  │
//	└──────────────────┬──────────────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │     CodingAgent      │
//	        │  (confirmations off, │
//	        │   dry-run if         │
//	        │   read-only)         │
//	        └──────────────────────┘
//
// Example usage:
//
//	config := headless.DefaultConfig()
//	config.Task = "Fix the failing tests"
//	config.WorkspaceDir = "/path/to/project"
//
//	provider, _ := anthropic.NewProvider(apiKey)
//	executor, _ := headless.NewExecutor(provider, config)
//
//	if err := executor.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Run outcome:
//
// A run ends in one of three states. "success" means the loop finished and
// verification passed. "partial_success" means the task completed but
// verification still fails; changes stay in the working tree (and are
// committed only when commit_on_verify_fail is set). "failed" covers
// aborted loops and infrastructure errors, and is the only state that
// makes Run return an error.
//
// Artifacts:
//
// The artifact writer generates execution reports in the configured
// output directory:
// - execution.json: full execution summary
// - summary.md: human-readable markdown summary
// - metrics.json: execution metrics
package headless
