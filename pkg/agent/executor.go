package agent

import (
	"context"
	"fmt"

	"github.com/craftd/anvil/pkg/tools/deps"
	"github.com/craftd/anvil/pkg/tools/fs"
	"github.com/craftd/anvil/pkg/tools/shell"
	"github.com/craftd/anvil/pkg/tools/vcs"
	"github.com/craftd/anvil/pkg/types"
)

// Executor dispatches typed plan actions to the workspace tools. Every
// outcome is folded into an ExecutionResult; callers never see a raw
// error or panic from a tool.
type Executor struct {
	fs    *fs.Tool
	shell *shell.Tool
	deps  *deps.Tool
	vcs   *vcs.Tool
}

// NewExecutor creates an executor over the given tool adapters.
func NewExecutor(fsTool *fs.Tool, shellTool *shell.Tool, depsTool *deps.Tool, vcsTool *vcs.Tool) *Executor {
	return &Executor{
		fs:    fsTool,
		shell: shellTool,
		deps:  depsTool,
		vcs:   vcsTool,
	}
}

// Execute runs one action. With dryRun set, no tool is invoked and the
// result echoes what would have happened.
func (e *Executor) Execute(ctx context.Context, action *types.Action, dryRun bool) types.ExecutionResult {
	if dryRun {
		return types.ExecutionResult{
			Success: true,
			Message: fmt.Sprintf("[DRY RUN] Would execute %s: %s", action.Type, action.Rationale),
			Data:    action.Args,
		}
	}

	switch action.Type {
	case types.ActionFSWrite:
		return e.fsWrite(action)
	case types.ActionFSEdit:
		return e.fsEdit(action)
	case types.ActionFSInsertLines:
		return e.fsInsertLines(action)
	case types.ActionFSDelete:
		return e.fsDelete(action)
	case types.ActionShellRun:
		return e.shellRun(ctx, action)
	case types.ActionDepsInstall:
		return e.depsInstall(ctx, action)
	case types.ActionGitCheckout:
		return e.gitCheckout(ctx, action)
	default:
		return failResult(fmt.Sprintf("Unknown action type: %s", action.Type))
	}
}

func (e *Executor) fsWrite(action *types.Action) types.ExecutionResult {
	path, _ := stringArg(action.Args, "path")
	content, hasContent := stringArg(action.Args, "content")
	if path == "" || !hasContent {
		return failResult("Missing path or content")
	}

	result := e.fs.Write(path, content)
	result.Data = map[string]interface{}{"path": path}
	return result
}

func (e *Executor) fsEdit(action *types.Action) types.ExecutionResult {
	path, _ := stringArg(action.Args, "path")
	oldText, hasOld := stringArg(action.Args, "old_text")
	newText, hasNew := stringArg(action.Args, "new_text")
	if path == "" || !hasOld || !hasNew {
		return failResult("Missing path, old_text, or new_text")
	}

	result := e.fs.Edit(path, oldText, newText)
	result.Data = map[string]interface{}{"path": path}
	return result
}

func (e *Executor) fsInsertLines(action *types.Action) types.ExecutionResult {
	path, _ := stringArg(action.Args, "path")
	lineNumber, hasLine := intArg(action.Args, "line_number")
	content, hasContent := stringArg(action.Args, "content")
	operation, hasOp := stringArg(action.Args, "operation")
	if !hasOp {
		operation = "after"
	}
	if path == "" || !hasLine || !hasContent {
		return failResult("Missing path, line_number, or content")
	}

	result := e.fs.InsertLines(path, lineNumber, content, operation)
	result.Data = map[string]interface{}{"path": path, "line_number": lineNumber}
	return result
}

func (e *Executor) fsDelete(action *types.Action) types.ExecutionResult {
	path, _ := stringArg(action.Args, "path")
	if path == "" {
		return failResult("Missing path")
	}

	result := e.fs.Delete(path)
	result.Data = map[string]interface{}{"path": path}
	return result
}

func (e *Executor) shellRun(ctx context.Context, action *types.Action) types.ExecutionResult {
	command, _ := stringArg(action.Args, "command")
	if command == "" {
		return failResult("Missing command")
	}
	timeout, _ := intArg(action.Args, "timeout")

	result := e.shell.Run(ctx, command, timeout)
	return types.ExecutionResult{
		Success: result.Success,
		Message: result.Message,
		Data: map[string]interface{}{
			"stdout":    result.Stdout,
			"stderr":    result.Stderr,
			"exit_code": result.ExitCode,
		},
	}
}

func (e *Executor) depsInstall(ctx context.Context, action *types.Action) types.ExecutionResult {
	language, _ := stringArg(action.Args, "language")
	packages := stringSliceArg(action.Args, "packages")
	if language == "" || len(packages) == 0 {
		return failResult("Missing language or packages")
	}

	result := e.deps.Install(ctx, language, packages)
	return types.ExecutionResult{
		Success: result.Success,
		Message: result.Message,
		Data: map[string]interface{}{
			"stdout": result.Stdout,
			"stderr": result.Stderr,
		},
	}
}

func (e *Executor) gitCheckout(ctx context.Context, action *types.Action) types.ExecutionResult {
	branch, _ := stringArg(action.Args, "branch")
	if branch == "" {
		return failResult("Missing branch name")
	}
	create := boolArg(action.Args, "create")

	result := e.vcs.CheckoutBranch(ctx, branch, create)
	return types.ExecutionResult{
		Success: result.Success,
		Message: result.Message,
		Data:    map[string]interface{}{"branch": branch},
	}
}

func failResult(message string) types.ExecutionResult {
	return types.ExecutionResult{Success: false, Message: message}
}

// stringArg returns the string value for key. ok is false when the key is
// absent, null, or not a string.
func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg accepts the numeric forms JSON decoding and literal construction
// produce.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
