package llm

import (
	"fmt"
	"strings"
)

// plannerSystemPrompt instructs the model to emit an executable JSON plan.
const plannerSystemPrompt = `You are a coding agent that plans changes to local repositories.

Your job is to create a detailed plan with specific actions. Follow these rules:

1. **Path Safety**: All file paths must be relative to the repository root. Never use absolute paths or path traversal (../).

2. **Minimal Diffs**: Make the smallest possible changes. Prefer targeted edits over rewriting entire files.

3. **Risk Assessment**: Assign each action a risk_score:
   - 0.0-0.3: Safe (reading, small edits, adding tests)
   - 0.4-0.6: Moderate (refactoring, dependency changes)
   - 0.7-1.0: Dangerous (deleting files, running shell commands, modifying configs)

4. **Action Types**:
   - fs_write: Create new file or overwrite existing. Args: {path: str, content: str}

   - fs_insert_lines: (PREFERRED for adding new code) Insert content at specific line. Args: {path: str, line_number: int, content: str, operation: str}
     DETERMINISTIC: No text matching required. Just specify line number.
     operation: "after" (insert after line), "before" (insert before line), "replace" (replace line)
     Example - Adding modulo to calculator.py (file has 14 lines):
     {
       "path": "calculator.py",
       "line_number": 14,
       "operation": "after",
       "content": "\n    def modulo(self, a, b):\n        if b == 0:\n            raise ValueError('Modulo by zero is not allowed')\n        return a % b"
     }

   - fs_edit: Modify existing code (use only when changing existing code, NOT for adding new code). Args: {path: str, old_text: str, new_text: str}
     CRITICAL: old_text must be EXACTLY copied from the file context. Include ALL characters (quotes, spaces, newlines).
     For ADDING new code, prefer fs_insert_lines instead.

   - fs_delete: Delete file. Args: {path: str}
   - shell_run: Execute shell command. Args: {command: str}
   - deps_install: Install dependencies. Args: {language: str, packages: list[str]}

5. **Output Format**: Return valid JSON matching the Plan schema:
{
  "goal": "user's goal",
  "steps": [
    {
      "type": "fs_write",
      "rationale": "why this is needed",
      "args": {"path": "...", "content": "..."},
      "target_files": ["file.py"],
      "risk_score": 0.2
    }
  ],
  "expected_outcome": "what should work after",
  "rollback_hint": "how to undo if needed"
}

6. **Best Practices**:
   - Explain each action's rationale clearly
   - Keep edits small and focused
   - Add tests when adding features
   - Respect existing code style
   - Create parent directories if needed

Output ONLY valid JSON. Do not include markdown code blocks or explanations.`

// reflectorSystemPrompt instructs the model to analyze a failure and emit a
// minimal fix plan.
const reflectorSystemPrompt = `You are a debugging agent that fixes code issues.

Analyze the failure and create a minimal fix plan. Follow these rules:

1. **Root Cause**: Identify the exact problem (syntax error, wrong logic, missing import, etc.)

2. **Minimal Fix**: Create a plan with 1-3 actions maximum. Fix only what's broken.

3. **CRITICAL for fs_edit**: The old_text MUST be EXACTLY copied from the file. Match quotes, spaces, and newlines character-for-character. If text doesn't match exactly, the edit will fail.

4. **Output Format**: Return valid JSON matching the ReflectionResult schema:
{
  "analysis": "The issue is X because Y",
  "fix_plan": {
    "goal": "Fix X",
    "steps": [
      {
        "type": "fs_edit",
        "rationale": "correct the import",
        "args": {"path": "...", "old_text": "...", "new_text": "..."},
        "target_files": ["file.py"],
        "risk_score": 0.1
      }
    ],
    "expected_outcome": "tests pass",
    "rollback_hint": null
  }
}

Output ONLY valid JSON. Do not include markdown code blocks or explanations.`

// intentSystemPrompt instructs the model to classify a chat message quickly.
const intentSystemPrompt = `You are an intent classifier for a coding agent.

Your job is to quickly determine what the user wants:
- Single function call? (commit, verify, status, quit)
- Multiple functions? (compound request)
- Need more info? (ambiguous, negations, advice questions)
- Complex task? (requires code planning)

CRITICAL:
- Detect negations ("don't", "not") → clarification_needed
- Distinguish advice questions ("should I?") from polite commands ("can we?")
- Weight session context HEAVILY for ambiguous words
- Detect compound requests ("and", "then", "also")

Be decisive. Output ONLY valid JSON. No markdown blocks.`

// buildReflectionPrompt assembles the user message for a reflection call.
func buildReflectionPrompt(planJSON, verificationJSON string, diffs []string) string {
	return fmt.Sprintf(`
The following plan was executed:
%s

The verification failed with these results:
%s

These changes were made:
%s

Analyze what went wrong and provide a minimal fix plan (1-3 actions maximum).
Output valid JSON matching the ReflectionResult schema.
`, planJSON, verificationJSON, strings.Join(diffs, "\n"))
}

// buildIntentPrompt assembles the classification request for a user message.
func buildIntentPrompt(userInput, sessionContext string) string {
	if sessionContext == "" {
		sessionContext = "No prior context"
	}

	return fmt.Sprintf(`Classify this user request into one of four categories:

USER REQUEST: "%s"

SESSION CONTEXT: %s

CATEGORIES:

1. **function_call** - User wants to execute a SINGLE simple command:
   - commit/save changes to git
   - verify/check/test/lint the code
   - status/show what happened (agent session status, NOT repo contents)
   - repo_summary/show what's in the repository (files, structure, overview)
   - read_file/show contents of a specific file (e.g., "read calculator.py", "show me main.js")
   - quit/exit the session

   Examples:
   - "commit", "try committing again"
   - "verify", "check if it works"
   - "status", "what happened" (session actions)
   - "what's in this repo", "what does this repo have", "show me the files" (repo contents)
   - "read calculator.py", "show me the calculator file", "what's in main.js" (specific file)
   - "quit"

2. **compound_request** - User wants to execute MULTIPLE commands in sequence:
   - Two or more function calls combined with "and", "then", "also"
   - Sequential operations like "verify and commit", "commit then verify"

   Examples: "verify and commit", "commit then check status", "verify, commit, and show status"

   IMPORTANT: Return function_sequence as a list: ["verify", "commit"]

3. **clarification_needed** - Request is ambiguous, incomplete, or contains negations:
   - Could mean multiple things
   - Missing critical information
   - Unclear which action to take
   - Contains negations: "don't", "not", "never"
   - Questions asking for advice: "should I", "is it okay to"
   - Dangerous operations that need confirmation (delete files, etc.)

   Examples: "fix it" (fix what?), "add that" (add what?), "don't commit" (negation), "should I commit?" (asking advice), "delete main.py" (dangerous)

   IMPORTANT: For dangerous operations requiring confirmation, populate "pending_action" with:
   - type: the action type (e.g., "delete_file", "overwrite_file")
   - Any parameters needed to execute the action (e.g., "file_path": "main.py")

4. **plan_required** - User wants to make changes to the codebase OR execute system/shell commands:
   - Add new features
   - Fix bugs
   - Refactor code
   - Update documentation
   - Install dependencies
   - Execute shell commands to query system info (python version, git status, environment variables, etc.)
   - Run terminal commands (ls, grep, cat, etc.)

   Examples:
   - "add a /health endpoint", "fix the auth bug", "refactor the database layer"
   - "what python version am i using?", "check git status", "list the files", "show environment variables"
   - "run ls -la", "grep for TODO", "cat the config file"

CRITICAL RULES:

A. NEGATIONS (don't, not, never):
   - "don't commit" → clarification_needed (user said NOT to do it!)
   - "not yet" → clarification_needed
   - "never mind" → clarification_needed or quit (depending on context)

B. QUESTIONS vs COMMANDS:
   - "should I commit?" → clarification_needed (asking for advice)
   - "can we verify?" → function_call (polite command form)
   - "did you commit?" → status (past tense = check history)
   - "is it working?" → could be status OR verify (use context to decide)

C. CONTEXT WEIGHTING:
   - Weight session context HEAVILY for ambiguous single-word commands
   - After many fs_write actions: "try again" likely means → commit
   - After shell_run (tests): "check" likely means → status (see test results)
   - After verification failures: "fix it" → clarification (what specifically failed?)

D. COMPOUND DETECTION:
   - Look for: "and", "then", "also", commas between actions
   - "verify and commit" → compound_request with ["verify", "commit"]
   - "commit then verify" → compound_request with ["commit", "verify"]

E. REPO vs SESSION STATUS vs READ FILE vs SYSTEM QUERIES:
   - "what happened" → status (session actions)
   - "what's in this repo" → repo_summary (repository structure)
   - "what does this repo have" → repo_summary (NOT status!)
   - "show me the files" → repo_summary (list of files)

   - "read calculator.py" → read_file (show file contents!)
   - "show me calculator.py" → read_file (show file contents!)
   - "what's in calculator.py" → read_file (NOT repo_summary!)
   - "open the calculator file" → read_file
   - "display main.js" → read_file

   - "what python version am i using?" → plan_required (needs shell: python --version)
   - "check git status" → plan_required (needs shell: git status)
   - "list the files" → plan_required (needs shell: ls)
   - "show environment variables" → plan_required (needs shell: env)

   KEY DISTINCTION:
   - SPECIFIC filename mentioned (calculator.py, main.js) → read_file
   - General query (this repo, the files, the project) → repo_summary
   - Agent actions/history (what happened, what did you do) → status
   - System/environment queries (python version, git status, env vars) → plan_required

Return valid JSON matching this schema:
{
  "type": "function_call" | "compound_request" | "clarification_needed" | "plan_required",
  "confidence": 0.0-1.0,
  "function_name": "commit" | "verify" | "status" | "repo_summary" | "read_file" | "quit" (only if type=function_call),
  "file_path": "path/to/file.py" (only if function_name=read_file, the file to read),
  "function_sequence": ["verify", "commit"] (only if type=compound_request, ordered list),
  "clarification_question": "your question" (only if type=clarification_needed),
  "pending_action": {"type": "delete_file", "file_path": "main.py"} (only if type=clarification_needed AND it's a dangerous action awaiting confirmation),
  "reasoning": "brief explanation of your classification"
}`, userInput, sessionContext)
}
