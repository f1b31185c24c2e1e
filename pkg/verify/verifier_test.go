package verify

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/craftd/anvil/pkg/types"
)

func markPython(t *testing.T, root string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte("[project]\nname = \"demo\"\n"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{name: "pyproject", files: []string{"pyproject.toml"}, want: LangPython},
		{name: "setup.py", files: []string{"setup.py"}, want: LangPython},
		{name: "package.json", files: []string{"package.json"}, want: LangNode},
		{name: "python wins over node", files: []string{"pyproject.toml", "package.json"}, want: LangPython},
		{name: "nothing detected", files: nil, want: ""},
		{name: "python sources without manifest", files: []string{"main.py", "util.py"}, want: LangPython},
		{name: "node sources without manifest", files: []string{"index.js", "app.ts"}, want: LangNode},
		{name: "majority wins", files: []string{"a.js", "b.js", "main.py"}, want: LangNode},
		{name: "source tie prefers python", files: []string{"main.py", "index.js"}, want: LangPython},
		{name: "unclassified sources", files: []string{"README.rst", "data.csv"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, name := range tt.files {
				if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
					t.Fatalf("failed to write %s: %v", name, err)
				}
			}

			if got := DetectLanguage(root); got != tt.want {
				t.Errorf("DetectLanguage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerify_AllChecksPassed(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	v := NewVerifier(root, Config{
		PythonLinters: []string{"true"},
		PythonTests:   "true",
	})

	result := v.Verify(context.Background())
	if result.Status != types.VerifyPass {
		t.Errorf("status = %q, want pass", result.Status)
	}
	if result.Summary != "All checks passed" {
		t.Errorf("summary = %q, want %q", result.Summary, "All checks passed")
	}
	if len(result.LintErrors) != 0 || len(result.FailingTests) != 0 {
		t.Errorf("expected no issues, got %+v", result)
	}
}

func TestVerify_LintFailureRequiresStderr(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	// First linter fails silently on stderr, second reports there.
	v := NewVerifier(root, Config{
		PythonLinters: []string{
			"echo stdout-only-problem; exit 1",
			"echo lint-problem >&2; exit 1",
		},
		PythonTests: "true",
	})

	result := v.Verify(context.Background())
	if result.Status != types.VerifyFail {
		t.Fatalf("status = %q, want fail", result.Status)
	}
	if len(result.LintErrors) != 1 {
		t.Fatalf("expected 1 lint error, got %v", result.LintErrors)
	}
	if !strings.Contains(result.LintErrors[0], "lint-problem") {
		t.Errorf("lint error missing stderr text: %q", result.LintErrors[0])
	}
	if !strings.HasPrefix(result.LintErrors[0], "echo lint-problem >&2; exit 1: ") {
		t.Errorf("lint error missing command prefix: %q", result.LintErrors[0])
	}
}

func TestVerify_FailingTestsCaptureStdout(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	v := NewVerifier(root, Config{
		PythonLinters: []string{"true"},
		PythonTests:   "echo 2 failed; exit 1",
	})

	result := v.Verify(context.Background())
	if result.Status != types.VerifyFail {
		t.Fatalf("status = %q, want fail", result.Status)
	}
	if len(result.FailingTests) != 1 || !strings.Contains(result.FailingTests[0], "2 failed") {
		t.Errorf("unexpected failing tests: %v", result.FailingTests)
	}
	if result.Summary != "Found 1 issues" {
		t.Errorf("summary = %q, want %q", result.Summary, "Found 1 issues")
	}
}

func TestVerify_CountsAllIssues(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	v := NewVerifier(root, Config{
		PythonLinters: []string{
			"echo a >&2; exit 1",
			"echo b >&2; exit 1",
		},
		PythonTests: "echo failures; exit 1",
	})

	result := v.Verify(context.Background())
	if result.Summary != "Found 3 issues" {
		t.Errorf("summary = %q, want %q", result.Summary, "Found 3 issues")
	}
}

func TestVerify_UnknownLanguagePasses(t *testing.T) {
	v := NewVerifier(t.TempDir(), Config{})

	if v.Language() != "" {
		t.Errorf("expected no detected language, got %q", v.Language())
	}

	result := v.Verify(context.Background())
	if result.Status != types.VerifyPass {
		t.Errorf("status = %q, want pass", result.Status)
	}
	if result.Summary != "No verifier for this project" {
		t.Errorf("summary = %q, want %q", result.Summary, "No verifier for this project")
	}
	if len(result.LintErrors) != 0 || len(result.FailingTests) != 0 {
		t.Errorf("expected no recorded issues, got %+v", result)
	}
}

func TestVerify_LintTimeout(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	v := NewVerifier(root, Config{
		PythonLinters: []string{"while :; do :; done"},
		PythonTests:   "true",
		Timeout:       100 * time.Millisecond,
	})

	result := v.Verify(context.Background())
	if result.Status != types.VerifyFail {
		t.Fatalf("status = %q, want fail", result.Status)
	}
	if len(result.LintErrors) != 1 || !strings.Contains(result.LintErrors[0], "Command timed out") {
		t.Errorf("expected timeout lint error, got %v", result.LintErrors)
	}
}

func TestVerify_TruncatesLongOutput(t *testing.T) {
	root := t.TempDir()
	markPython(t, root)

	// 600 characters on stdout, cut to the output limit.
	v := NewVerifier(root, Config{
		PythonLinters: []string{"true"},
		PythonTests:   "printf '%0600d' 0; exit 1",
	})

	result := v.Verify(context.Background())
	if len(result.FailingTests) != 1 {
		t.Fatalf("expected 1 failing test entry, got %v", result.FailingTests)
	}
	if len(result.FailingTests[0]) != outputLimit {
		t.Errorf("output length = %d, want %d", len(result.FailingTests[0]), outputLimit)
	}
}
