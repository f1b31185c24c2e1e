// Package session holds the state of one agent run: the conversation, the
// current plan, executed actions, diffs, and verification results. State is
// append-only while a run is in progress and persists its artifacts under
// .agent_runs/{session_id}/ in the workspace. All operations are
// thread-safe.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/craftd/anvil/pkg/types"
)

// RunsDirName is the directory under the workspace root that collects one
// artifacts directory per session.
const RunsDirName = ".agent_runs"

// DiffSeparator joins recorded diffs in the diffs.txt artifact.
const DiffSeparator = "\n\n=== DIFF SEPARATOR ===\n\n"

// ActionRecord is one executed action as persisted to actions.jsonl.
type ActionRecord struct {
	Type      types.ActionType      `json:"type"`
	Result    types.ExecutionResult `json:"result"`
	Timestamp time.Time             `json:"timestamp"`
}

// PendingConfirmation is a clarification question awaiting a yes/no answer,
// together with the action details to perform when the user approves.
type PendingConfirmation struct {
	Question string            `json:"question"`
	Action   map[string]string `json:"action,omitempty"`
}

// State tracks a single agent session.
type State struct {
	sessionID    string
	repoRoot     string
	createdAt    time.Time
	artifactsDir string

	mu                  sync.RWMutex
	messages            []types.Message
	currentPlan         *types.Plan
	executedActions     []ActionRecord
	diffs               []string
	verificationResults []*types.VerificationResult
	pending             *PendingConfirmation
}

// NewSessionID builds a sortable session identifier: unix timestamp plus a
// short random suffix.
func NewSessionID() string {
	id := uuid.New()
	return fmt.Sprintf("%d_%x", time.Now().Unix(), id[:4])
}

// NewState creates session state and its artifacts directory.
func NewState(sessionID, repoRoot string) (*State, error) {
	artifactsDir := filepath.Join(repoRoot, RunsDirName, sessionID)
	if err := os.MkdirAll(artifactsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	return &State{
		sessionID:    sessionID,
		repoRoot:     repoRoot,
		createdAt:    time.Now(),
		artifactsDir: artifactsDir,
	}, nil
}

// SessionID returns the session identifier.
func (s *State) SessionID() string {
	return s.sessionID
}

// RepoRoot returns the workspace root this session operates on.
func (s *State) RepoRoot() string {
	return s.repoRoot
}

// ArtifactsDir returns the directory artifacts are saved into.
func (s *State) ArtifactsDir() string {
	return s.artifactsDir
}

// CreatedAt returns the session start time.
func (s *State) CreatedAt() time.Time {
	return s.createdAt
}

// AddMessage appends a conversation message.
func (s *State) AddMessage(role types.MessageRole, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, types.Message{Role: role, Content: content})
}

// Messages returns a copy of the conversation so far.
func (s *State) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetPlan records the plan currently driving the run.
func (s *State) SetPlan(plan *types.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPlan = plan
}

// Plan returns the current plan, which may be nil before planning.
func (s *State) Plan() *types.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPlan
}

// AddActionResult records one executed action and its result.
func (s *State) AddActionResult(actionType types.ActionType, result types.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executedActions = append(s.executedActions, ActionRecord{
		Type:      actionType,
		Result:    result,
		Timestamp: time.Now(),
	})
}

// Actions returns a copy of the executed action records.
func (s *State) Actions() []ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActionRecord, len(s.executedActions))
	copy(out, s.executedActions)
	return out
}

// AddDiff records a generated diff. Empty diffs are dropped.
func (s *State) AddDiff(diff string) {
	if diff == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diffs = append(s.diffs, diff)
}

// Diffs returns a copy of the recorded diffs.
func (s *State) Diffs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.diffs))
	copy(out, s.diffs)
	return out
}

// SetPendingConfirmation records a question awaiting the user's answer.
// At most one confirmation is outstanding; a new one replaces the old.
func (s *State) SetPendingConfirmation(pending *PendingConfirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = pending
}

// PendingConfirmation returns the outstanding confirmation, or nil.
func (s *State) PendingConfirmation() *PendingConfirmation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// ClearPendingConfirmation drops the outstanding confirmation.
func (s *State) ClearPendingConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// AddVerification records a verification result.
func (s *State) AddVerification(result *types.VerificationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verificationResults = append(s.verificationResults, result)
}

// Verifications returns the recorded verification results.
func (s *State) Verifications() []*types.VerificationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.VerificationResult, len(s.verificationResults))
	copy(out, s.verificationResults)
	return out
}

// SaveArtifacts writes the session's artifacts: plan.json when a plan
// exists, messages.json and actions.jsonl always, diffs.txt and
// verification.json when non-empty.
func (s *State) SaveArtifacts() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentPlan != nil {
		data, err := json.MarshalIndent(s.currentPlan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.artifactsDir, "plan.json"), data, 0600); err != nil {
			return fmt.Errorf("failed to write plan artifact: %w", err)
		}
	}

	messages := s.messages
	if messages == nil {
		messages = []types.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.artifactsDir, "messages.json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write messages artifact: %w", err)
	}

	var lines bytes.Buffer
	for _, record := range s.executedActions {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal action record: %w", err)
		}
		lines.Write(line)
		lines.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(s.artifactsDir, "actions.jsonl"), lines.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write actions artifact: %w", err)
	}

	if len(s.diffs) > 0 {
		joined := strings.Join(s.diffs, DiffSeparator)
		if err := os.WriteFile(filepath.Join(s.artifactsDir, "diffs.txt"), []byte(joined), 0600); err != nil {
			return fmt.Errorf("failed to write diffs artifact: %w", err)
		}
	}

	if len(s.verificationResults) > 0 {
		data, err := json.MarshalIndent(s.verificationResults, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal verification results: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.artifactsDir, "verification.json"), data, 0600); err != nil {
			return fmt.Errorf("failed to write verification artifact: %w", err)
		}
	}

	return nil
}

// Summary reports session counters for status displays.
func (s *State) Summary() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"session_id":       s.sessionID,
		"created_at":       s.createdAt.Format(time.RFC3339),
		"messages_count":   len(s.messages),
		"actions_executed": len(s.executedActions),
		"diffs_generated":  len(s.diffs),
		"has_plan":         s.currentPlan != nil,
	}
}
