package config

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/craftd/anvil/pkg/agent/approval"
)

const (
	// SectionIDRisk is the identifier for the risk gate settings section
	SectionIDRisk = "risk"
)

// RiskSection manages the approval gate thresholds: the score below which
// actions auto-approve, the deletion count a plan may carry, and the shell
// patterns that always demand confirmation.
type RiskSection struct {
	AutoApproveMax    float64
	DeleteFileMax     int
	DangerousPatterns []string
	mu                sync.RWMutex
}

// NewRiskSection creates a new risk section with default settings.
func NewRiskSection() *RiskSection {
	return &RiskSection{
		AutoApproveMax:    approval.DefaultAutoApproveMax,
		DeleteFileMax:     approval.DefaultDeleteFileMax,
		DangerousPatterns: defaultDangerousPatterns(),
	}
}

func defaultDangerousPatterns() []string {
	patterns := make([]string, len(approval.DefaultDangerousPatterns))
	copy(patterns, approval.DefaultDangerousPatterns)
	return patterns
}

// ID returns the section identifier.
func (s *RiskSection) ID() string {
	return SectionIDRisk
}

// Title returns the section title.
func (s *RiskSection) Title() string {
	return "Risk Gate"
}

// Description returns the section description.
func (s *RiskSection) Description() string {
	return "Configure when plans run unattended: the auto-approve risk ceiling, the per-plan deletion budget, and regexes for shell commands that always require confirmation."
}

// Data returns the current configuration data.
func (s *RiskSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := make([]interface{}, len(s.DangerousPatterns))
	for i, pattern := range s.DangerousPatterns {
		patterns[i] = pattern
	}

	return map[string]interface{}{
		"auto_approve_max":   s.AutoApproveMax,
		"delete_file_max":    s.DeleteFileMax,
		"dangerous_patterns": patterns,
	}
}

// SetData updates the configuration from the provided data.
func (s *RiskSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "auto_approve_max":
			max, ok := floatValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for auto_approve_max: expected number, got %T", value)
			}
			s.AutoApproveMax = max

		case "delete_file_max":
			max, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for delete_file_max: expected number, got %T", value)
			}
			s.DeleteFileMax = max

		case "dangerous_patterns":
			patterns, err := stringSlice(value)
			if err != nil {
				return fmt.Errorf("invalid dangerous_patterns: %w", err)
			}
			s.DangerousPatterns = patterns

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration. Every pattern must compile
// so a bad config fails at save time, not when the gate first sees a shell
// command.
func (s *RiskSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.AutoApproveMax < 0 || s.AutoApproveMax > 1 {
		return fmt.Errorf("auto_approve_max must be between 0 and 1, got %g", s.AutoApproveMax)
	}

	if s.DeleteFileMax < 0 {
		return fmt.Errorf("delete_file_max must not be negative, got %d", s.DeleteFileMax)
	}

	for _, pattern := range s.DangerousPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("dangerous pattern %q does not compile: %w", pattern, err)
		}
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *RiskSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AutoApproveMax = approval.DefaultAutoApproveMax
	s.DeleteFileMax = approval.DefaultDeleteFileMax
	s.DangerousPatterns = defaultDangerousPatterns()
}

// GetAutoApproveMax returns the risk score ceiling for unattended execution.
func (s *RiskSection) GetAutoApproveMax() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AutoApproveMax
}

// GetDeleteFileMax returns the number of deletions a plan may contain
// before requiring confirmation.
func (s *RiskSection) GetDeleteFileMax() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DeleteFileMax
}

// GetDangerousPatterns returns a copy of the dangerous command regexes.
func (s *RiskSection) GetDangerousPatterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	patterns := make([]string, len(s.DangerousPatterns))
	copy(patterns, s.DangerousPatterns)
	return patterns
}

// BuildGate constructs an approval gate from the current settings.
func (s *RiskSection) BuildGate() (*approval.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return approval.NewGate(s.AutoApproveMax, s.DeleteFileMax, s.DangerousPatterns)
}
