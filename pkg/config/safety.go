package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/craftd/anvil/pkg/tools/fs"
	"github.com/craftd/anvil/pkg/tools/shell"
)

const (
	// SectionIDSafety is the identifier for the safety settings section
	SectionIDSafety = "safety"
)

// SafetySection manages the execution safety limits: which shell commands may
// run, how long they may run, how large files may grow, and whether the path
// jail is enforced.
type SafetySection struct {
	Allowlist      []string
	TimeoutSeconds int
	MaxFileSize    int64
	JailEnabled    bool
	mu             sync.RWMutex
}

// NewSafetySection creates a new safety section with default settings.
func NewSafetySection() *SafetySection {
	return &SafetySection{
		Allowlist:      defaultAllowlist(),
		TimeoutSeconds: int(shell.DefaultMaxTimeout / time.Second),
		MaxFileSize:    fs.DefaultMaxFileSize,
		JailEnabled:    true,
	}
}

func defaultAllowlist() []string {
	allowlist := make([]string, len(shell.DefaultAllowlist))
	copy(allowlist, shell.DefaultAllowlist)
	return allowlist
}

// ID returns the section identifier.
func (s *SafetySection) ID() string {
	return SectionIDSafety
}

// Title returns the section title.
func (s *SafetySection) Title() string {
	return "Safety Limits"
}

// Description returns the section description.
func (s *SafetySection) Description() string {
	return "Configure the shell command allowlist, execution timeout, file size ceiling, and workspace path jail."
}

// Data returns the current configuration data.
func (s *SafetySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowlist := make([]interface{}, len(s.Allowlist))
	for i, command := range s.Allowlist {
		allowlist[i] = command
	}

	return map[string]interface{}{
		"allowlist":       allowlist,
		"timeout_seconds": s.TimeoutSeconds,
		"max_file_size":   s.MaxFileSize,
		"jail_enabled":    s.JailEnabled,
	}
}

// SetData updates the configuration from the provided data.
func (s *SafetySection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "allowlist":
			allowlist, err := stringSlice(value)
			if err != nil {
				return fmt.Errorf("invalid allowlist: %w", err)
			}
			s.Allowlist = allowlist

		case "timeout_seconds":
			timeout, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for timeout_seconds: expected number, got %T", value)
			}
			s.TimeoutSeconds = timeout

		case "max_file_size":
			size, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for max_file_size: expected number, got %T", value)
			}
			s.MaxFileSize = int64(size)

		case "jail_enabled":
			if enabled, ok := value.(bool); ok {
				s.JailEnabled = enabled
			} else {
				return fmt.Errorf("invalid value type for jail_enabled: expected bool, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *SafetySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, command := range s.Allowlist {
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("allowlist entry at index %d is empty", i)
		}
	}

	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", s.TimeoutSeconds)
	}

	if s.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", s.MaxFileSize)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *SafetySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Allowlist = defaultAllowlist()
	s.TimeoutSeconds = int(shell.DefaultMaxTimeout / time.Second)
	s.MaxFileSize = fs.DefaultMaxFileSize
	s.JailEnabled = true
}

// GetAllowlist returns a copy of the shell command allowlist.
func (s *SafetySection) GetAllowlist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowlist := make([]string, len(s.Allowlist))
	copy(allowlist, s.Allowlist)
	return allowlist
}

// SetAllowlist replaces the shell command allowlist.
func (s *SafetySection) SetAllowlist(allowlist []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Allowlist = make([]string, len(allowlist))
	copy(s.Allowlist, allowlist)
}

// GetTimeout returns the maximum shell execution time.
func (s *SafetySection) GetTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// GetMaxFileSize returns the file size ceiling in bytes.
func (s *SafetySection) GetMaxFileSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxFileSize
}

// IsJailEnabled reports whether workspace path jailing is enforced.
func (s *SafetySection) IsJailEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.JailEnabled
}

// stringSlice coerces a config value to []string. JSON decoding produces
// []interface{} for arrays; values set from code may already be []string.
func stringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result, nil
	case []interface{}:
		result := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element at index %d: expected string, got %T", i, item)
			}
			result = append(result, s)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("expected string list, got %T", value)
	}
}
