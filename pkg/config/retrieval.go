package config

import (
	"fmt"
	"sync"

	"github.com/craftd/anvil/pkg/retrieval"
)

const (
	// SectionIDRetrieval is the identifier for the retrieval settings section
	SectionIDRetrieval = "retrieval"
)

// RetrievalSection manages how much workspace content is packed into the
// planning context.
type RetrievalSection struct {
	MaxFiles int
	MaxBytes int
	mu       sync.RWMutex
}

// NewRetrievalSection creates a new retrieval section with default settings.
func NewRetrievalSection() *RetrievalSection {
	return &RetrievalSection{
		MaxFiles: retrieval.DefaultMaxFiles,
		MaxBytes: retrieval.DefaultMaxBytes,
	}
}

// ID returns the section identifier.
func (s *RetrievalSection) ID() string {
	return SectionIDRetrieval
}

// Title returns the section title.
func (s *RetrievalSection) Title() string {
	return "Context Retrieval"
}

// Description returns the section description.
func (s *RetrievalSection) Description() string {
	return "Configure how many workspace files, and how many bytes of each, are offered to the planner as context."
}

// Data returns the current configuration data.
func (s *RetrievalSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"max_files": s.MaxFiles,
		"max_bytes": s.MaxBytes,
	}
}

// SetData updates the configuration from the provided data.
func (s *RetrievalSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "max_files":
			maxFiles, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for max_files: expected number, got %T", value)
			}
			s.MaxFiles = maxFiles

		case "max_bytes":
			maxBytes, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for max_bytes: expected number, got %T", value)
			}
			s.MaxBytes = maxBytes

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *RetrievalSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", s.MaxFiles)
	}

	if s.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive, got %d", s.MaxBytes)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *RetrievalSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MaxFiles = retrieval.DefaultMaxFiles
	s.MaxBytes = retrieval.DefaultMaxBytes
}

// GetMaxFiles returns the file count ceiling for context packing.
func (s *RetrievalSection) GetMaxFiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxFiles
}

// GetMaxBytes returns the per-file byte ceiling for context packing.
func (s *RetrievalSection) GetMaxBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxBytes
}
