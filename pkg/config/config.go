// Package config persists user-level settings in a sectioned JSON file at
// ~/.anvil/config.json. Each concern registers a Section with the Manager;
// the FileStore does atomic saves so a crash never corrupts the file.
package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup. An empty path selects
// the default location.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewLLMSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewSafetySection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewRiskSection()); err != nil {
		return err
	}

	if err := manager.RegisterSection(NewRetrievalSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetLLM returns the LLM settings section from global config.
// Returns nil if config is not initialized.
func GetLLM() *LLMSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDLLM)
	if !ok {
		return nil
	}

	llm, ok := section.(*LLMSection)
	if !ok {
		return nil
	}

	return llm
}

// GetSafety returns the safety limits section from global config.
// Returns nil if config is not initialized.
func GetSafety() *SafetySection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDSafety)
	if !ok {
		return nil
	}

	safety, ok := section.(*SafetySection)
	if !ok {
		return nil
	}

	return safety
}

// GetRisk returns the risk gate section from global config.
// Returns nil if config is not initialized.
func GetRisk() *RiskSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDRisk)
	if !ok {
		return nil
	}

	risk, ok := section.(*RiskSection)
	if !ok {
		return nil
	}

	return risk
}

// GetRetrieval returns the retrieval section from global config.
// Returns nil if config is not initialized.
func GetRetrieval() *RetrievalSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDRetrieval)
	if !ok {
		return nil
	}

	retrieval, ok := section.(*RetrievalSection)
	if !ok {
		return nil
	}

	return retrieval
}
