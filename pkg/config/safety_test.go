package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafetySection(t *testing.T) {
	section := NewSafetySection()
	require.NotNil(t, section)
	assert.Equal(t, "safety", section.ID())
	assert.Contains(t, section.Allowlist, "pytest")
	assert.Contains(t, section.Allowlist, "git")
	assert.Equal(t, 120, section.TimeoutSeconds)
	assert.Equal(t, int64(1048576), section.MaxFileSize)
	assert.True(t, section.JailEnabled)
}

func TestSafetySection_SetData(t *testing.T) {
	tests := []struct {
		name        string
		data        map[string]interface{}
		check       func(t *testing.T, section *SafetySection)
		expectError bool
	}{
		{
			name: "allowlist from JSON decodes as interface slice",
			data: map[string]interface{}{
				"allowlist": []interface{}{"go", "cargo"},
			},
			check: func(t *testing.T, section *SafetySection) {
				assert.Equal(t, []string{"go", "cargo"}, section.Allowlist)
			},
		},
		{
			name: "allowlist set from code as string slice",
			data: map[string]interface{}{
				"allowlist": []string{"go"},
			},
			check: func(t *testing.T, section *SafetySection) {
				assert.Equal(t, []string{"go"}, section.Allowlist)
			},
		},
		{
			name: "numeric fields from JSON",
			data: map[string]interface{}{
				"timeout_seconds": float64(30),
				"max_file_size":   float64(2048),
			},
			check: func(t *testing.T, section *SafetySection) {
				assert.Equal(t, 30, section.TimeoutSeconds)
				assert.Equal(t, int64(2048), section.MaxFileSize)
			},
		},
		{
			name: "jail toggle",
			data: map[string]interface{}{
				"jail_enabled": false,
			},
			check: func(t *testing.T, section *SafetySection) {
				assert.False(t, section.JailEnabled)
			},
		},
		{
			name:        "non-string allowlist entry",
			data:        map[string]interface{}{"allowlist": []interface{}{"go", 42}},
			expectError: true,
		},
		{
			name:        "wrong type for jail_enabled",
			data:        map[string]interface{}{"jail_enabled": "yes"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := NewSafetySection()
			err := section.SetData(tt.data)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, section)
		})
	}
}

func TestSafetySection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(section *SafetySection)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(section *SafetySection) {},
		},
		{
			name:    "empty allowlist entry",
			mutate:  func(section *SafetySection) { section.Allowlist = []string{"go", "  "} },
			wantErr: "allowlist entry",
		},
		{
			name:    "zero timeout",
			mutate:  func(section *SafetySection) { section.TimeoutSeconds = 0 },
			wantErr: "timeout_seconds",
		},
		{
			name:    "negative file size",
			mutate:  func(section *SafetySection) { section.MaxFileSize = -1 },
			wantErr: "max_file_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section := NewSafetySection()
			tt.mutate(section)

			err := section.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSafetySection_Reset(t *testing.T) {
	section := NewSafetySection()
	section.SetAllowlist([]string{"only-this"})
	section.TimeoutSeconds = 5
	section.JailEnabled = false

	section.Reset()

	assert.Contains(t, section.Allowlist, "pytest")
	assert.Equal(t, 120, section.TimeoutSeconds)
	assert.True(t, section.JailEnabled)
}

func TestSafetySection_Accessors(t *testing.T) {
	section := NewSafetySection()

	section.SetAllowlist([]string{"go", "cargo"})
	allowlist := section.GetAllowlist()
	assert.Equal(t, []string{"go", "cargo"}, allowlist)

	// Mutating the returned slice must not touch the section
	allowlist[0] = "tampered"
	assert.Equal(t, []string{"go", "cargo"}, section.GetAllowlist())

	assert.Equal(t, 120*time.Second, section.GetTimeout())
	assert.Equal(t, int64(1048576), section.GetMaxFileSize())
	assert.True(t, section.IsJailEnabled())
}

func TestSafetySection_DataRoundTrip(t *testing.T) {
	section := NewSafetySection()
	section.SetAllowlist([]string{"go"})
	section.TimeoutSeconds = 45

	reloaded := NewSafetySection()
	require.NoError(t, reloaded.SetData(section.Data()))

	assert.Equal(t, []string{"go"}, reloaded.Allowlist)
	assert.Equal(t, 45, reloaded.TimeoutSeconds)
	assert.Equal(t, section.MaxFileSize, reloaded.MaxFileSize)
}
