package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetrievalSection(t *testing.T) {
	section := NewRetrievalSection()
	require.NotNil(t, section)
	assert.Equal(t, "retrieval", section.ID())
	assert.Equal(t, 16, section.MaxFiles)
	assert.Equal(t, 20000, section.MaxBytes)
}

func TestRetrievalSection_SetData(t *testing.T) {
	section := NewRetrievalSection()

	require.NoError(t, section.SetData(map[string]interface{}{
		"max_files": float64(8),
		"max_bytes": float64(5000),
	}))
	assert.Equal(t, 8, section.GetMaxFiles())
	assert.Equal(t, 5000, section.GetMaxBytes())

	err := section.SetData(map[string]interface{}{"max_files": "many"})
	assert.Error(t, err)
}

func TestRetrievalSection_Validate(t *testing.T) {
	section := NewRetrievalSection()
	assert.NoError(t, section.Validate())

	section.MaxFiles = 0
	err := section.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_files")

	section.MaxFiles = 16
	section.MaxBytes = -1
	err = section.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_bytes")
}

func TestRetrievalSection_Reset(t *testing.T) {
	section := NewRetrievalSection()
	section.MaxFiles = 2
	section.MaxBytes = 100

	section.Reset()

	assert.Equal(t, 16, section.MaxFiles)
	assert.Equal(t, 20000, section.MaxBytes)
}
