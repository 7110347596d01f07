package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergedMetadata(t *testing.T) {
	instance := &ServiceInstance{
		Metadata: map[string]any{"a": 1},
	}

	merged := instance.MergedMetadata(map[string]any{"a": 2, "b": 3})

	assert.Equal(t, map[string]any{"a": 2, "b": 3}, merged)
	assert.Equal(t, map[string]any{"a": 1}, instance.Metadata, "receiver must not be mutated")
}

func TestMergedMetadataOmittedKeysPersist(t *testing.T) {
	instance := &ServiceInstance{
		Metadata: map[string]any{"city": "pune", "plan": "basic"},
	}

	merged := instance.MergedMetadata(map[string]any{"plan": "premium"})

	assert.Equal(t, "pune", merged["city"])
	assert.Equal(t, "premium", merged["plan"])
}

func TestMergedMetadataNilPatch(t *testing.T) {
	instance := &ServiceInstance{Metadata: map[string]any{"a": 1}}

	assert.Equal(t, map[string]any{"a": 1}, instance.MergedMetadata(nil))
}
