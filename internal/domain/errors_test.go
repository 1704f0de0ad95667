package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("AnalysisRequest")
		err.AddError("proposal text is required")

		assert.Equal(t, "validation error for AnalysisRequest: proposal text is required", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("WeightProfile")
		err.AddError("unknown criterion")
		err.AddError("negative weight")
		err.AddError("weights must sum to 1.0")

		assert.Equal(t, "validation errors for WeightProfile: unknown criterion; negative weight; weights must sum to 1.0", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 3, "Should have three errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors, "Errors slice should be empty")
	})
}

func TestValidationErrorWrapping(t *testing.T) {
	verr := NewValidationError("Config")
	verr.AddError("bad")
	wrapped := fmt.Errorf("load: %w", verr)

	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
	assert.True(t, IsValidationError(wrapped))
	assert.False(t, IsValidationError(errors.New("plain")))
}
