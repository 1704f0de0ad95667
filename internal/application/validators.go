package application

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-tender/infrastructure/llm"
	"github.com/ahrav/go-tender/internal/domain"
)

// registerCustomValidators adds the analyzer-specific validation tags.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("weightsum", validateWeightSum); err != nil {
		return fmt.Errorf("failed to register weightsum validator: %w", err)
	}

	if err := v.RegisterValidation("provider_type", validateProviderType); err != nil {
		return fmt.Errorf("failed to register provider_type validator: %w", err)
	}

	return nil
}

// validateWeightSum checks a criterion -> weight map: known criteria,
// non-negative finite weights, summing to 1.
func validateWeightSum(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map || field.Len() == 0 {
		return false
	}

	var sum float64
	iter := field.MapRange()
	for iter.Next() {
		if !domain.Criterion(iter.Key().String()).Valid() {
			return false
		}
		w := iter.Value().Float()
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return false
		}
		sum += w
	}
	return math.Abs(sum-1.0) <= domain.WeightTolerance
}

// validateProviderType accepts the provider types registered with the llm
// package.
func validateProviderType(fl validator.FieldLevel) bool {
	return slices.Contains(llm.ProviderTypes(), fl.Field().String())
}
