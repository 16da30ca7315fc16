package common

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a configuration value lies outside its
// declared domain
var ErrInvalidConfig = errors.New("invalid configuration")

// IsValidCell checks if a position lies inside an arena of the given size
func IsValidCell(pos, size int) bool {
	return pos >= 0 && pos < size
}

// RequirePositive rejects values that are not strictly positive
func RequirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, v)
	}
	return nil
}

// RequireNonNegative rejects negative values
func RequireNonNegative(name string, v int) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidConfig, name, v)
	}
	return nil
}

// RequireRate checks v lies in (0, 1]
func RequireRate(name string, v float64) error {
	if !(v > 0 && v <= 1) {
		return fmt.Errorf("%w: %s must be in (0, 1], got %g", ErrInvalidConfig, name, v)
	}
	return nil
}

// RequireProbability checks v lies in [lo, 1]
func RequireProbability(name string, v, lo float64) error {
	if !(v >= lo && v <= 1) {
		return fmt.Errorf("%w: %s must be in [%g, 1], got %g", ErrInvalidConfig, name, lo, v)
	}
	return nil
}

// RequireOneOf rejects values not in the allowed set
func RequireOneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidConfig, name, allowed, v)
}
