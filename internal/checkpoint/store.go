package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned when nothing has been saved under a name
	ErrNotFound = errors.New("checkpoint not found")
	// ErrInvalidName is returned for names that cannot be used as keys
	ErrInvalidName = errors.New("invalid checkpoint name")
)

// Store is name-keyed byte storage for checkpoints
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName rejects names that would escape a directory or key prefix
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
