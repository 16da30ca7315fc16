package arena

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrEpisodeOver   = errors.New("episode is over")
)

// WrapActionError adds the offending actor and action to an arena error
func WrapActionError(actor int, action Action, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("agent %d: action %d: %w", actor, int(action), err)
}
