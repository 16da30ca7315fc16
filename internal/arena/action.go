package arena

import "fmt"

// Action is an index into the arena's action space
type Action int

const (
	Retreat Action = iota
	Hold
	Advance
)

// NoAction marks the idle agent's slot in a recorded alternating step
const NoAction Action = -1

// ActionCount is the size of the action space shared by every arena
const ActionCount = 3

// Validate rejects actions outside [0, ActionCount)
func (a Action) Validate() error {
	if a < 0 || int(a) >= ActionCount {
		return fmt.Errorf("%w: %d outside [0, %d)", ErrInvalidAction, int(a), ActionCount)
	}
	return nil
}

// Delta returns the cell offset produced by the action for a fighter facing
// the given direction (+1 faces the high end of the arena, -1 the low end).
func (a Action) Delta(facing int) int {
	switch a {
	case Retreat:
		return -facing
	case Advance:
		return facing
	default:
		return 0
	}
}

func (a Action) String() string {
	switch a {
	case Retreat:
		return "retreat"
	case Hold:
		return "hold"
	case Advance:
		return "advance"
	case NoAction:
		return "none"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
