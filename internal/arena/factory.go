package arena

import (
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// Stepping says whether agents move one at a time or together
type Stepping string

const (
	Alternating  Stepping = "alternating"
	Simultaneous Stepping = "simultaneous"
)

// Config selects and parameterizes an arena
type Config struct {
	Stepping    Stepping
	Size        int
	Start       StartMode
	Offset      int
	Reward      RewardShape
	Target      int
	Termination Termination
	Budget      int
}

// New builds a Track for alternating play or a Duel for simultaneous play.
// On a Track with a fixed start the token begins on Offset.
func New(cfg Config, rng *rand.Rand) (Environment, error) {
	rules, err := NewRules(RulesConfig{
		Reward:      cfg.Reward,
		Termination: cfg.Termination,
		Target:      cfg.Target,
		Budget:      cfg.Budget,
	}, cfg.Size)
	if err != nil {
		return nil, err
	}

	switch cfg.Stepping {
	case Alternating:
		t, err := NewTrack(TrackConfig{Size: cfg.Size, Start: cfg.Start, StartCell: cfg.Offset}, rules, rng)
		if err != nil {
			return nil, err
		}
		return t, nil
	case Simultaneous:
		d, err := NewDuel(DuelConfig{Size: cfg.Size, Start: cfg.Start, Offset: cfg.Offset}, rules, rng)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w: unknown stepping %q", common.ErrInvalidConfig, cfg.Stepping)
	}
}

// Supports reports whether env can be driven with the given stepping
func Supports(env Environment, stepping Stepping) bool {
	switch stepping {
	case Alternating:
		_, ok := env.(TurnEnvironment)
		return ok
	case Simultaneous:
		_, ok := env.(JointEnvironment)
		return ok
	}
	return false
}
