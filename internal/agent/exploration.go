package agent

import (
	"math"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// Exploration is an epsilon-greedy schedule. Epsilon only moves down, one
// multiplicative step per episode, and never below Min.
type Exploration struct {
	Epsilon float64
	Min     float64
	Decay   float64
}

func (e Exploration) Validate() error {
	if err := common.RequireProbability("epsilon start", e.Epsilon, 0); err != nil {
		return err
	}
	if err := common.RequireProbability("epsilon min", e.Min, 0); err != nil {
		return err
	}
	if e.Min > e.Epsilon {
		return common.RequireProbability("epsilon start", e.Epsilon, e.Min)
	}
	return common.RequireRate("epsilon decay", e.Decay)
}

// next returns the schedule after one decay step
func (e Exploration) next() Exploration {
	e.Epsilon = math.Max(e.Epsilon*e.Decay, e.Min)
	return e
}
