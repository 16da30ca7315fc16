package arena

import (
	"fmt"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// Rules decides rewards and termination for a whole run
type Rules interface {
	Rewards(s State) [2]float64
	Terminal(s State, steps int) bool
}

type RewardShape string

const (
	RewardPositional RewardShape = "positional"
	RewardProximity  RewardShape = "proximity"
)

type Termination string

const (
	TerminateBoundary Termination = "boundary"
	TerminateBudget   Termination = "budget"
)

// RulesConfig selects the reward shape and termination condition.
// Budget is only consulted for TerminateBudget.
type RulesConfig struct {
	Reward      RewardShape
	Termination Termination
	Target      int
	Budget      int
}

type rules struct {
	reward      RewardShape
	termination Termination
	target      int
	budget      int
}

// NewRules validates cfg against an arena of the given size
func NewRules(cfg RulesConfig, size int) (Rules, error) {
	if err := common.RequirePositive("arena size", size); err != nil {
		return nil, err
	}
	if err := common.RequireOneOf("reward", string(cfg.Reward),
		string(RewardPositional), string(RewardProximity)); err != nil {
		return nil, err
	}
	if err := common.RequireOneOf("termination", string(cfg.Termination),
		string(TerminateBoundary), string(TerminateBudget)); err != nil {
		return nil, err
	}
	if !common.IsValidCell(cfg.Target, size) {
		return nil, fmt.Errorf("%w: target %d outside arena of size %d", common.ErrInvalidConfig, cfg.Target, size)
	}
	if cfg.Termination == TerminateBudget {
		if err := common.RequirePositive("termination budget", cfg.Budget); err != nil {
			return nil, err
		}
	}
	return &rules{
		reward:      cfg.Reward,
		termination: cfg.Termination,
		target:      cfg.Target,
		budget:      cfg.Budget,
	}, nil
}

func (r *rules) Rewards(s State) [2]float64 {
	switch r.reward {
	case RewardProximity:
		if s.Fighters == 1 {
			d := float64(common.Distance(s.Pos[0], r.target))
			return [2]float64{-d, d}
		}
		d := float64(common.Distance(s.Pos[0], s.Pos[1]))
		return [2]float64{-d, d}
	default:
		if s.Fighters == 1 {
			v := r.onTarget(s.Pos[0])
			return [2]float64{v, -v}
		}
		return [2]float64{r.onTarget(s.Pos[0]), r.onTarget(s.Pos[1])}
	}
}

func (r *rules) onTarget(pos int) float64 {
	if pos == r.target {
		return 1
	}
	return 0
}

func (r *rules) Terminal(s State, steps int) bool {
	if r.termination == TerminateBudget {
		return steps >= r.budget
	}
	return s.AtBoundary()
}
