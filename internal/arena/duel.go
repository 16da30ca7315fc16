package arena

import (
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// DuelConfig describes two fighters on a line of Size cells
type DuelConfig struct {
	Size  int
	Start StartMode
	// Offset is the distance of each fighter from the midpoint on a fixed start
	Offset int
}

// Duel is the simultaneous arena. Fighter 0 faces the high end of the line
// and fighter 1 the low end, so Advance closes the gap for both.
type Duel struct {
	cfg   DuelConfig
	rules Rules
	rng   *rand.Rand

	pos   [2]int
	steps int
	done  bool
}

var _ JointEnvironment = (*Duel)(nil)

var facing = [2]int{1, -1}

func NewDuel(cfg DuelConfig, rules Rules, rng *rand.Rand) (*Duel, error) {
	if cfg.Size < 2 {
		return nil, fmt.Errorf("%w: duel size must be at least 2, got %d", common.ErrInvalidConfig, cfg.Size)
	}
	if err := common.RequireOneOf("start", string(cfg.Start), string(StartRandom), string(StartFixed)); err != nil {
		return nil, err
	}
	if err := common.RequireNonNegative("offset", cfg.Offset); err != nil {
		return nil, err
	}
	if rules == nil || rng == nil {
		return nil, fmt.Errorf("%w: duel requires rules and a random source", common.ErrInvalidConfig)
	}
	d := &Duel{cfg: cfg, rules: rules, rng: rng}
	d.Reset()
	return d, nil
}

func (d *Duel) Reset() State {
	if d.cfg.Start == StartRandom {
		d.pos = [2]int{d.rng.Intn(d.cfg.Size), d.rng.Intn(d.cfg.Size)}
	} else {
		mid := d.cfg.Size / 2
		hi := d.cfg.Size - 1
		d.pos = [2]int{
			common.Clamp(mid-d.cfg.Offset, 0, hi),
			common.Clamp(mid+d.cfg.Offset, 0, hi),
		}
	}
	d.steps = 0
	d.done = false
	return d.State()
}

func (d *Duel) State() State {
	return State{Size: d.cfg.Size, Pos: d.pos, Fighters: 2}
}

func (d *Duel) ActionSize() int  { return ActionCount }
func (d *Duel) StateCount() int  { return StateCount(d.cfg.Size, 2) }
func (d *Duel) FeatureSize() int { return 2 }

// Steps returns the number of accepted steps since the last Reset
func (d *Duel) Steps() int { return d.steps }

// StepJoint moves both fighters at once. If either action is invalid neither
// fighter moves.
func (d *Duel) StepJoint(a, b Action) (Outcome, error) {
	actions := [2]Action{a, b}
	for i, act := range actions {
		if err := act.Validate(); err != nil {
			return Outcome{}, WrapActionError(i, act, err)
		}
	}
	if d.done {
		return Outcome{}, ErrEpisodeOver
	}

	hi := d.cfg.Size - 1
	for i, act := range actions {
		d.pos[i] = common.Clamp(d.pos[i]+act.Delta(facing[i]), 0, hi)
	}
	d.steps++

	s := d.State()
	d.done = d.rules.Terminal(s, d.steps)
	return Outcome{State: s, Rewards: d.rules.Rewards(s), Done: d.done}, nil
}
