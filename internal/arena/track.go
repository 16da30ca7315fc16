package arena

import (
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// TrackConfig describes a single shared token on a line of Size cells
type TrackConfig struct {
	Size  int
	Start StartMode
	// StartCell is used when Start is StartFixed
	StartCell int
}

// Track is the alternating arena: agents take turns moving one token and
// rewards are zero-sum.
type Track struct {
	cfg   TrackConfig
	rules Rules
	rng   *rand.Rand

	pos   int
	steps int
	done  bool
}

var _ TurnEnvironment = (*Track)(nil)

func NewTrack(cfg TrackConfig, rules Rules, rng *rand.Rand) (*Track, error) {
	if cfg.Size < 2 {
		return nil, fmt.Errorf("%w: track size must be at least 2, got %d", common.ErrInvalidConfig, cfg.Size)
	}
	if err := common.RequireOneOf("start", string(cfg.Start), string(StartRandom), string(StartFixed)); err != nil {
		return nil, err
	}
	if cfg.Start == StartFixed && !common.IsValidCell(cfg.StartCell, cfg.Size) {
		return nil, fmt.Errorf("%w: start cell %d outside track of size %d", common.ErrInvalidConfig, cfg.StartCell, cfg.Size)
	}
	if rules == nil || rng == nil {
		return nil, fmt.Errorf("%w: track requires rules and a random source", common.ErrInvalidConfig)
	}
	t := &Track{cfg: cfg, rules: rules, rng: rng}
	t.Reset()
	return t, nil
}

func (t *Track) Reset() State {
	if t.cfg.Start == StartFixed {
		t.pos = t.cfg.StartCell
	} else {
		t.pos = t.rng.Intn(t.cfg.Size)
	}
	t.steps = 0
	t.done = false
	return t.State()
}

func (t *Track) State() State {
	return State{Size: t.cfg.Size, Pos: [2]int{t.pos}, Fighters: 1}
}

func (t *Track) ActionSize() int  { return ActionCount }
func (t *Track) StateCount() int  { return StateCount(t.cfg.Size, 1) }
func (t *Track) FeatureSize() int { return 1 }

// Steps returns the number of accepted steps since the last Reset
func (t *Track) Steps() int { return t.steps }

// Step moves the token. Invalid actions leave the track untouched.
func (t *Track) Step(action Action) (Outcome, error) {
	if err := action.Validate(); err != nil {
		return Outcome{}, err
	}
	if t.done {
		return Outcome{}, ErrEpisodeOver
	}

	t.pos = common.Clamp(t.pos+action.Delta(1), 0, t.cfg.Size-1)
	t.steps++

	s := t.State()
	t.done = t.rules.Terminal(s, t.steps)
	return Outcome{State: s, Rewards: t.rules.Rewards(s), Done: t.done}, nil
}
