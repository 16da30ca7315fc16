// Package agent implements an epsilon-greedy learner around a value function.
package agent

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
	"github.com/mitchelldurbincs/selfplay-rl/internal/valuefn"
)

// Options configures an agent. Replay settings only apply to batch learners.
type Options struct {
	Exploration    Exploration
	BatchSize      int
	MinReplay      int
	ReplayCapacity int
	Seed           int64
}

func (o Options) Validate() error {
	if err := o.Exploration.Validate(); err != nil {
		return err
	}
	if err := common.RequirePositive("batch size", o.BatchSize); err != nil {
		return err
	}
	if err := common.RequireNonNegative("min replay", o.MinReplay); err != nil {
		return err
	}
	return common.RequirePositive("replay capacity", o.ReplayCapacity)
}

// validateReplay rejects replay settings under which a batch learner would
// never train
func (o Options) validateReplay() error {
	if o.MinReplay >= o.ReplayCapacity {
		return fmt.Errorf("%w: min replay %d must be below replay capacity %d",
			common.ErrInvalidConfig, o.MinReplay, o.ReplayCapacity)
	}
	if o.BatchSize > o.ReplayCapacity {
		return fmt.Errorf("%w: batch size %d exceeds replay capacity %d",
			common.ErrInvalidConfig, o.BatchSize, o.ReplayCapacity)
	}
	return nil
}

// Learned reports what an observation did to the value function
type Learned struct {
	Updated bool
	Loss    float64
}

// Stats are running counters for one agent
type Stats struct {
	Observed int64
	Updates  int64
	Skipped  int64
	LastLoss float64
}

// Agent owns its value function, exploration schedule and replay memory.
// It is not safe for concurrent use.
type Agent struct {
	id      int
	vf      valuefn.ValueFunction
	online  valuefn.OnlineLearner
	batch   valuefn.BatchLearner
	memory  *experience.ReplayMemory
	explore Exploration
	opts    Options
	rng     *rand.Rand
	stats   Stats
	logger  zerolog.Logger
}

func New(id int, vf valuefn.ValueFunction, opts Options, logger zerolog.Logger) (*Agent, error) {
	if vf == nil {
		return nil, fmt.Errorf("%w: agent %d has no value function", common.ErrInvalidConfig, id)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}

	a := &Agent{
		id:      id,
		vf:      vf,
		explore: opts.Exploration,
		opts:    opts,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		logger:  logger.With().Str("component", "agent").Int("agent_id", id).Logger(),
	}

	switch learner := vf.(type) {
	case valuefn.OnlineLearner:
		a.online = learner
	case valuefn.BatchLearner:
		if err := opts.validateReplay(); err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		a.batch = learner
		mem, err := experience.NewReplayMemory(opts.ReplayCapacity, uint64(opts.Seed)+uint64(id)+1, logger)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		a.memory = mem
	default:
		return nil, fmt.Errorf("%w: agent %d value function cannot learn", common.ErrInvalidConfig, id)
	}
	return a, nil
}

func (a *Agent) ID() int                              { return a.id }
func (a *Agent) ValueFunction() valuefn.ValueFunction { return a.vf }
func (a *Agent) Epsilon() float64                     { return a.explore.Epsilon }
func (a *Agent) Stats() Stats                         { return a.stats }

// Memory returns the agent's replay memory, or nil for online learners
func (a *Agent) Memory() *experience.ReplayMemory { return a.memory }

// SelectAction explores with probability epsilon and otherwise acts greedily
func (a *Agent) SelectAction(s arena.State) (arena.Action, error) {
	if a.rng.Float64() < a.explore.Epsilon {
		return arena.Action(a.rng.Intn(a.vf.ActionSize())), nil
	}
	return a.vf.BestAction(s)
}

// Greedy picks the best known action without exploring
func (a *Agent) Greedy(s arena.State) (arena.Action, error) {
	return a.vf.BestAction(s)
}

// Observe learns from one of the agent's own transitions. Batch learners
// train only once the memory holds more than MinReplay transitions and skip
// quietly while it cannot fill a batch.
func (a *Agent) Observe(t experience.Transition) (Learned, error) {
	a.stats.Observed++

	if a.online != nil {
		if err := a.online.Update(t); err != nil {
			return Learned{}, fmt.Errorf("agent %d update: %w", a.id, err)
		}
		a.stats.Updates++
		return Learned{Updated: true}, nil
	}

	a.memory.Push(t)
	if a.memory.Len() <= a.opts.MinReplay {
		return Learned{}, nil
	}

	batch, err := a.memory.Sample(a.opts.BatchSize)
	if errors.Is(err, experience.ErrInsufficientMemory) {
		a.stats.Skipped++
		return Learned{}, nil
	}
	if err != nil {
		return Learned{}, fmt.Errorf("agent %d sample: %w", a.id, err)
	}

	loss, err := a.batch.Train(batch)
	if err != nil {
		return Learned{}, fmt.Errorf("agent %d train: %w", a.id, err)
	}
	a.stats.Updates++
	a.stats.LastLoss = loss
	return Learned{Updated: true, Loss: loss}, nil
}

// DecayExploration applies one step of the schedule. Call once per episode.
func (a *Agent) DecayExploration() {
	prev := a.explore.Epsilon
	a.explore = a.explore.next()
	if a.explore.Epsilon != prev && a.explore.Epsilon == a.explore.Min {
		a.logger.Debug().Float64("epsilon", a.explore.Epsilon).Msg("Exploration reached its floor")
	}
}
