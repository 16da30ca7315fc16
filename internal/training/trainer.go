// Package training runs two agents against each other in one arena and
// keeps the best episode seen so far.
package training

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/agent"
	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// Visualizer receives the best episode so far. It must not modify the record.
type Visualizer interface {
	Render(episode int, best experience.EpisodeRecord) error
}

// EpisodeResult summarizes one finished episode
type EpisodeResult struct {
	Episode int
	Steps   int
	// Return is agent 0's cumulative reward
	Return float64
	// Truncated is set when the step budget ended the episode
	Truncated bool
	// NewBest is set when this episode replaced the best record
	NewBest bool
	Epsilon [2]float64
	// Loss is each agent's mean training loss over the episode
	Loss [2]float64
}

// Summary is returned by Run
type Summary struct {
	RunID       string
	Episodes    int
	BestEpisode int
	BestReturn  float64
	MeanReturn  float64
	Duration    time.Duration
}

type Option func(*Trainer)

func WithVisualizer(v Visualizer) Option {
	return func(t *Trainer) { t.viz = v }
}

// WithCheckpoints saves both value functions to store periodically
func WithCheckpoints(store checkpoint.Store) Option {
	return func(t *Trainer) { t.store = store }
}

// WithArchive appends every new best episode to archive
func WithArchive(archive *experience.Archive) Option {
	return func(t *Trainer) { t.archive = archive }
}

func WithEvents(bus events.Publisher) Option {
	return func(t *Trainer) { t.bus = bus }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

func WithRunID(id string) Option {
	return func(t *Trainer) { t.runID = id }
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// Trainer drives self-play. It is single-threaded: the environment, both
// agents and the best record are only touched from the iterating goroutine.
type Trainer struct {
	cfg    Config
	env    arena.Environment
	turn   arena.TurnEnvironment
	joint  arena.JointEnvironment
	agents [2]*agent.Agent

	best      *experience.EpisodeRecord
	completed int

	viz     Visualizer
	store   checkpoint.Store
	archive *experience.Archive
	bus     events.Publisher
	runID   string
	logger  zerolog.Logger
}

func New(cfg Config, env arena.Environment, agents [2]*agent.Agent, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%w: environment is required", common.ErrInvalidConfig)
	}
	for i, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("%w: agent %d is missing", common.ErrInvalidConfig, i)
		}
		if a.ValueFunction().ActionSize() != env.ActionSize() {
			return nil, fmt.Errorf("%w: agent %d has %d actions, arena has %d",
				common.ErrInvalidConfig, i, a.ValueFunction().ActionSize(), env.ActionSize())
		}
	}
	if agents[0] == agents[1] {
		return nil, fmt.Errorf("%w: agents must not share state", common.ErrInvalidConfig)
	}

	t := &Trainer{
		cfg:    cfg,
		env:    env,
		agents: agents,
		bus:    nopPublisher{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.runID == "" {
		t.runID = uuid.NewString()
	}
	t.logger = t.logger.With().Str("component", "trainer").Str("run_id", t.runID).Logger()

	switch cfg.Stepping {
	case arena.Alternating:
		turn, ok := env.(arena.TurnEnvironment)
		if !ok {
			return nil, fmt.Errorf("%w: alternating stepping needs a turn-based arena", common.ErrInvalidConfig)
		}
		t.turn = turn
	case arena.Simultaneous:
		joint, ok := env.(arena.JointEnvironment)
		if !ok {
			return nil, fmt.Errorf("%w: simultaneous stepping needs a joint arena", common.ErrInvalidConfig)
		}
		t.joint = joint
	}
	return t, nil
}

func (t *Trainer) RunID() string { return t.runID }

// Agents returns both agents in seat order
func (t *Trainer) Agents() [2]*agent.Agent { return t.agents }

// Best returns a copy of the best episode so far
func (t *Trainer) Best() (experience.EpisodeRecord, bool) {
	if t.best == nil {
		return experience.EpisodeRecord{}, false
	}
	return t.best.Clone(), true
}

// Episodes returns the remaining training episodes as a lazy sequence. Each
// iteration plays one episode, updates both agents and the best record, and
// runs the periodic hooks. The sequence stops after the first error, which is
// yielded; the context is checked between episodes.
func (t *Trainer) Episodes(ctx context.Context) iter.Seq2[EpisodeResult, error] {
	return func(yield func(EpisodeResult, error) bool) {
		for t.completed < t.cfg.Episodes {
			episode := t.completed + 1
			if err := ctx.Err(); err != nil {
				yield(EpisodeResult{Episode: episode}, err)
				return
			}

			res, rec, err := t.play(episode, true)
			if err != nil {
				yield(res, err)
				return
			}
			t.completed = episode

			if err := t.afterEpisode(ctx, &res, rec); err != nil {
				yield(res, err)
				return
			}
			if !yield(res, nil) {
				return
			}
		}
	}
}

// Run drains Episodes and reports the outcome
func (t *Trainer) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	t.bus.Publish(events.NewRunStartedEvent(t.runID, t.cfg.Episodes, string(t.cfg.Stepping), t.valueFunctionKind()))

	sum := Summary{RunID: t.runID}
	var total float64
	var runErr error
	for res, err := range t.Episodes(ctx) {
		if err != nil {
			runErr = err
			break
		}
		sum.Episodes++
		total += res.Return
	}

	if sum.Episodes > 0 {
		sum.MeanReturn = total / float64(sum.Episodes)
	}
	if t.best != nil {
		sum.BestEpisode = t.best.Episode
		sum.BestReturn = t.best.Return
	}
	sum.Duration = time.Since(start)

	t.bus.Publish(events.NewRunFinishedEvent(t.runID, sum.Episodes, sum.BestReturn, sum.Duration, runErr))
	return sum, runErr
}

func (t *Trainer) valueFunctionKind() string {
	return string(t.agents[0].ValueFunction().Snapshot().Kind)
}

type lossMean struct {
	sum float64
	n   int
}

func (l *lossMean) add(learned agent.Learned) {
	if learned.Updated {
		l.sum += learned.Loss
		l.n++
	}
}

func (l lossMean) value() float64 {
	if l.n == 0 {
		return 0
	}
	return l.sum / float64(l.n)
}

// play runs one episode. With learn unset both agents act greedily and
// nothing is observed.
func (t *Trainer) play(episode int, learn bool) (EpisodeResult, *experience.EpisodeRecord, error) {
	s := t.env.Reset()
	rec := experience.NewEpisodeRecord(episode, s)
	res := EpisodeResult{Episode: episode}
	var losses [2]lossMean

	done := false
	for !done && res.Steps < t.cfg.MaxSteps {
		var (
			out     arena.Outcome
			actions = [2]arena.Action{arena.NoAction, arena.NoAction}
			err     error
		)

		switch t.cfg.Stepping {
		case arena.Simultaneous:
			for i := range t.agents {
				if actions[i], err = t.choose(i, s, learn); err != nil {
					return res, nil, t.stepError(episode, res.Steps, err)
				}
			}
			if out, err = t.joint.StepJoint(actions[0], actions[1]); err != nil {
				return res, nil, t.stepError(episode, res.Steps, err)
			}
			if learn {
				for i, a := range t.agents {
					learned, err := a.Observe(experience.Transition{
						State: s, Action: actions[i], Reward: out.Rewards[i], NextState: out.State, Done: out.Done,
					})
					if err != nil {
						return res, nil, t.stepError(episode, res.Steps, err)
					}
					losses[i].add(learned)
				}
			}

		default:
			active := res.Steps % 2
			if actions[active], err = t.choose(active, s, learn); err != nil {
				return res, nil, t.stepError(episode, res.Steps, err)
			}
			if out, err = t.turn.Step(actions[active]); err != nil {
				return res, nil, t.stepError(episode, res.Steps, arena.WrapActionError(active, actions[active], err))
			}
			if learn {
				learned, err := t.agents[active].Observe(experience.Transition{
					State: s, Action: actions[active], Reward: out.Rewards[active], NextState: out.State, Done: out.Done,
				})
				if err != nil {
					return res, nil, t.stepError(episode, res.Steps, err)
				}
				losses[active].add(learned)
			}
		}

		rec.Append(actions, out.Rewards, out.State)
		s = out.State
		done = out.Done
		res.Steps++
	}

	res.Return = rec.Return
	res.Truncated = !done
	res.Loss = [2]float64{losses[0].value(), losses[1].value()}
	return res, rec, nil
}

func (t *Trainer) choose(i int, s arena.State, explore bool) (arena.Action, error) {
	if explore {
		return t.agents[i].SelectAction(s)
	}
	return t.agents[i].Greedy(s)
}

func (t *Trainer) stepError(episode, step int, err error) error {
	return fmt.Errorf("episode %d step %d: %w", episode, step, err)
}

// afterEpisode decays exploration, tracks the best record and runs the
// periodic visualization and checkpoint hooks
func (t *Trainer) afterEpisode(ctx context.Context, res *EpisodeResult, rec *experience.EpisodeRecord) error {
	for i, a := range t.agents {
		a.DecayExploration()
		res.Epsilon[i] = a.Epsilon()
	}

	if t.best == nil || rec.Return > t.best.Return {
		previous := 0.0
		if t.best != nil {
			previous = t.best.Return
		}
		t.best = rec
		res.NewBest = true
		t.bus.Publish(events.NewBestEpisodeEvent(t.runID, rec.Episode, rec.Return, previous, rec.ID.String()))

		if t.archive != nil {
			if err := t.archive.Write(ctx, rec.Clone()); err != nil {
				return fmt.Errorf("archive episode %d: %w", rec.Episode, err)
			}
		}
	}

	t.bus.Publish(events.NewEpisodeCompletedEvent(t.runID, res.Episode, res.Steps, res.Return, res.Epsilon, res.Loss))
	t.logger.Debug().
		Int("episode", res.Episode).
		Int("steps", res.Steps).
		Float64("return", res.Return).
		Bool("truncated", res.Truncated).
		Msg("Episode finished")

	if t.viz != nil && res.Episode%t.cfg.VisualizeEvery == 0 {
		if err := t.viz.Render(res.Episode, t.best.Clone()); err != nil {
			t.logger.Warn().Err(err).Int("episode", res.Episode).Msg("Visualization failed")
		} else {
			t.bus.Publish(events.NewVisualizedEvent(t.runID, res.Episode, t.best.Episode))
		}
	}

	if t.store != nil && res.Episode%t.cfg.checkpointInterval() == 0 {
		if err := t.saveCheckpoints(ctx, res.Episode); err != nil {
			return err
		}
	}
	return nil
}

func (t *Trainer) checkpointPrefix() string {
	if t.cfg.CheckpointPrefix != "" {
		return t.cfg.CheckpointPrefix
	}
	return t.runID
}

func (t *Trainer) saveCheckpoints(ctx context.Context, episode int) error {
	for i, a := range t.agents {
		name := checkpoint.AgentName(t.checkpointPrefix(), i)
		if err := checkpoint.Save(ctx, t.store, name, a.ValueFunction()); err != nil {
			return fmt.Errorf("checkpoint agent %d at episode %d: %w", i, episode, err)
		}
		t.bus.Publish(events.NewCheckpointSavedEvent(t.runID, episode, name))
	}
	return nil
}
