package training

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/selfplay-rl/internal/agent"
	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
	"github.com/mitchelldurbincs/selfplay-rl/internal/testutil"
	"github.com/mitchelldurbincs/selfplay-rl/internal/valuefn"
)

func newTableAgents(t *testing.T, states int, exploration agent.Exploration) [2]*agent.Agent {
	t.Helper()
	var agents [2]*agent.Agent
	for i := range agents {
		table, err := valuefn.NewTable(valuefn.TableConfig{States: states, Actions: arena.ActionCount, LearningRate: 0.1, Discount: 0.95})
		require.NoError(t, err)
		agents[i], err = agent.New(i, table, agent.Options{
			Exploration:    exploration,
			BatchSize:      1,
			ReplayCapacity: 1,
			Seed:           int64(i + 1),
		}, testutil.NopLogger())
		require.NoError(t, err)
	}
	return agents
}

func newNetworkAgents(t *testing.T, features int) [2]*agent.Agent {
	t.Helper()
	var agents [2]*agent.Agent
	for i := range agents {
		net, err := valuefn.NewNetwork(valuefn.NetworkConfig{
			Features: features, Actions: arena.ActionCount, Hidden: []int{8, 8},
			LearningRate: 0.01, Discount: 0.9, TargetSyncInterval: 5, Seed: uint64(i),
		})
		require.NoError(t, err)
		agents[i], err = agent.New(i, net, agent.Options{
			Exploration:    agent.Exploration{Epsilon: 1, Min: 0.1, Decay: 0.9},
			BatchSize:      8,
			MinReplay:      16,
			ReplayCapacity: 200,
			Seed:           int64(i + 10),
		}, testutil.NopLogger())
		require.NoError(t, err)
	}
	return agents
}

func randomTrack(t *testing.T, size int) *arena.Track {
	t.Helper()
	rules, err := arena.NewRules(arena.RulesConfig{Reward: arena.RewardPositional, Termination: arena.TerminateBoundary, Target: size / 2}, size)
	require.NoError(t, err)
	track, err := arena.NewTrack(arena.TrackConfig{Size: size, Start: arena.StartRandom}, rules, testutil.NewTestRNG(3))
	require.NoError(t, err)
	return track
}

func baseConfig(episodes int, stepping arena.Stepping) Config {
	return Config{Episodes: episodes, MaxSteps: 200, VisualizeEvery: 100, Stepping: stepping}
}

type countingViz struct {
	episodes []int
	best     []experience.EpisodeRecord
}

func (v *countingViz) Render(episode int, best experience.EpisodeRecord) error {
	v.episodes = append(v.episodes, episode)
	v.best = append(v.best, best)
	return nil
}

func TestTrainer_RandomSelfPlayProducesBestRecord(t *testing.T) {
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 1, Decay: 1})
	viz := &countingViz{}
	trainer, err := New(baseConfig(10000, arena.Alternating), randomTrack(t, 10), agents, WithVisualizer(viz))
	require.NoError(t, err)

	maxReturn := -1e18
	count := 0
	for res, err := range trainer.Episodes(context.Background()) {
		require.NoError(t, err)
		count++
		if res.Return > maxReturn {
			maxReturn = res.Return
		}
	}
	assert.Equal(t, 10000, count)

	best, ok := trainer.Best()
	require.True(t, ok)
	assert.NotEmpty(t, best.States)
	assert.Equal(t, maxReturn, best.Return)
	assert.Len(t, best.States, best.Steps()+1)
	assert.Len(t, viz.episodes, 100)
	assert.Equal(t, 1.0, agents[0].Epsilon())
}

func TestTrainer_GreedyOptimalPolicyTakesShortestPath(t *testing.T) {
	track := testutil.NewTestTrack(t, 10, 5, 9)
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 0, Min: 0, Decay: 1})
	for _, a := range agents {
		table := a.ValueFunction().(*valuefn.Table)
		for _, s := range testutil.AllStates(10, 1) {
			require.NoError(t, table.Set(s, arena.Advance, 1))
		}
	}

	trainer, err := New(baseConfig(1, arena.Alternating), track, agents)
	require.NoError(t, err)

	ev, err := trainer.Evaluate(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, ev.Results, 20)
	for _, res := range ev.Results {
		assert.Equal(t, 4, res.Steps)
		assert.False(t, res.Truncated)
	}
	assert.Equal(t, 4.0, ev.MeanSteps)
}

func TestTrainer_AlternatingRecordsMoverOnly(t *testing.T) {
	track := testutil.NewTestTrack(t, 10, 5, 9)
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 0, Min: 0, Decay: 1})
	for _, a := range agents {
		for _, s := range testutil.AllStates(10, 1) {
			require.NoError(t, a.ValueFunction().(*valuefn.Table).Set(s, arena.Advance, 1))
		}
	}
	trainer, err := New(baseConfig(1, arena.Alternating), track, agents)
	require.NoError(t, err)

	_, err = trainer.Run(context.Background())
	require.NoError(t, err)

	best, ok := trainer.Best()
	require.True(t, ok)
	require.Equal(t, 4, best.Steps())
	for i, acts := range best.Actions {
		mover := i % 2
		assert.NotEqual(t, arena.NoAction, acts[mover])
		assert.Equal(t, arena.NoAction, acts[1-mover])
	}
	// the final move lands on the target: +1 for agent 0, -1 for agent 1
	assert.Equal(t, [2]float64{1, -1}, best.Rewards[3])
	assert.Equal(t, 1.0, best.Return)
}

func TestTrainer_SimultaneousNetworkRun(t *testing.T) {
	duel := testutil.NewTestDuel(t, 10, 2, arena.RewardProximity)
	agents := newNetworkAgents(t, 2)
	cfg := baseConfig(60, arena.Simultaneous)
	cfg.MaxSteps = 30
	cfg.VisualizeEvery = 20

	trainer, err := New(cfg, duel, agents)
	require.NoError(t, err)

	var trained bool
	for res, err := range trainer.Episodes(context.Background()) {
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Steps, 30)
		if res.Loss[0] > 0 || res.Loss[1] > 0 {
			trained = true
		}
	}
	assert.True(t, trained)
	for _, a := range agents {
		assert.Greater(t, a.Memory().Len(), 16)
		assert.Less(t, a.Epsilon(), 1.0)
	}

	best, ok := trainer.Best()
	require.True(t, ok)
	for _, s := range best.States {
		assert.Equal(t, 2, s.Fighters)
	}
}

func TestTrainer_BestReplacedOnlyWhenStrictlyBetter(t *testing.T) {
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 1, Decay: 1})
	trainer, err := New(baseConfig(300, arena.Alternating), randomTrack(t, 10), agents)
	require.NoError(t, err)

	var results []EpisodeResult
	for res, err := range trainer.Episodes(context.Background()) {
		require.NoError(t, err)
		results = append(results, res)
	}

	firstMax := 0
	for i, res := range results {
		if res.Return > results[firstMax].Return {
			firstMax = i
		}
	}
	best, ok := trainer.Best()
	require.True(t, ok)
	assert.Equal(t, results[firstMax].Episode, best.Episode)
	assert.True(t, results[0].NewBest)
}

func TestTrainer_StopAndResumeIteration(t *testing.T) {
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 0.1, Decay: 0.5})
	trainer, err := New(baseConfig(5, arena.Alternating), randomTrack(t, 10), agents)
	require.NoError(t, err)

	var seen []int
	for res, err := range trainer.Episodes(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, res.Episode)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, 0.25, agents[0].Epsilon())

	for res, err := range trainer.Episodes(context.Background()) {
		require.NoError(t, err)
		seen = append(seen, res.Episode)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	assert.Equal(t, 0.1, agents[0].Epsilon())
}

func TestTrainer_ContextCancelled(t *testing.T) {
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 1, Decay: 1})
	trainer, err := New(baseConfig(5, arena.Alternating), randomTrack(t, 10), agents)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := trainer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Episodes)
}

type brokenTrack struct {
	*arena.Track
	failAfter int
	calls     int
}

var errBroken = errors.New("arena broke")

func (b *brokenTrack) Step(a arena.Action) (arena.Outcome, error) {
	b.calls++
	if b.calls > b.failAfter {
		return arena.Outcome{}, errBroken
	}
	return b.Track.Step(a)
}

func TestTrainer_EnvironmentErrorStopsIteration(t *testing.T) {
	env := &brokenTrack{Track: testutil.NewTestTrack(t, 50, 25, 0), failAfter: 3}
	agents := newTableAgents(t, 50, agent.Exploration{Epsilon: 0, Min: 0, Decay: 1})
	trainer, err := New(baseConfig(10, arena.Alternating), env, agents)
	require.NoError(t, err)

	var errs []error
	for _, err := range trainer.Episodes(context.Background()) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errBroken)
	_, ok := trainer.Best()
	assert.False(t, ok)
}

func TestNew_Validation(t *testing.T) {
	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 1, Decay: 1})
	track := randomTrack(t, 10)

	tests := []struct {
		name string
		cfg  Config
		env  arena.Environment
	}{
		{"zero episodes", Config{Episodes: 0, MaxSteps: 10, VisualizeEvery: 1, Stepping: arena.Alternating}, track},
		{"zero visualize interval", Config{Episodes: 1, MaxSteps: 10, VisualizeEvery: 0, Stepping: arena.Alternating}, track},
		{"unknown stepping", Config{Episodes: 1, MaxSteps: 10, VisualizeEvery: 1, Stepping: "both"}, track},
		{"track cannot step jointly", baseConfig(1, arena.Simultaneous), track},
		{"bad prefix", Config{Episodes: 1, MaxSteps: 10, VisualizeEvery: 1, Stepping: arena.Alternating, CheckpointPrefix: "../x"}, track},
		{"prefix too long for agent names", Config{Episodes: 1, MaxSteps: 10, VisualizeEvery: 1, Stepping: arena.Alternating, CheckpointPrefix: strings.Repeat("p", 122)}, track},
		{"missing env", baseConfig(1, arena.Alternating), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.env, agents)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}

	_, err := New(baseConfig(1, arena.Alternating), track, [2]*agent.Agent{agents[0], agents[0]})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestTrainer_PublishesEvents(t *testing.T) {
	bus := events.NewEventBus(testutil.NopLogger())
	counts := make(map[string]int)
	for _, typ := range []string{events.TypeRunStarted, events.TypeEpisodeCompleted, events.TypeBestEpisode, events.TypeVisualized, events.TypeRunFinished, events.TypeCheckpointSaved} {
		bus.SubscribeFunc(typ, func(events.Event) { counts[typ]++ })
	}

	store, err := checkpoint.NewFileStore(t.TempDir(), testutil.NopLogger())
	require.NoError(t, err)

	agents := newTableAgents(t, 10, agent.Exploration{Epsilon: 1, Min: 1, Decay: 1})
	cfg := baseConfig(20, arena.Alternating)
	cfg.VisualizeEvery = 5
	cfg.CheckpointEvery = 10
	trainer, err := New(cfg, randomTrack(t, 10), agents,
		WithEvents(bus), WithVisualizer(&countingViz{}), WithCheckpoints(store), WithRunID("run-x"))
	require.NoError(t, err)

	sum, err := trainer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-x", sum.RunID)
	assert.Equal(t, 20, sum.Episodes)

	assert.Equal(t, 1, counts[events.TypeRunStarted])
	assert.Equal(t, 20, counts[events.TypeEpisodeCompleted])
	assert.GreaterOrEqual(t, counts[events.TypeBestEpisode], 1)
	assert.Equal(t, 4, counts[events.TypeVisualized])
	assert.Equal(t, 4, counts[events.TypeCheckpointSaved])
	assert.Equal(t, 1, counts[events.TypeRunFinished])
}
