package valuefn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

func trackState(pos int) arena.State {
	return arena.State{Size: 10, Pos: [2]int{pos}, Fighters: 1}
}

func newTestTable(t *testing.T, alpha, gamma float64) *Table {
	t.Helper()
	table, err := NewTable(TableConfig{States: 10, Actions: arena.ActionCount, LearningRate: alpha, Discount: gamma})
	require.NoError(t, err)
	return table
}

func TestTable_EstimateCoversEveryState(t *testing.T) {
	table := newTestTable(t, 0.1, 0.9)
	for pos := 0; pos < 10; pos++ {
		values, err := table.Estimate(trackState(pos))
		require.NoError(t, err)
		assert.Len(t, values, arena.ActionCount)
	}
}

func TestTable_RejectsForeignStates(t *testing.T) {
	table := newTestTable(t, 0.1, 0.9)

	tests := []struct {
		name  string
		state arena.State
	}{
		{"out of range", arena.State{Size: 10, Pos: [2]int{10}, Fighters: 1}},
		{"negative", arena.State{Size: 10, Pos: [2]int{-1}, Fighters: 1}},
		{"wrong arena", arena.State{Size: 5, Pos: [2]int{1, 2}, Fighters: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Estimate(tt.state)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestTable_EstimateReturnsCopy(t *testing.T) {
	table := newTestTable(t, 0.1, 0.9)
	values, err := table.Estimate(trackState(3))
	require.NoError(t, err)
	values[0] = 99

	again, err := table.Estimate(trackState(3))
	require.NoError(t, err)
	assert.Zero(t, again[0])
}

func TestTable_BestActionPrefersLowestIndexOnTies(t *testing.T) {
	table := newTestTable(t, 0.1, 0.9)

	a, err := table.BestAction(trackState(4))
	require.NoError(t, err)
	assert.Equal(t, arena.Retreat, a)

	require.NoError(t, table.Set(trackState(4), arena.Hold, 2))
	require.NoError(t, table.Set(trackState(4), arena.Advance, 2))
	a, err = table.BestAction(trackState(4))
	require.NoError(t, err)
	assert.Equal(t, arena.Hold, a)
}

func TestTable_UpdateMatchesFormula(t *testing.T) {
	table := newTestTable(t, 0.5, 0.9)
	require.NoError(t, table.Set(trackState(6), arena.Hold, 4))
	require.NoError(t, table.Set(trackState(5), arena.Advance, 1))

	tr := experience.Transition{State: trackState(5), Action: arena.Advance, Reward: 2, NextState: trackState(6)}
	require.NoError(t, table.Update(tr))

	values, err := table.Estimate(trackState(5))
	require.NoError(t, err)
	// 1 + 0.5 * (2 + 0.9*4 - 1)
	assert.InDelta(t, 3.3, values[arena.Advance], 1e-12)
	assert.Zero(t, values[arena.Retreat])
}

func TestTable_ContractsTowardFixedPoint(t *testing.T) {
	const reward, gamma = 1.0, 0.9
	table := newTestTable(t, 0.5, gamma)
	tr := experience.Transition{State: trackState(2), Action: arena.Hold, Reward: reward, NextState: trackState(2)}
	fixed := reward / (1 - gamma)

	prev := 0.0
	for i := 0; i < 300; i++ {
		require.NoError(t, table.Update(tr))
		values, err := table.Estimate(trackState(2))
		require.NoError(t, err)
		q := values[arena.Hold]
		assert.GreaterOrEqual(t, q, prev, "step %d", i)
		assert.LessOrEqual(t, q, fixed+1e-9, "step %d", i)
		prev = q
	}
	assert.InDelta(t, fixed, prev, 1e-3)
}

func TestTable_UpdateRejectsInvalidAction(t *testing.T) {
	table := newTestTable(t, 0.5, 0.9)
	err := table.Update(experience.Transition{State: trackState(1), Action: 3, NextState: trackState(2)})
	assert.ErrorIs(t, err, arena.ErrInvalidAction)
}

func TestTable_SnapshotRoundTrip(t *testing.T) {
	table := newTestTable(t, 0.5, 0.9)
	for pos := 0; pos < 10; pos++ {
		require.NoError(t, table.Set(trackState(pos), arena.Action(pos%3), float64(pos)+0.25))
	}

	fresh := newTestTable(t, 0.5, 0.9)
	require.NoError(t, fresh.Restore(table.Snapshot()))
	for pos := 0; pos < 10; pos++ {
		want, err := table.Estimate(trackState(pos))
		require.NoError(t, err)
		got, err := fresh.Estimate(trackState(pos))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := NewTable(TableConfig{States: 25, Actions: 3, LearningRate: 0.5, Discount: 0.9})
	require.NoError(t, err)
	assert.ErrorIs(t, other.Restore(table.Snapshot()), ErrShapeMismatch)
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  TableConfig
	}{
		{"no states", TableConfig{States: 0, Actions: 3, LearningRate: 0.1, Discount: 0.9}},
		{"zero rate", TableConfig{States: 3, Actions: 3, LearningRate: 0, Discount: 0.9}},
		{"discount above one", TableConfig{States: 3, Actions: 3, LearningRate: 0.1, Discount: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.cfg)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}
