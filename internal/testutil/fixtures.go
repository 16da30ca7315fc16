package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
)

// TrackState builds a single-token state
func TrackState(size, pos int) arena.State {
	return arena.State{Size: size, Pos: [2]int{pos}, Fighters: 1}
}

// DuelState builds a two-fighter state
func DuelState(size, a, b int) arena.State {
	return arena.State{Size: size, Pos: [2]int{a, b}, Fighters: 2}
}

// AllStates enumerates every state of an arena shape in Index order
func AllStates(size, fighters int) []arena.State {
	var states []arena.State
	if fighters == 1 {
		for p := 0; p < size; p++ {
			states = append(states, TrackState(size, p))
		}
		return states
	}
	for a := 0; a < size; a++ {
		for b := 0; b < size; b++ {
			states = append(states, DuelState(size, a, b))
		}
	}
	return states
}

// NewTestTrack creates a fixed-start track with positional rewards on target
// and boundary termination
func NewTestTrack(t *testing.T, size, start, target int) *arena.Track {
	t.Helper()
	rules, err := arena.NewRules(arena.RulesConfig{
		Reward:      arena.RewardPositional,
		Termination: arena.TerminateBoundary,
		Target:      target,
	}, size)
	require.NoError(t, err)

	track, err := arena.NewTrack(arena.TrackConfig{Size: size, Start: arena.StartFixed, StartCell: start}, rules, NewTestRNG(1))
	require.NoError(t, err)
	return track
}

// NewTestDuel creates a fixed-start duel with the given reward shape and
// boundary termination
func NewTestDuel(t *testing.T, size, offset int, reward arena.RewardShape) *arena.Duel {
	t.Helper()
	rules, err := arena.NewRules(arena.RulesConfig{
		Reward:      reward,
		Termination: arena.TerminateBoundary,
		Target:      size / 2,
	}, size)
	require.NoError(t, err)

	duel, err := arena.NewDuel(arena.DuelConfig{Size: size, Start: arena.StartFixed, Offset: offset}, rules, NewTestRNG(1))
	require.NoError(t, err)
	return duel
}
