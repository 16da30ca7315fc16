package arena

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrack(t *testing.T, start int, reward RewardShape, target int) *Track {
	t.Helper()
	rules, err := NewRules(RulesConfig{Reward: reward, Termination: TerminateBoundary, Target: target}, 10)
	require.NoError(t, err)
	track, err := NewTrack(TrackConfig{Size: 10, Start: StartFixed, StartCell: start}, rules, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return track
}

func TestTrackStepMovesToken(t *testing.T) {
	track := newTestTrack(t, 5, RewardPositional, 9)

	out, err := track.Step(Advance)
	require.NoError(t, err)
	assert.Equal(t, 6, out.State.Pos[0])
	assert.False(t, out.Done)

	out, err = track.Step(Hold)
	require.NoError(t, err)
	assert.Equal(t, 6, out.State.Pos[0])

	out, err = track.Step(Retreat)
	require.NoError(t, err)
	assert.Equal(t, 5, out.State.Pos[0])
	assert.Equal(t, 3, track.Steps())
}

func TestTrackReachesTarget(t *testing.T) {
	track := newTestTrack(t, 5, RewardPositional, 9)

	var out Outcome
	var err error
	for i := 0; i < 4; i++ {
		out, err = track.Step(Advance)
		require.NoError(t, err)
	}
	assert.True(t, out.Done)
	assert.Equal(t, 9, out.State.Pos[0])
	assert.Equal(t, [2]float64{1, -1}, out.Rewards)

	_, err = track.Step(Advance)
	assert.ErrorIs(t, err, ErrEpisodeOver)

	s := track.Reset()
	assert.Equal(t, 5, s.Pos[0])
	assert.Zero(t, track.Steps())
}

func TestTrackInvalidActionLeavesStateUnchanged(t *testing.T) {
	track := newTestTrack(t, 5, RewardPositional, 9)
	before := track.State()

	_, err := track.Step(Action(5))
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, before, track.State())
	assert.Zero(t, track.Steps())

	_, err = track.Step(Action(-1))
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, before, track.State())
}

func TestTrackRandomStartStaysInBounds(t *testing.T) {
	rules, err := NewRules(RulesConfig{Reward: RewardPositional, Termination: TerminateBoundary, Target: 5}, 10)
	require.NoError(t, err)
	track, err := NewTrack(TrackConfig{Size: 10, Start: StartRandom}, rules, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		s := track.Reset()
		assert.True(t, s.Valid())
		assert.Equal(t, 1, s.Fighters)
	}
	assert.Equal(t, 10, track.StateCount())
	assert.Equal(t, 1, track.FeatureSize())
	assert.Equal(t, ActionCount, track.ActionSize())
}

func TestTrackClipsAtBoundary(t *testing.T) {
	rules, err := NewRules(RulesConfig{Reward: RewardPositional, Termination: TerminateBudget, Budget: 10, Target: 5}, 10)
	require.NoError(t, err)
	track, err := NewTrack(TrackConfig{Size: 10, Start: StartFixed, StartCell: 0}, rules, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out, err := track.Step(Retreat)
	require.NoError(t, err)
	assert.Equal(t, 0, out.State.Pos[0])
	assert.False(t, out.Done)
}
