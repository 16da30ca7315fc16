package experience

import (
	"github.com/google/uuid"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
)

// EpisodeRecord is the full trajectory of one episode. States has one more
// entry than Actions and Rewards: it starts with the reset state.
type EpisodeRecord struct {
	ID      uuid.UUID         `json:"id"`
	Episode int               `json:"episode"`
	States  []arena.State     `json:"states"`
	Actions [][2]arena.Action `json:"actions"`
	Rewards [][2]float64      `json:"rewards"`
	Return  float64           `json:"return"`
}

// NewEpisodeRecord starts a record at the given reset state
func NewEpisodeRecord(episode int, initial arena.State) *EpisodeRecord {
	return &EpisodeRecord{
		ID:      uuid.New(),
		Episode: episode,
		States:  []arena.State{initial},
	}
}

// Append adds one step. Return accumulates agent 0's reward.
func (r *EpisodeRecord) Append(actions [2]arena.Action, rewards [2]float64, next arena.State) {
	r.Actions = append(r.Actions, actions)
	r.Rewards = append(r.Rewards, rewards)
	r.States = append(r.States, next)
	r.Return += rewards[0]
}

// Steps returns the number of recorded steps
func (r EpisodeRecord) Steps() int {
	return len(r.Actions)
}

// Clone returns a deep copy so callers can keep a record past the next episode
func (r EpisodeRecord) Clone() EpisodeRecord {
	out := r
	out.States = append([]arena.State(nil), r.States...)
	out.Actions = append([][2]arena.Action(nil), r.Actions...)
	out.Rewards = append([][2]float64(nil), r.Rewards...)
	return out
}
