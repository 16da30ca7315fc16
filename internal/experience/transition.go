package experience

import "github.com/mitchelldurbincs/selfplay-rl/internal/arena"

// Transition is one observed step from a single agent's point of view
type Transition struct {
	State     arena.State  `json:"state"`
	Action    arena.Action `json:"action"`
	Reward    float64      `json:"reward"`
	NextState arena.State  `json:"next_state"`
	Done      bool         `json:"done"`
}
