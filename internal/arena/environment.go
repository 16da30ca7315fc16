package arena

// Environment is the part of an arena every trainer relies on regardless of
// how agents take turns.
type Environment interface {
	Reset() State
	State() State
	ActionSize() int
	StateCount() int
	FeatureSize() int
}

// TurnEnvironment advances one shared state with a single agent's action
type TurnEnvironment interface {
	Environment
	Step(action Action) (Outcome, error)
}

// JointEnvironment advances both fighters in lock-step
type JointEnvironment interface {
	Environment
	StepJoint(a, b Action) (Outcome, error)
}

// Outcome is the result of one step. Rewards are indexed by agent.
type Outcome struct {
	State   State
	Rewards [2]float64
	Done    bool
}

// StartMode selects how Reset places fighters
type StartMode string

const (
	StartRandom StartMode = "random"
	StartFixed  StartMode = "fixed"
)
