// Package valuefn holds action-value estimators: a dense table for small
// arenas and a feed-forward network trained from replayed batches.
package valuefn

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

var (
	ErrInvalidState  = errors.New("state outside value function domain")
	ErrShapeMismatch = errors.New("snapshot shape mismatch")
)

// Kind names a value function representation
type Kind string

const (
	KindTabular     Kind = "tabular"
	KindApproximate Kind = "approximate"
)

// ValueFunction estimates one value per action for a state
type ValueFunction interface {
	Estimate(s arena.State) ([]float64, error)
	// BestAction returns the argmax of Estimate, lowest index on ties
	BestAction(s arena.State) (arena.Action, error)
	ActionSize() int
	Snapshot() Snapshot
	Restore(Snapshot) error
}

// OnlineLearner updates immediately from a single transition
type OnlineLearner interface {
	ValueFunction
	Update(t experience.Transition) error
}

// BatchLearner updates from a sampled batch and reports the loss
type BatchLearner interface {
	ValueFunction
	Train(batch []experience.Transition) (float64, error)
}

// Snapshot is a flat export of a value function's parameters
type Snapshot struct {
	Kind   Kind
	Shape  []int
	Params []float64
}

// Matches reports whether other has the same kind and shape
func (s Snapshot) Matches(other Snapshot) bool {
	return s.Kind == other.Kind && slices.Equal(s.Shape, other.Shape)
}

func checkSnapshot(kind Kind, shape []int, params int, got Snapshot) error {
	if !got.Matches(Snapshot{Kind: kind, Shape: shape}) {
		return fmt.Errorf("%w: want %s%v, got %s%v", ErrShapeMismatch, kind, shape, got.Kind, got.Shape)
	}
	if len(got.Params) != params {
		return fmt.Errorf("%w: want %d params, got %d", ErrShapeMismatch, params, len(got.Params))
	}
	return nil
}

// argmax returns the first index holding the largest value
func argmax(values []float64) arena.Action {
	return arena.Action(floats.MaxIdx(values))
}

func bestAction(vf ValueFunction, s arena.State) (arena.Action, error) {
	values, err := vf.Estimate(s)
	if err != nil {
		return 0, err
	}
	return argmax(values), nil
}

// Config selects and sizes a value function for an environment
type Config struct {
	Kind         Kind
	LearningRate float64
	Discount     float64
	// Hidden layer widths, approximate only
	Hidden []int
	// TargetSyncInterval refreshes a frozen bootstrap copy every N Train calls; 0 disables it
	TargetSyncInterval int
	Seed               uint64
}

// Validate checks the parameters shared by every kind
func (c Config) Validate() error {
	if err := common.RequireOneOf("value function", string(c.Kind), string(KindTabular), string(KindApproximate)); err != nil {
		return err
	}
	if err := common.RequireRate("learning rate", c.LearningRate); err != nil {
		return err
	}
	if err := common.RequireRate("discount", c.Discount); err != nil {
		return err
	}
	return common.RequireNonNegative("target sync interval", c.TargetSyncInterval)
}

// New builds a value function shaped for env
func New(cfg Config, env arena.Environment) (ValueFunction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindTabular:
		t, err := NewTable(TableConfig{
			States:       env.StateCount(),
			Actions:      env.ActionSize(),
			LearningRate: cfg.LearningRate,
			Discount:     cfg.Discount,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		n, err := NewNetwork(NetworkConfig{
			Features:           env.FeatureSize(),
			Actions:            env.ActionSize(),
			Hidden:             cfg.Hidden,
			LearningRate:       cfg.LearningRate,
			Discount:           cfg.Discount,
			TargetSyncInterval: cfg.TargetSyncInterval,
			Seed:               cfg.Seed,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}
