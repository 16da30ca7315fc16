package training

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/agent"
	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/config"
	"github.com/mitchelldurbincs/selfplay-rl/internal/valuefn"
)

// FromConfig assembles the arena, both value functions, both agents and the
// trainer from a loaded configuration. Every random source derives from
// training.seed so a run is reproducible.
func FromConfig(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Trainer, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	seed := cfg.Training.Seed

	env, err := arena.New(arena.Config{
		Stepping:    arena.Stepping(cfg.Training.Stepping),
		Size:        cfg.Arena.Size,
		Start:       arena.StartMode(cfg.Arena.Start),
		Offset:      cfg.Arena.Offset,
		Reward:      arena.RewardShape(cfg.Arena.Reward),
		Target:      cfg.Arena.Target,
		Termination: arena.Termination(cfg.Arena.Termination),
		Budget:      cfg.Training.MaxSteps,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}

	var agents [2]*agent.Agent
	for i := range agents {
		vf, err := valuefn.New(valuefn.Config{
			Kind:               valuefn.Kind(cfg.Agent.ValueFunction),
			LearningRate:       cfg.Agent.LearningRate,
			Discount:           cfg.Agent.Discount,
			Hidden:             cfg.Agent.Hidden,
			TargetSyncInterval: cfg.Agent.TargetSyncInterval,
			Seed:               uint64(seed) + uint64(i),
		}, env)
		if err != nil {
			return nil, fmt.Errorf("value function %d: %w", i, err)
		}

		agents[i], err = agent.New(i, vf, agent.Options{
			Exploration: agent.Exploration{
				Epsilon: cfg.Agent.EpsilonStart,
				Min:     cfg.Agent.EpsilonMin,
				Decay:   cfg.Agent.EpsilonDecay,
			},
			BatchSize:      cfg.Agent.BatchSize,
			MinReplay:      cfg.Agent.MinReplay,
			ReplayCapacity: cfg.Agent.ReplayCapacity,
			Seed:           seed + int64(i+1)*7919,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	return New(Config{
		Episodes:         cfg.Training.Episodes,
		MaxSteps:         cfg.Training.MaxSteps,
		VisualizeEvery:   cfg.Training.VisualizeEvery,
		Stepping:         arena.Stepping(cfg.Training.Stepping),
		CheckpointEvery:  cfg.Training.CheckpointEvery,
		CheckpointPrefix: cfg.Training.CheckpointPrefix,
	}, env, agents, append([]Option{WithLogger(logger)}, opts...)...)
}
