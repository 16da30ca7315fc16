package training

import (
	"context"
	"fmt"

	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// Evaluation holds greedy play results
type Evaluation struct {
	Results    []EpisodeResult
	MeanReturn float64
	MeanSteps  float64
}

// Evaluate plays episodes greedily without learning, exploration decay or
// best-episode tracking
func (t *Trainer) Evaluate(ctx context.Context, episodes int) (Evaluation, error) {
	if err := common.RequirePositive("evaluation episodes", episodes); err != nil {
		return Evaluation{}, err
	}

	var ev Evaluation
	for i := 1; i <= episodes; i++ {
		if err := ctx.Err(); err != nil {
			return ev, err
		}
		res, _, err := t.play(i, false)
		if err != nil {
			return ev, fmt.Errorf("evaluation: %w", err)
		}
		ev.Results = append(ev.Results, res)
		ev.MeanReturn += res.Return
		ev.MeanSteps += float64(res.Steps)
	}
	ev.MeanReturn /= float64(episodes)
	ev.MeanSteps /= float64(episodes)
	return ev, nil
}

// ResumeFrom restores both value functions from checkpoints saved under
// prefix. Both must exist.
func (t *Trainer) ResumeFrom(ctx context.Context, store checkpoint.Store, prefix string) error {
	for i, a := range t.agents {
		name := checkpoint.AgentName(prefix, i)
		savedAt, err := checkpoint.Load(ctx, store, name, a.ValueFunction())
		if err != nil {
			return fmt.Errorf("resume agent %d: %w", i, err)
		}
		t.logger.Info().Str("name", name).Time("saved_at", savedAt).Msg("Resumed value function")
	}
	return nil
}
