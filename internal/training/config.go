package training

import (
	"fmt"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// Config controls the episode loop
type Config struct {
	Episodes       int
	MaxSteps       int
	VisualizeEvery int
	Stepping       arena.Stepping
	// CheckpointEvery defaults to VisualizeEvery when zero
	CheckpointEvery  int
	CheckpointPrefix string
}

func (c Config) Validate() error {
	if err := common.RequirePositive("episodes", c.Episodes); err != nil {
		return err
	}
	if err := common.RequirePositive("max steps", c.MaxSteps); err != nil {
		return err
	}
	if err := common.RequirePositive("visualize every", c.VisualizeEvery); err != nil {
		return err
	}
	if err := common.RequireNonNegative("checkpoint every", c.CheckpointEvery); err != nil {
		return err
	}
	if err := common.RequireOneOf("stepping", string(c.Stepping), string(arena.Alternating), string(arena.Simultaneous)); err != nil {
		return err
	}
	if c.CheckpointPrefix != "" {
		if err := checkpoint.ValidateName(checkpoint.AgentName(c.CheckpointPrefix, 1)); err != nil {
			return fmt.Errorf("%w: checkpoint prefix: %v", common.ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c Config) checkpointInterval() int {
	if c.CheckpointEvery > 0 {
		return c.CheckpointEvery
	}
	return c.VisualizeEvery
}
