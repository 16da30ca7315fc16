package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/selfplay-rl/internal/training"
)

func newEvaluateCommand(root *rootOptions) *cobra.Command {
	var (
		from     string
		episodes int
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Play greedy episodes with saved value functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			ctx := cmd.Context()

			store, closeStore, err := requireStore(ctx, cfg.Checkpoint, log.Logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if from == "" {
				from = cfg.Training.CheckpointPrefix
			}
			trainer, err := training.FromConfig(cfg, log.Logger)
			if err != nil {
				return err
			}
			if err := trainer.ResumeFrom(ctx, store, from); err != nil {
				return err
			}

			ev, err := trainer.Evaluate(ctx, episodes)
			if err != nil {
				return err
			}
			truncated := 0
			for _, res := range ev.Results {
				if res.Truncated {
					truncated++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "episodes %d  mean return %.3f  mean steps %.2f  truncated %d\n",
				len(ev.Results), ev.MeanReturn, ev.MeanSteps, truncated)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Checkpoint prefix (defaults to training.checkpoint_prefix)")
	cmd.Flags().IntVarP(&episodes, "games", "n", 100, "Number of greedy episodes")
	return cmd
}
