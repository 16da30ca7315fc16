package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/selfplay-rl/internal/config"
	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
	"github.com/mitchelldurbincs/selfplay-rl/internal/events/subscribers"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
	"github.com/mitchelldurbincs/selfplay-rl/internal/monitoring"
	"github.com/mitchelldurbincs/selfplay-rl/internal/training"
	"github.com/mitchelldurbincs/selfplay-rl/internal/viz"
)

func newTrainCommand(root *rootOptions) *cobra.Command {
	var (
		resume   string
		watch    bool
		progress time.Duration
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run self-play training and keep the best episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg.Checkpoint, log.Logger)
			if err != nil {
				return err
			}
			defer closeStore()

			bus := events.NewEventBus(log.Logger)
			sub := subscribers.NewLoggerSubscriber("cli_logger", log.Logger, zerolog.DebugLevel)
			sub.SetDevMode(cfg.Log.Level == zerolog.TraceLevel.String())
			bus.Subscribe(sub)

			if progress > 0 {
				monitor := monitoring.NewProgressMonitor(progress, log.Logger)
				bus.Subscribe(monitor)
				monitor.Start()
				defer monitor.Stop()
			}

			opts := []training.Option{training.WithEvents(bus)}
			if store != nil {
				opts = append(opts, training.WithCheckpoints(store))
			}

			sink, err := viz.New(cfg.Viz.Kind, cfg.Viz.Dir, cmd.OutOrStdout(), log.Logger)
			if err != nil {
				return err
			}
			if sink != nil {
				opts = append(opts, training.WithVisualizer(sink))
			}

			if cfg.Training.ArchiveDir != "" {
				archive, err := experience.NewArchive(experience.ArchiveConfig{Dir: cfg.Training.ArchiveDir}, log.Logger)
				if err != nil {
					return err
				}
				defer archive.Close()
				opts = append(opts, training.WithArchive(archive))
			}

			trainer, err := training.FromConfig(cfg, log.Logger, opts...)
			if err != nil {
				return err
			}

			if resume != "" {
				if store == nil {
					return fmt.Errorf("--resume needs a checkpoint backend")
				}
				if err := trainer.ResumeFrom(ctx, store, resume); err != nil {
					return err
				}
			}

			if watch {
				root.loader.Watch(func(c *config.Config, err error) {
					if err != nil {
						log.Warn().Err(err).Msg("Ignoring invalid config change")
						return
					}
					setLogLevel(c.Log.Level)
					log.Info().Str("level", c.Log.Level).Msg("Config reloaded")
				})
			}

			log.Info().
				Str("run_id", trainer.RunID()).
				Int("episodes", cfg.Training.Episodes).
				Str("stepping", cfg.Training.Stepping).
				Str("value_function", cfg.Agent.ValueFunction).
				Msg("Starting training")

			sum, err := trainer.Run(ctx)
			log.Info().
				Str("run_id", sum.RunID).
				Int("episodes", sum.Episodes).
				Int("best_episode", sum.BestEpisode).
				Float64("best_return", sum.BestReturn).
				Float64("mean_return", sum.MeanReturn).
				Dur("duration", sum.Duration).
				Msg("Training finished")

			if errors.Is(err, context.Canceled) {
				log.Warn().Msg("Training interrupted")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Checkpoint prefix to restore both agents from before training")
	cmd.Flags().DurationVar(&progress, "progress-every", monitoring.DefaultInterval, "Interval between progress reports (0 disables)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the log level when the config file changes")
	return cmd
}
