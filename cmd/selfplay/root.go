package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/selfplay-rl/internal/config"
)

// rootOptions is shared by every subcommand. cfg is filled in before any
// subcommand runs.
type rootOptions struct {
	configPath string
	loader     *config.Loader
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	root := &rootOptions{loader: config.NewLoader()}

	cmd := &cobra.Command{
		Use:           "selfplay",
		Short:         "Train two agents against each other in a one-dimensional arena",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			cfg, err := root.loader.Load(root.configPath)
			if err != nil {
				return err
			}
			root.cfg = cfg
			setupLogging(cfg.Log)
			if path := root.loader.ConfigFilePath(); path != "" {
				log.Debug().Str("path", path).Msg("Loaded config file")
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&root.configPath, "config", "c", "", "Path to config file")
	flags.IntP("episodes", "e", 0, "Number of training episodes")
	flags.Int("max-steps", 0, "Step budget per episode")
	flags.Int64("seed", 0, "Seed for every random source")
	flags.String("stepping", "", "Turn structure (alternating, simultaneous)")
	flags.String("value-function", "", "Value function (tabular, approximate)")
	flags.String("checkpoint-backend", "", "Checkpoint store (file, redis, none)")
	flags.String("viz", "", "Best-episode renderer (plot, chart, console, none)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	v := root.loader.Viper()
	for key, name := range map[string]string{
		"training.episodes":    "episodes",
		"training.max_steps":   "max-steps",
		"training.seed":        "seed",
		"training.stepping":    "stepping",
		"agent.value_function": "value-function",
		"checkpoint.backend":   "checkpoint-backend",
		"viz.kind":             "viz",
		"log.level":            "log-level",
	} {
		// only flags that were set override the config
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	cmd.AddCommand(newTrainCommand(root))
	cmd.AddCommand(newEvaluateCommand(root))
	cmd.AddCommand(newInspectCommand(root))
	return cmd
}
