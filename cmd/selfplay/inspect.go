package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
	"github.com/mitchelldurbincs/selfplay-rl/internal/viz"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show saved checkpoints and archived episodes",
	}
	cmd.AddCommand(newInspectCheckpointCommand(root))
	cmd.AddCommand(newInspectArchiveCommand(root))
	return cmd
}

func newInspectCheckpointCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint NAME",
		Short: "Describe a saved value function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := requireStore(ctx, root.cfg.Checkpoint, log.Logger)
			if err != nil {
				return err
			}
			defer closeStore()

			c, err := checkpoint.Read(ctx, store, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "name\t%s\n", args[0])
			fmt.Fprintf(w, "kind\t%s\n", c.Snapshot.Kind)
			fmt.Fprintf(w, "shape\t%v\n", c.Snapshot.Shape)
			fmt.Fprintf(w, "params\t%d\n", len(c.Snapshot.Params))
			fmt.Fprintf(w, "saved\t%s\n", c.SavedAt.Format("2006-01-02T15:04:05Z07:00"))
			if p := c.Snapshot.Params; len(p) > 0 {
				fmt.Fprintf(w, "min\t%.4f\n", floats.Min(p))
				fmt.Fprintf(w, "max\t%.4f\n", floats.Max(p))
				fmt.Fprintf(w, "mean\t%.4f\n", stat.Mean(p, nil))
			}
			return w.Flush()
		},
	}
}

func newInspectArchiveCommand(root *rootOptions) *cobra.Command {
	var (
		render bool
		color  bool
	)

	cmd := &cobra.Command{
		Use:   "archive [DIR]",
		Short: "List archived best episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := root.cfg.Training.ArchiveDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no archive directory; pass one or set training.archive_dir")
			}

			records, err := experience.ReadArchive(cmd.Context(), dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EPISODE\tSTEPS\tRETURN\tID")
			for _, rec := range records {
				fmt.Fprintf(w, "%d\t%d\t%.2f\t%s\n", rec.Episode, rec.Steps(), rec.Return, rec.ID)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if render && len(records) > 0 {
				last := records[len(records)-1]
				return viz.NewConsoleSink(out, color).Render(last.Episode, last)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "Draw the latest record in the terminal")
	cmd.Flags().BoolVar(&color, "color", true, "Use colors when drawing")
	return cmd
}
