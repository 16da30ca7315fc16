package viz

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// PlotSink writes a PNG line plot of fighter positions per step
type PlotSink struct {
	dir    string
	logger zerolog.Logger
}

func NewPlotSink(dir string, logger zerolog.Logger) (*PlotSink, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &PlotSink{dir: dir, logger: logger.With().Str("component", "plot_sink").Logger()}, nil
}

func (s *PlotSink) Render(episode int, best experience.EpisodeRecord) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Best episode %d (return %.2f) at episode %d", best.Episode, best.Return, episode)
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Cell"
	if len(best.States) > 0 {
		p.Y.Min = 0
		p.Y.Max = float64(best.States[0].Size - 1)
	}

	all := positions(best)
	for f, series := range all {
		points := make(plotter.XYs, len(series))
		for i, v := range series {
			points[i] = plotter.XY{X: float64(i), Y: v}
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("plot agent %d: %w", f, err)
		}
		line.Color = plotutil.Color(f)
		p.Add(line)
		p.Legend.Add(fighterName(f, len(all)), line)
	}

	path := outputPath(s.dir, episode, ".png")
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	s.logger.Debug().Str("path", path).Int("episode", episode).Msg("Plot written")
	return nil
}
