package viz

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// ChartSink writes an HTML page with fighter positions and agent 0's
// cumulative reward per step
type ChartSink struct {
	dir    string
	logger zerolog.Logger
}

func NewChartSink(dir string, logger zerolog.Logger) (*ChartSink, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &ChartSink{dir: dir, logger: logger.With().Str("component", "chart_sink").Logger()}, nil
}

func (s *ChartSink) Render(episode int, best experience.EpisodeRecord) error {
	steps := make([]string, len(best.States))
	for i := range steps {
		steps[i] = strconv.Itoa(i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Best episode %d", best.Episode),
			Subtitle: fmt.Sprintf("return %.2f, rendered at episode %d", best.Return, episode),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(steps)
	all := positions(best)
	for f, series := range all {
		items := make([]opts.LineData, 0, len(series))
		for _, v := range series {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(fighterName(f, len(all)), items)
	}

	cumulative := make([]opts.LineData, 0, len(best.States))
	total := 0.0
	cumulative = append(cumulative, opts.LineData{Value: total})
	for _, r := range best.Rewards {
		total += r[0]
		cumulative = append(cumulative, opts.LineData{Value: total})
	}
	line.AddSeries("return", cumulative)

	page := components.NewPage()
	page.AddCharts(line)

	path := outputPath(s.dir, episode, ".html")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	s.logger.Debug().Str("path", path).Int("episode", episode).Msg("Chart written")
	return nil
}
