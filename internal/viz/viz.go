// Package viz renders the best episode of a training run.
package viz

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// Sink renders one episode record. Implementations must not modify it.
type Sink interface {
	Render(episode int, best experience.EpisodeRecord) error
}

const (
	KindPlot    = "plot"
	KindChart   = "chart"
	KindConsole = "console"
	KindNone    = "none"
)

// New builds the sink named by kind. KindNone returns a nil Sink.
func New(kind, dir string, out io.Writer, logger zerolog.Logger) (Sink, error) {
	if err := common.RequireOneOf("viz kind", kind, KindPlot, KindChart, KindConsole, KindNone); err != nil {
		return nil, err
	}
	switch kind {
	case KindPlot:
		s, err := NewPlotSink(dir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindChart:
		s, err := NewChartSink(dir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindConsole:
		return NewConsoleSink(out, true), nil
	}
	return nil, nil
}

// Multi renders to every sink and joins their errors
type Multi []Sink

func (m Multi) Render(episode int, best experience.EpisodeRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(episode, best); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ensureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: output directory is required", common.ErrInvalidConfig)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func outputPath(dir string, episode int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("best_%06d%s", episode, ext))
}

// positions returns one series of cell indices per fighter
func positions(rec experience.EpisodeRecord) [][]float64 {
	if len(rec.States) == 0 {
		return nil
	}
	series := make([][]float64, rec.States[0].Fighters)
	for _, s := range rec.States {
		for f := range series {
			series[f] = append(series[f], float64(s.Pos[f]))
		}
	}
	return series
}

// fighterName labels a position series. A single series is the token both
// agents share.
func fighterName(f, fighters int) string {
	if fighters == 1 {
		return "token"
	}
	return fmt.Sprintf("agent %d", f)
}
