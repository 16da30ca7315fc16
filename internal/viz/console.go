package viz

import (
	"bufio"
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

// ConsoleSink draws the arena once per step. Agent 0 is A, agent 1 is B and a
// shared cell is X.
type ConsoleSink struct {
	out io.Writer
	au  aurora.Aurora
}

func NewConsoleSink(out io.Writer, colors bool) *ConsoleSink {
	return &ConsoleSink{out: out, au: aurora.NewAurora(colors)}
}

func (s *ConsoleSink) Render(episode int, best experience.EpisodeRecord) error {
	w := bufio.NewWriter(s.out)
	fmt.Fprintf(w, "%s episode %d return %.2f steps %d (at episode %d)\n",
		s.au.Bold("best"), best.Episode, best.Return, best.Steps(), episode)

	for i, st := range best.States {
		fmt.Fprintf(w, "%4d ", i)
		s.drawRow(w, st)
		if i > 0 {
			fmt.Fprintf(w, "  %s %+.2f", s.actions(best.Actions[i-1]), best.Rewards[i-1][0])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func (s *ConsoleSink) drawRow(w io.Writer, st arena.State) {
	fmt.Fprint(w, s.au.White("|"))
	for c := 0; c < st.Size; c++ {
		a := st.Pos[0] == c
		b := st.Fighters == 2 && st.Pos[1] == c
		switch {
		case a && b:
			fmt.Fprint(w, s.au.Red("X"))
		case a:
			fmt.Fprint(w, s.au.Green("A"))
		case b:
			fmt.Fprint(w, s.au.Blue("B"))
		default:
			fmt.Fprint(w, ".")
		}
	}
	fmt.Fprint(w, s.au.White("|"))
}

func (s *ConsoleSink) actions(acts [2]arena.Action) string {
	if acts[1] == arena.NoAction {
		return fmt.Sprintf("A:%-7s", acts[0])
	}
	if acts[0] == arena.NoAction {
		return fmt.Sprintf("B:%-7s", acts[1])
	}
	return fmt.Sprintf("A:%-7s B:%-7s", acts[0], acts[1])
}
