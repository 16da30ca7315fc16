package valuefn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mitchelldurbincs/selfplay-rl/internal/arena"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
	"github.com/mitchelldurbincs/selfplay-rl/internal/experience"
)

type TableConfig struct {
	States       int
	Actions      int
	LearningRate float64
	Discount     float64
}

// Table is a dense Q-table with one row per state index.
// Entries start at zero.
type Table struct {
	cfg TableConfig
	q   *mat.Dense
}

var _ OnlineLearner = (*Table)(nil)

func NewTable(cfg TableConfig) (*Table, error) {
	if err := common.RequirePositive("state count", cfg.States); err != nil {
		return nil, err
	}
	if err := common.RequirePositive("action count", cfg.Actions); err != nil {
		return nil, err
	}
	if err := common.RequireRate("learning rate", cfg.LearningRate); err != nil {
		return nil, err
	}
	if err := common.RequireRate("discount", cfg.Discount); err != nil {
		return nil, err
	}
	return &Table{cfg: cfg, q: mat.NewDense(cfg.States, cfg.Actions, nil)}, nil
}

func (t *Table) ActionSize() int { return t.cfg.Actions }

func (t *Table) row(s arena.State) (int, error) {
	if !s.Valid() || s.Count() != t.cfg.States {
		return 0, fmt.Errorf("%w: %v in table of %d states", ErrInvalidState, s, t.cfg.States)
	}
	return s.Index(), nil
}

func (t *Table) checkAction(a arena.Action) error {
	if a < 0 || int(a) >= t.cfg.Actions {
		return fmt.Errorf("%w: %d outside [0, %d)", arena.ErrInvalidAction, int(a), t.cfg.Actions)
	}
	return nil
}

// Estimate returns a copy of the row for s
func (t *Table) Estimate(s arena.State) ([]float64, error) {
	r, err := t.row(s)
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, r, t.q), nil
}

func (t *Table) BestAction(s arena.State) (arena.Action, error) {
	return bestAction(t, s)
}

// Set overwrites a single entry
func (t *Table) Set(s arena.State, a arena.Action, v float64) error {
	r, err := t.row(s)
	if err != nil {
		return err
	}
	if err := t.checkAction(a); err != nil {
		return err
	}
	t.q.Set(r, int(a), v)
	return nil
}

// Update applies Q[s,a] += α(r + γ·max Q[s'] − Q[s,a]). The bootstrap term
// is kept on terminal transitions.
func (t *Table) Update(tr experience.Transition) error {
	r, err := t.row(tr.State)
	if err != nil {
		return err
	}
	next, err := t.row(tr.NextState)
	if err != nil {
		return err
	}
	if err := t.checkAction(tr.Action); err != nil {
		return err
	}

	future := floats.Max(t.q.RawRowView(next))
	old := t.q.At(r, int(tr.Action))
	t.q.Set(r, int(tr.Action), old+t.cfg.LearningRate*(tr.Reward+t.cfg.Discount*future-old))
	return nil
}

func (t *Table) Snapshot() Snapshot {
	raw := t.q.RawMatrix()
	params := make([]float64, 0, t.cfg.States*t.cfg.Actions)
	for i := 0; i < raw.Rows; i++ {
		params = append(params, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return Snapshot{
		Kind:   KindTabular,
		Shape:  []int{t.cfg.States, t.cfg.Actions},
		Params: params,
	}
}

func (t *Table) Restore(s Snapshot) error {
	if err := checkSnapshot(KindTabular, []int{t.cfg.States, t.cfg.Actions}, t.cfg.States*t.cfg.Actions, s); err != nil {
		return err
	}
	t.q = mat.NewDense(t.cfg.States, t.cfg.Actions, append([]float64(nil), s.Params...))
	return nil
}
