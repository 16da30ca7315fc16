package arena

import "fmt"

// State is an immutable snapshot of the arena. Fighters is 1 for the shared
// token track and 2 for the duel; only the first Fighters entries of Pos are
// meaningful.
type State struct {
	Size     int    `json:"size"`
	Pos      [2]int `json:"pos"`
	Fighters int    `json:"fighters"`
}

// Index maps the state onto [0, Count()) for tabular lookup
func (s State) Index() int {
	if s.Fighters == 1 {
		return s.Pos[0]
	}
	return s.Pos[0]*s.Size + s.Pos[1]
}

// Count returns the number of distinct states for this arena shape
func (s State) Count() int {
	return StateCount(s.Size, s.Fighters)
}

// Valid reports whether every occupied position lies inside the arena
func (s State) Valid() bool {
	if s.Fighters < 1 || s.Fighters > 2 || s.Size < 1 {
		return false
	}
	for i := 0; i < s.Fighters; i++ {
		if s.Pos[i] < 0 || s.Pos[i] >= s.Size {
			return false
		}
	}
	return true
}

// Features returns the positions scaled to [0, 1], one entry per fighter
func (s State) Features() []float64 {
	f := make([]float64, s.Fighters)
	scale := float64(s.Size - 1)
	if scale <= 0 {
		return f
	}
	for i := range f {
		f[i] = float64(s.Pos[i]) / scale
	}
	return f
}

// AtBoundary reports whether any fighter stands on the first or last cell
func (s State) AtBoundary() bool {
	for i := 0; i < s.Fighters; i++ {
		if s.Pos[i] == 0 || s.Pos[i] == s.Size-1 {
			return true
		}
	}
	return false
}

func (s State) String() string {
	if s.Fighters == 1 {
		return fmt.Sprintf("(%d)", s.Pos[0])
	}
	return fmt.Sprintf("(%d, %d)", s.Pos[0], s.Pos[1])
}

// StateCount returns size^fighters
func StateCount(size, fighters int) int {
	n := 1
	for i := 0; i < fighters; i++ {
		n *= size
	}
	return n
}
