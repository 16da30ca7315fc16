package experience

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

var (
	// ErrInsufficientMemory is returned when a sample asks for more transitions than are stored
	ErrInsufficientMemory = errors.New("not enough transitions in replay memory")
	// ErrInvalidBatchSize is returned for non-positive sample sizes
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// ReplayMemory is a bounded FIFO of transitions. When full, each push
// evicts the oldest entry.
type ReplayMemory struct {
	mu       sync.RWMutex
	buffer   []Transition
	capacity int
	size     int
	head     int // next write position
	tail     int // oldest entry

	src rand.Source

	totalAdded   int64
	totalEvicted int64
	totalSampled int64

	logger zerolog.Logger
}

// NewReplayMemory creates a memory holding at most capacity transitions.
// seed drives Sample so runs are reproducible.
func NewReplayMemory(capacity int, seed uint64, logger zerolog.Logger) (*ReplayMemory, error) {
	if err := common.RequirePositive("replay capacity", capacity); err != nil {
		return nil, err
	}

	return &ReplayMemory{
		buffer:   make([]Transition, capacity),
		capacity: capacity,
		src:      rand.NewSource(seed),
		logger:   logger.With().Str("component", "replay_memory").Logger(),
	}, nil
}

// Push appends a transition, evicting the oldest one when at capacity
func (m *ReplayMemory) Push(t Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.size >= m.capacity {
		m.tail = (m.tail + 1) % m.capacity
		m.totalEvicted++
	} else {
		m.size++
	}

	m.buffer[m.head] = t
	m.head = (m.head + 1) % m.capacity
	m.totalAdded++
}

// Sample draws n distinct transitions uniformly at random without replacement
func (m *ReplayMemory) Sample(n int) ([]Transition, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if n > m.size {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrInsufficientMemory, n, m.size)
	}

	idxs := make([]int, n)
	sampleuv.WithoutReplacement(idxs, m.size, m.src)

	result := make([]Transition, n)
	for i, idx := range idxs {
		result[i] = m.buffer[(m.tail+idx)%m.capacity]
	}
	m.totalSampled += int64(n)

	return result, nil
}

// Contents returns a copy of the stored transitions, oldest first
func (m *ReplayMemory) Contents() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Transition, m.size)
	for i := 0; i < m.size; i++ {
		result[i] = m.buffer[(m.tail+i)%m.capacity]
	}
	return result
}

// Len returns the number of stored transitions
func (m *ReplayMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *ReplayMemory) Capacity() int {
	return m.capacity
}

// Clear drops every stored transition. Counters are kept.
func (m *ReplayMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.size = 0
	m.head = 0
	m.tail = 0
	m.buffer = make([]Transition, m.capacity)

	m.logger.Debug().Msg("Replay memory cleared")
}

// Stats returns memory statistics
func (m *ReplayMemory) Stats() ReplayStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ReplayStats{
		CurrentSize:    m.size,
		Capacity:       m.capacity,
		TotalAdded:     m.totalAdded,
		TotalEvicted:   m.totalEvicted,
		TotalSampled:   m.totalSampled,
		UtilizationPct: float64(m.size) / float64(m.capacity) * 100,
	}
}

// ReplayStats contains replay memory statistics
type ReplayStats struct {
	CurrentSize    int
	Capacity       int
	TotalAdded     int64
	TotalEvicted   int64
	TotalSampled   int64
	UtilizationPct float64
}
