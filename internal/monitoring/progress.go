// Package monitoring reports training progress while a run is in flight.
package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
)

const DefaultInterval = 10 * time.Second

// ProgressMonitor counts episodes from the event bus and periodically logs
// throughput, exploration and runtime usage
type ProgressMonitor struct {
	mu            sync.RWMutex
	episodes      int
	steps         int
	lastReturn    float64
	best          float64
	bestEpisode   int
	epsilons      [2]float64
	peakGoroutine int
	peakHeap      uint64

	start      time.Time
	lastReport time.Time
	lastCount  int

	checkInterval time.Duration
	logger        zerolog.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

// NewProgressMonitor creates a monitor reporting every interval. A
// non-positive interval uses DefaultInterval.
func NewProgressMonitor(interval time.Duration, logger zerolog.Logger) *ProgressMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := time.Now()
	return &ProgressMonitor{
		start:         now,
		lastReport:    now,
		checkInterval: interval,
		logger:        logger.With().Str("component", "progress_monitor").Logger(),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (pm *ProgressMonitor) ID() string { return "progress_monitor" }

func (pm *ProgressMonitor) InterestedIn(eventType string) bool {
	return eventType == events.TypeEpisodeCompleted || eventType == events.TypeBestEpisode
}

func (pm *ProgressMonitor) HandleEvent(event events.Event) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	switch e := event.(type) {
	case *events.EpisodeCompletedEvent:
		pm.episodes++
		pm.steps += e.Steps
		pm.lastReturn = e.Return
		pm.epsilons = e.Epsilons
	case *events.BestEpisodeEvent:
		pm.best = e.Return
		pm.bestEpisode = e.Episode
	}
}

// Start begins periodic reporting
func (pm *ProgressMonitor) Start() {
	go pm.monitor()
	pm.logger.Debug().Dur("interval", pm.checkInterval).Msg("Started progress monitoring")
}

// Stop ends reporting and logs a final report. It is safe to call twice.
func (pm *ProgressMonitor) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
		<-pm.done
		pm.report()
	})
}

func (pm *ProgressMonitor) monitor() {
	defer close(pm.done)
	defer func() {
		if r := recover(); r != nil {
			pm.logger.Error().Interface("panic", r).Msg("Progress monitor panicked")
		}
	}()

	ticker := time.NewTicker(pm.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pm.report()
		case <-pm.stopChan:
			return
		}
	}
}

// sample records runtime usage and returns the current metrics
func (pm *ProgressMonitor) sample(now time.Time) ProgressMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if goroutines > pm.peakGoroutine {
		pm.peakGoroutine = goroutines
	}
	if mem.HeapAlloc > pm.peakHeap {
		pm.peakHeap = mem.HeapAlloc
	}

	rate := 0.0
	if elapsed := now.Sub(pm.lastReport).Seconds(); elapsed > 0 {
		rate = float64(pm.episodes-pm.lastCount) / elapsed
	}
	pm.lastReport = now
	pm.lastCount = pm.episodes

	return pm.metricsLocked(rate, goroutines, mem.HeapAlloc)
}

func (pm *ProgressMonitor) report() {
	m := pm.sample(time.Now())
	pm.logger.Info().
		Int("episodes", m.Episodes).
		Float64("episodes_per_sec", m.EpisodesPerSecond).
		Float64("mean_steps", m.MeanSteps).
		Float64("last_return", m.LastReturn).
		Float64("best_return", m.BestReturn).
		Int("best_episode", m.BestEpisode).
		Floats64("epsilon", m.Epsilons[:]).
		Int("goroutines", m.Goroutines).
		Uint64("heap_bytes", m.HeapBytes).
		Msg("Training progress")
}

// GetMetrics returns the counters without sampling the runtime
func (pm *ProgressMonitor) GetMetrics() ProgressMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.metricsLocked(0, pm.peakGoroutine, pm.peakHeap)
}

func (pm *ProgressMonitor) metricsLocked(rate float64, goroutines int, heap uint64) ProgressMetrics {
	m := ProgressMetrics{
		Episodes:          pm.episodes,
		EpisodesPerSecond: rate,
		LastReturn:        pm.lastReturn,
		BestReturn:        pm.best,
		BestEpisode:       pm.bestEpisode,
		Epsilons:          pm.epsilons,
		Goroutines:        goroutines,
		PeakGoroutines:    pm.peakGoroutine,
		HeapBytes:         heap,
		PeakHeapBytes:     pm.peakHeap,
		Uptime:            time.Since(pm.start),
	}
	if pm.episodes > 0 {
		m.MeanSteps = float64(pm.steps) / float64(pm.episodes)
	}
	return m
}

// ProgressMetrics contains training progress statistics
type ProgressMetrics struct {
	Episodes          int           `json:"episodes"`
	EpisodesPerSecond float64       `json:"episodes_per_second"`
	MeanSteps         float64       `json:"mean_steps"`
	LastReturn        float64       `json:"last_return"`
	BestReturn        float64       `json:"best_return"`
	BestEpisode       int           `json:"best_episode"`
	Epsilons          [2]float64    `json:"epsilons"`
	Goroutines        int           `json:"goroutines"`
	PeakGoroutines    int           `json:"peak_goroutines"`
	HeapBytes         uint64        `json:"heap_bytes"`
	PeakHeapBytes     uint64        `json:"peak_heap_bytes"`
	Uptime            time.Duration `json:"uptime"`
}
