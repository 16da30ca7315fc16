package events

import "time"

const (
	TypeRunStarted       = "run.started"
	TypeRunFinished      = "run.finished"
	TypeEpisodeCompleted = "episode.completed"
	TypeBestEpisode      = "episode.best"
	TypeCheckpointSaved  = "checkpoint.saved"
	TypeVisualized       = "episode.visualized"
)

// RunStartedEvent is published before the first episode
type RunStartedEvent struct {
	BaseEvent
	Episodes      int    `json:"episodes"`
	Stepping      string `json:"stepping"`
	ValueFunction string `json:"value_function"`
}

func NewRunStartedEvent(runID string, episodes int, stepping, valueFunction string) *RunStartedEvent {
	return &RunStartedEvent{
		BaseEvent:     newBase(TypeRunStarted, runID),
		Episodes:      episodes,
		Stepping:      stepping,
		ValueFunction: valueFunction,
	}
}

// EpisodeCompletedEvent is published after every episode
type EpisodeCompletedEvent struct {
	BaseEvent
	Episode  int        `json:"episode"`
	Steps    int        `json:"steps"`
	Return   float64    `json:"return"`
	Epsilons [2]float64 `json:"epsilons"`
	Loss     [2]float64 `json:"loss"`
}

func NewEpisodeCompletedEvent(runID string, episode, steps int, ret float64, epsilons, loss [2]float64) *EpisodeCompletedEvent {
	return &EpisodeCompletedEvent{
		BaseEvent: newBase(TypeEpisodeCompleted, runID),
		Episode:   episode,
		Steps:     steps,
		Return:    ret,
		Epsilons:  epsilons,
		Loss:      loss,
	}
}

// BestEpisodeEvent is published when an episode beats the previous best
type BestEpisodeEvent struct {
	BaseEvent
	Episode  int     `json:"episode"`
	Return   float64 `json:"return"`
	Previous float64 `json:"previous"`
	RecordID string  `json:"record_id"`
}

func NewBestEpisodeEvent(runID string, episode int, ret, previous float64, recordID string) *BestEpisodeEvent {
	return &BestEpisodeEvent{
		BaseEvent: newBase(TypeBestEpisode, runID),
		Episode:   episode,
		Return:    ret,
		Previous:  previous,
		RecordID:  recordID,
	}
}

// CheckpointSavedEvent is published after each agent checkpoint
type CheckpointSavedEvent struct {
	BaseEvent
	Episode int    `json:"episode"`
	Name    string `json:"name"`
}

func NewCheckpointSavedEvent(runID string, episode int, name string) *CheckpointSavedEvent {
	return &CheckpointSavedEvent{BaseEvent: newBase(TypeCheckpointSaved, runID), Episode: episode, Name: name}
}

// VisualizedEvent is published after the best episode is handed to the visualizer
type VisualizedEvent struct {
	BaseEvent
	Episode     int `json:"episode"`
	BestEpisode int `json:"best_episode"`
}

func NewVisualizedEvent(runID string, episode, best int) *VisualizedEvent {
	return &VisualizedEvent{BaseEvent: newBase(TypeVisualized, runID), Episode: episode, BestEpisode: best}
}

// RunFinishedEvent is published when the episode sequence ends for any reason
type RunFinishedEvent struct {
	BaseEvent
	Episodes   int           `json:"episodes"`
	BestReturn float64       `json:"best_return"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
}

func NewRunFinishedEvent(runID string, episodes int, bestReturn float64, duration time.Duration, err error) *RunFinishedEvent {
	e := &RunFinishedEvent{
		BaseEvent:  newBase(TypeRunFinished, runID),
		Episodes:   episodes,
		BestReturn: bestReturn,
		Duration:   duration,
	}
	if err != nil {
		e.Err = err.Error()
	}
	return e
}
