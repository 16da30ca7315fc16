package subscribers

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
	devMode         bool            // If true, log full event details
}

func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent logs the event at the subscriber's level. Best-episode and
// checkpoint events are raised to Info so they show at default verbosity.
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	level := ls.logLevel
	switch event.(type) {
	case *events.BestEpisodeEvent, *events.CheckpointSavedEvent, *events.RunStartedEvent, *events.RunFinishedEvent:
		if level < zerolog.InfoLevel {
			level = zerolog.InfoLevel
		}
	}

	logEvent := ls.logger.WithLevel(level).
		Str("event_type", event.Type()).
		Str("run_id", event.RunID())

	switch e := event.(type) {
	case *events.RunStartedEvent:
		logEvent.
			Int("episodes", e.Episodes).
			Str("stepping", e.Stepping).
			Str("value_function", e.ValueFunction)

	case *events.EpisodeCompletedEvent:
		logEvent.
			Int("episode", e.Episode).
			Int("steps", e.Steps).
			Float64("return", e.Return).
			Floats64("epsilon", e.Epsilons[:]).
			Floats64("loss", e.Loss[:])

	case *events.BestEpisodeEvent:
		logEvent.
			Int("episode", e.Episode).
			Float64("return", e.Return).
			Float64("previous", e.Previous).
			Str("record_id", e.RecordID)

	case *events.CheckpointSavedEvent:
		logEvent.
			Int("episode", e.Episode).
			Str("name", e.Name)

	case *events.VisualizedEvent:
		logEvent.
			Int("episode", e.Episode).
			Int("best_episode", e.BestEpisode)

	case *events.RunFinishedEvent:
		logEvent.
			Int("episodes", e.Episodes).
			Float64("best_return", e.BestReturn).
			Dur("duration", e.Duration)
		if e.Err != "" {
			logEvent.Str("error", e.Err)
		}
	}

	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	logEvent.Msg("Training event")
}
