package subscribers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/selfplay-rl/internal/events"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerSubscriber_EventFields(t *testing.T) {
	var buf bytes.Buffer
	sub := NewLoggerSubscriber("log", zerolog.New(&buf), zerolog.DebugLevel)

	sub.HandleEvent(events.NewEpisodeCompletedEvent("run-7", 12, 30, -4, [2]float64{0.5, 0.4}, [2]float64{0.1, 0.2}))
	sub.HandleEvent(events.NewRunFinishedEvent("run-7", 12, 3, time.Second, errors.New("interrupted")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, events.TypeEpisodeCompleted, lines[0]["event_type"])
	assert.Equal(t, "run-7", lines[0]["run_id"])
	assert.Equal(t, float64(12), lines[0]["episode"])
	assert.Equal(t, float64(-4), lines[0]["return"])

	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, "interrupted", lines[1]["error"])
}

func TestLoggerSubscriber_Filter(t *testing.T) {
	sub := NewLoggerSubscriber("log", zerolog.Nop(), zerolog.InfoLevel)
	assert.True(t, sub.InterestedIn(events.TypeEpisodeCompleted))

	sub.SetEventFilter([]string{events.TypeBestEpisode})
	assert.True(t, sub.InterestedIn(events.TypeBestEpisode))
	assert.False(t, sub.InterestedIn(events.TypeEpisodeCompleted))

	sub.SetEventFilter(nil)
	assert.True(t, sub.InterestedIn(events.TypeEpisodeCompleted))
}

func TestLoggerSubscriber_DevModeIncludesPayload(t *testing.T) {
	var buf bytes.Buffer
	sub := NewLoggerSubscriber("log", zerolog.New(&buf), zerolog.InfoLevel)
	sub.SetDevMode(true)

	sub.HandleEvent(events.NewCheckpointSavedEvent("run-1", 3, "run-agent0"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	payload, ok := lines[0]["event_data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-agent0", payload["name"])
}
