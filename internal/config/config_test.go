package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
training:
  episodes: 500
  stepping: simultaneous
  visualize_every: 50
arena:
  size: 12
  reward: proximity
  start: fixed
agent:
  value_function: approximate
  hidden: [16, 8]
  target_sync_interval: 10
checkpoint:
  backend: file
  dir: ` + filepath.Join(tmpDir, "ckpt") + `
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	c, err := NewLoader().Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 500, c.Training.Episodes)
	assert.Equal(t, "simultaneous", c.Training.Stepping)
	assert.Equal(t, 50, c.Training.VisualizeEvery)
	assert.Equal(t, 12, c.Arena.Size)
	assert.Equal(t, "proximity", c.Arena.Reward)
	assert.Equal(t, "approximate", c.Agent.ValueFunction)
	assert.Equal(t, []int{16, 8}, c.Agent.Hidden)
	assert.Equal(t, 10, c.Agent.TargetSyncInterval)
	assert.Equal(t, "file", c.Checkpoint.Backend)

	// untouched keys keep their defaults
	assert.Equal(t, 1000, c.Training.MaxSteps)
	assert.Equal(t, 0.95, c.Agent.Discount)
}

func TestDefaultsAreValid(t *testing.T) {
	c := Default()
	require.NoError(t, Validate(c))

	assert.Equal(t, 10000, c.Training.Episodes)
	assert.Equal(t, 100, c.Training.VisualizeEvery)
	assert.Equal(t, "alternating", c.Training.Stepping)
	assert.Equal(t, 10, c.Arena.Size)
	assert.Equal(t, "tabular", c.Agent.ValueFunction)
	assert.Equal(t, []int{24, 24}, c.Agent.Hidden)
	assert.Equal(t, "none", c.Checkpoint.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SPRL_TRAINING_EPISODES", "77")
	t.Setenv("SPRL_AGENT_LEARNING_RATE", "0.5")

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("training:\n  episodes: 5\n"), 0644))

	c, err := NewLoader().Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, 77, c.Training.Episodes)
	assert.Equal(t, 0.5, c.Agent.LearningRate)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("agent:\n  discount: 1.5\n"), 0644))

	_, err := NewLoader().Load(configFile)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero episodes", func(c *Config) { c.Training.Episodes = 0 }, true},
		{"zero batch", func(c *Config) { c.Agent.BatchSize = 0 }, true},
		{"zero visualize interval", func(c *Config) { c.Training.VisualizeEvery = 0 }, true},
		{"learning rate zero", func(c *Config) { c.Agent.LearningRate = 0 }, true},
		{"learning rate one", func(c *Config) { c.Agent.LearningRate = 1 }, false},
		{"discount above one", func(c *Config) { c.Agent.Discount = 1.01 }, true},
		{"epsilon start above one", func(c *Config) { c.Agent.EpsilonStart = 1.2 }, true},
		{"epsilon min above start", func(c *Config) { c.Agent.EpsilonStart = 0.1; c.Agent.EpsilonMin = 0.2 }, true},
		{"epsilon decay zero", func(c *Config) { c.Agent.EpsilonDecay = 0 }, true},
		{"zero replay capacity", func(c *Config) { c.Agent.ReplayCapacity = 0 }, true},
		{"unknown stepping", func(c *Config) { c.Training.Stepping = "async" }, true},
		{"target outside arena", func(c *Config) { c.Arena.Target = 10 }, true},
		{"track start outside arena", func(c *Config) { c.Arena.Start = "fixed"; c.Arena.Offset = 10 }, true},
		{"duel offset beyond arena clamps", func(c *Config) {
			c.Training.Stepping = "simultaneous"
			c.Arena.Start = "fixed"
			c.Arena.Offset = 10
		}, false},
		{"unknown reward", func(c *Config) { c.Arena.Reward = "score" }, true},
		{"unknown value function", func(c *Config) { c.Agent.ValueFunction = "forest" }, true},
		{"negative hidden", func(c *Config) { c.Agent.Hidden = []int{24, -1} }, true},
		{"file backend without dir", func(c *Config) { c.Checkpoint.Backend = "file"; c.Checkpoint.Dir = "" }, true},
		{"unknown backend", func(c *Config) { c.Checkpoint.Backend = "s3" }, true},
		{"console viz needs no dir", func(c *Config) { c.Viz.Kind = "console"; c.Viz.Dir = "" }, false},
		{"plot viz needs dir", func(c *Config) { c.Viz.Dir = "" }, true},
		{"bad prefix", func(c *Config) { c.Training.CheckpointPrefix = "../up" }, true},
		{"prefix too long for agent names", func(c *Config) { c.Training.CheckpointPrefix = strings.Repeat("p", 122) }, true},
		{"longest usable prefix", func(c *Config) { c.Training.CheckpointPrefix = strings.Repeat("p", 121) }, false},
		{"approximate min replay fills memory", func(c *Config) {
			c.Agent.ValueFunction = "approximate"
			c.Agent.ReplayCapacity = 10
			c.Agent.MinReplay = 10
			c.Agent.BatchSize = 8
		}, true},
		{"approximate batch larger than memory", func(c *Config) {
			c.Agent.ValueFunction = "approximate"
			c.Agent.ReplayCapacity = 10
			c.Agent.MinReplay = 0
			c.Agent.BatchSize = 20
		}, true},
		{"tabular ignores replay sizes", func(c *Config) {
			c.Agent.ReplayCapacity = 10
			c.Agent.MinReplay = 10
			c.Agent.BatchSize = 20
		}, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := Validate(c)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
