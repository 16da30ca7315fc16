package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mitchelldurbincs/selfplay-rl/internal/checkpoint"
	"github.com/mitchelldurbincs/selfplay-rl/internal/common"
)

// ErrInvalidConfig is returned for configuration values outside their domain
var ErrInvalidConfig = common.ErrInvalidConfig

// Config holds all configuration for a training run
type Config struct {
	Training   TrainingConfig   `mapstructure:"training"`
	Arena      ArenaConfig      `mapstructure:"arena"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Viz        VizConfig        `mapstructure:"viz"`
	Log        LogConfig        `mapstructure:"log"`
}

// TrainingConfig holds episode loop settings
type TrainingConfig struct {
	Episodes         int    `mapstructure:"episodes"`
	MaxSteps         int    `mapstructure:"max_steps"`
	VisualizeEvery   int    `mapstructure:"visualize_every"`
	Stepping         string `mapstructure:"stepping"`
	Seed             int64  `mapstructure:"seed"`
	CheckpointEvery  int    `mapstructure:"checkpoint_every"`
	CheckpointPrefix string `mapstructure:"checkpoint_prefix"`
	ArchiveDir       string `mapstructure:"archive_dir"`
}

// ArenaConfig holds environment settings
type ArenaConfig struct {
	Size        int    `mapstructure:"size"`
	Start       string `mapstructure:"start"`
	Offset      int    `mapstructure:"offset"`
	Reward      string `mapstructure:"reward"`
	Target      int    `mapstructure:"target"`
	Termination string `mapstructure:"termination"`
}

// AgentConfig holds learner settings shared by both agents
type AgentConfig struct {
	ValueFunction      string  `mapstructure:"value_function"`
	LearningRate       float64 `mapstructure:"learning_rate"`
	Discount           float64 `mapstructure:"discount"`
	EpsilonStart       float64 `mapstructure:"epsilon_start"`
	EpsilonMin         float64 `mapstructure:"epsilon_min"`
	EpsilonDecay       float64 `mapstructure:"epsilon_decay"`
	BatchSize          int     `mapstructure:"batch_size"`
	ReplayCapacity     int     `mapstructure:"replay_capacity"`
	MinReplay          int     `mapstructure:"min_replay"`
	Hidden             []int   `mapstructure:"hidden"`
	TargetSyncInterval int     `mapstructure:"target_sync_interval"`
}

// CheckpointConfig selects where value functions are saved
type CheckpointConfig struct {
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// VizConfig selects the best-episode renderer
type VizConfig struct {
	Kind string `mapstructure:"kind"`
	Dir  string `mapstructure:"dir"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("training.episodes", 10000)
	v.SetDefault("training.max_steps", 1000)
	v.SetDefault("training.visualize_every", 100)
	v.SetDefault("training.stepping", "alternating")
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.checkpoint_every", 0)
	v.SetDefault("training.checkpoint_prefix", "selfplay")
	v.SetDefault("training.archive_dir", "")

	v.SetDefault("arena.size", 10)
	v.SetDefault("arena.start", "random")
	v.SetDefault("arena.offset", 2)
	v.SetDefault("arena.reward", "positional")
	v.SetDefault("arena.target", 5)
	v.SetDefault("arena.termination", "boundary")

	v.SetDefault("agent.value_function", "tabular")
	v.SetDefault("agent.learning_rate", 0.1)
	v.SetDefault("agent.discount", 0.95)
	v.SetDefault("agent.epsilon_start", 1.0)
	v.SetDefault("agent.epsilon_min", 0.01)
	v.SetDefault("agent.epsilon_decay", 0.995)
	v.SetDefault("agent.batch_size", 32)
	v.SetDefault("agent.replay_capacity", 2000)
	v.SetDefault("agent.min_replay", 32)
	v.SetDefault("agent.hidden", []int{24, 24})
	v.SetDefault("agent.target_sync_interval", 0)

	v.SetDefault("checkpoint.backend", "none")
	v.SetDefault("checkpoint.dir", "checkpoints")
	v.SetDefault("checkpoint.redis_addr", "localhost:6379")
	v.SetDefault("checkpoint.redis_prefix", "selfplay")

	v.SetDefault("viz.kind", "plot")
	v.SetDefault("viz.dir", "viz")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Loader owns one viper instance. Nothing in this package is global.
type Loader struct {
	mu  sync.Mutex
	v   *viper.Viper
	cfg *Config
}

func NewLoader() *Loader {
	v := viper.New()
	setViperDefaults(v)

	v.SetEnvPrefix("SPRL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// Viper exposes the underlying instance so callers can bind flags
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads configPath, or config.yaml from the default locations when it
// is empty, overlays the environment, and validates the result. A missing
// default file is not an error; a missing explicit file is.
func (l *Loader) Load(configPath string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if configPath != "" {
		l.v.SetConfigFile(configPath)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./config")
		l.v.AddConfigPath("/etc/selfplay-rl")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.cfg = cfg
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Current returns the last successfully loaded config
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// ConfigFilePath returns the path of the loaded config file
func (l *Loader) ConfigFilePath() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads on file changes. A change that fails validation is reported
// to onChange and the previous config stays current.
func (l *Loader) Watch(onChange func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.mu.Lock()
		cfg, err := l.decode()
		if err == nil {
			l.cfg = cfg
		}
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg, err)
		}
	})
	l.v.WatchConfig()
}

// Default returns the validated defaults with no file or environment applied
func Default() *Config {
	v := viper.New()
	setViperDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic("default config does not decode: " + err.Error())
	}
	return cfg
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate validates the configuration values
func Validate(c *Config) error {
	t := c.Training
	if t.Episodes <= 0 {
		return invalid("training.episodes must be positive")
	}
	if t.MaxSteps <= 0 {
		return invalid("training.max_steps must be positive")
	}
	if t.VisualizeEvery <= 0 {
		return invalid("training.visualize_every must be positive")
	}
	if t.Stepping != "alternating" && t.Stepping != "simultaneous" {
		return invalid("training.stepping must be alternating or simultaneous, got %q", t.Stepping)
	}
	if t.CheckpointEvery < 0 {
		return invalid("training.checkpoint_every must be non-negative")
	}
	if err := validateName(t.CheckpointPrefix); err != nil {
		return err
	}

	a := c.Arena
	if a.Size < 2 {
		return invalid("arena.size must be at least 2")
	}
	if a.Start != "random" && a.Start != "fixed" {
		return invalid("arena.start must be random or fixed, got %q", a.Start)
	}
	if a.Offset < 0 {
		return invalid("arena.offset must be non-negative")
	}
	if t.Stepping == "alternating" && a.Start == "fixed" && a.Offset >= a.Size {
		return invalid("arena.offset is the start cell on a track and must be below arena.size")
	}
	if a.Reward != "positional" && a.Reward != "proximity" {
		return invalid("arena.reward must be positional or proximity, got %q", a.Reward)
	}
	if a.Target < 0 || a.Target >= a.Size {
		return invalid("arena.target must lie in [0, arena.size)")
	}
	if a.Termination != "boundary" && a.Termination != "budget" {
		return invalid("arena.termination must be boundary or budget, got %q", a.Termination)
	}

	g := c.Agent
	if g.ValueFunction != "tabular" && g.ValueFunction != "approximate" {
		return invalid("agent.value_function must be tabular or approximate, got %q", g.ValueFunction)
	}
	if !(g.LearningRate > 0 && g.LearningRate <= 1) {
		return invalid("agent.learning_rate must be in (0, 1]")
	}
	if !(g.Discount > 0 && g.Discount <= 1) {
		return invalid("agent.discount must be in (0, 1]")
	}
	if g.EpsilonStart < 0 || g.EpsilonStart > 1 {
		return invalid("agent.epsilon_start must be in [0, 1]")
	}
	if g.EpsilonMin < 0 || g.EpsilonMin > g.EpsilonStart {
		return invalid("agent.epsilon_min must be in [0, agent.epsilon_start]")
	}
	if !(g.EpsilonDecay > 0 && g.EpsilonDecay <= 1) {
		return invalid("agent.epsilon_decay must be in (0, 1]")
	}
	if g.BatchSize <= 0 {
		return invalid("agent.batch_size must be positive")
	}
	if g.ReplayCapacity <= 0 {
		return invalid("agent.replay_capacity must be positive")
	}
	if g.MinReplay < 0 {
		return invalid("agent.min_replay must be non-negative")
	}
	if g.ValueFunction == "approximate" {
		if g.MinReplay >= g.ReplayCapacity {
			return invalid("agent.min_replay must be below agent.replay_capacity")
		}
		if g.BatchSize > g.ReplayCapacity {
			return invalid("agent.batch_size must not exceed agent.replay_capacity")
		}
	}
	for i, h := range g.Hidden {
		if h <= 0 {
			return invalid("agent.hidden[%d] must be positive", i)
		}
	}
	if g.TargetSyncInterval < 0 {
		return invalid("agent.target_sync_interval must be non-negative")
	}

	switch c.Checkpoint.Backend {
	case "none":
	case "file":
		if c.Checkpoint.Dir == "" {
			return invalid("checkpoint.dir is required for the file backend")
		}
	case "redis":
		if c.Checkpoint.RedisAddr == "" {
			return invalid("checkpoint.redis_addr is required for the redis backend")
		}
	default:
		return invalid("checkpoint.backend must be file, redis or none, got %q", c.Checkpoint.Backend)
	}

	switch c.Viz.Kind {
	case "none":
	case "plot", "chart", "console":
		if c.Viz.Kind != "console" && c.Viz.Dir == "" {
			return invalid("viz.dir is required for %s output", c.Viz.Kind)
		}
	default:
		return invalid("viz.kind must be plot, chart, console or none, got %q", c.Viz.Kind)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return invalid("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// validateName checks the prefix through the longest checkpoint name built from it
func validateName(prefix string) error {
	if prefix == "" {
		return invalid("training.checkpoint_prefix must not be empty")
	}
	if err := checkpoint.ValidateName(checkpoint.AgentName(prefix, 1)); err != nil {
		return invalid("training.checkpoint_prefix: %v", err)
	}
	return nil
}
