package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/boristopalov/irrigation/pkg/environment"
)

// EnvPrefix namespaces every environment variable override, e.g. IRRIGATION_TRAINING_EPISODES
const EnvPrefix = "IRRIGATION"

type ExperimentConfig struct {
	Name        string           `yaml:"name" envconfig:"NAME" validate:"required"`
	Training    TrainingConfig   `yaml:"training"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Evaluation  EvalConfig       `yaml:"evaluation"`
	Agent       AgentConfig      `yaml:"agent"`
	Environment EnvConfig        `yaml:"environment"`
	Store       StoreConfig      `yaml:"store"`
	Logging     LogConfig        `yaml:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Output      OutputConfig     `yaml:"output"`
}

type TrainingConfig struct {
	Episodes     int     `yaml:"episodes" envconfig:"EPISODES" validate:"min=1"`
	MaxSteps     int     `yaml:"max_steps" envconfig:"MAX_STEPS" validate:"min=1"`
	LearningRate float64 `yaml:"learning_rate" envconfig:"LEARNING_RATE" validate:"gt=0,lte=1"`
	Discount     float64 `yaml:"discount" envconfig:"DISCOUNT" validate:"gte=0,lte=1"`
	Epsilon      float64 `yaml:"epsilon" envconfig:"EPSILON" validate:"gte=0,lte=1"`
	EpsilonMin   float64 `yaml:"epsilon_min" envconfig:"EPSILON_MIN" validate:"gte=0,lte=1"`
	EpsilonDecay float64 `yaml:"epsilon_decay" envconfig:"EPSILON_DECAY" validate:"gt=0,lte=1"`
	Seed         uint64  `yaml:"seed" envconfig:"SEED"`
	LogEvery     int     `yaml:"log_every" envconfig:"LOG_EVERY" validate:"min=1"`
}

type SimulationConfig struct {
	Steps     int           `yaml:"steps" envconfig:"STEPS" validate:"min=1"`
	StepDelay time.Duration `yaml:"step_delay" envconfig:"STEP_DELAY" validate:"gte=0"`
	Color     bool          `yaml:"color" envconfig:"COLOR"`
}

type EvalConfig struct {
	Seeds       int `yaml:"seeds" envconfig:"SEEDS" validate:"min=1"`
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"min=1"`
}

type AgentConfig struct {
	Kind           string  `yaml:"kind" envconfig:"KIND" validate:"oneof=qlearning random threshold llm"`
	Policy         string  `yaml:"policy" envconfig:"POLICY" validate:"required"`
	MoistureBucket float64 `yaml:"moisture_bucket" envconfig:"MOISTURE_BUCKET" validate:"gt=0,lte=100"`
	Provider       string  `yaml:"provider" envconfig:"PROVIDER" validate:"oneof=openai gemini"`
	Model          string  `yaml:"model" envconfig:"MODEL"`
}

type EnvConfig struct {
	Seed   uint64             `yaml:"seed" envconfig:"SEED"`
	Tables environment.Tables `yaml:"tables" ignored:"true"`
}

type StoreConfig struct {
	Path string `yaml:"path" envconfig:"PATH" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"omitempty,hostname_port"`
}

type OutputConfig struct {
	StatsPath string `yaml:"stats_path" envconfig:"STATS_PATH"`
	ChartsDir string `yaml:"charts_dir" envconfig:"CHARTS_DIR"`
}

// DefaultConfig mirrors the stock training setup
func DefaultConfig() *ExperimentConfig {
	return &ExperimentConfig{
		Name: "smart_irrigation",
		Training: TrainingConfig{
			Episodes:     2000,
			MaxSteps:     200,
			LearningRate: 0.1,
			Discount:     0.9,
			Epsilon:      1.0,
			EpsilonMin:   0.05,
			EpsilonDecay: 0.995,
			Seed:         1,
			LogEvery:     100,
		},
		Simulation: SimulationConfig{
			Steps:     200,
			StepDelay: 200 * time.Millisecond,
			Color:     true,
		},
		Evaluation: EvalConfig{
			Seeds:       20,
			Concurrency: 4,
		},
		Agent: AgentConfig{
			Kind:           "qlearning",
			Policy:         "irrigation_q",
			MoistureBucket: 5,
			Provider:       "openai",
			Model:          "gpt-4o-mini",
		},
		Environment: EnvConfig{
			Tables: environment.DefaultTables(),
		},
		Store: StoreConfig{
			Path: "irrigation.db",
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			ChartsDir: "charts",
		},
	}
}

// LoadConfig layers defaults, the optional YAML file at path, a .env file and
// IRRIGATION_* environment variables, then validates the result.
func LoadConfig(path string) (*ExperimentConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// a missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the environment tables
func (c *ExperimentConfig) Validate() error {
	validate := validator.New()
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, fmt.Errorf("invalid config: %w", err))
	}
	if c.Training.EpsilonMin > c.Training.Epsilon {
		errs = append(errs, errors.New("invalid config: training.epsilon_min exceeds training.epsilon"))
	}
	if err := c.Environment.Tables.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid environment tables: %w", err))
	}
	return errors.Join(errs...)
}
