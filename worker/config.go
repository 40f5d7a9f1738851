package worker

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snow-ghost/sleuth/pkg/logging"
	"github.com/snow-ghost/sleuth/pkg/tracing"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the engine
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Skills       SkillsConfig       `yaml:"skills"`
	LLM          LLMConfig          `yaml:"llm"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Synthesis    SynthesisConfig    `yaml:"synthesis"`
	Logging      logging.Config     `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Tracing      tracing.Config     `yaml:"tracing"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | memory
	Path   string `yaml:"path"`
}

type SkillsConfig struct {
	Root       string   `yaml:"root"`
	ScratchDir string   `yaml:"scratch_dir"` // "" means a fresh temp dir
	Runtimes   []string `yaml:"runtimes"`    // empty allows every registered runtime
	WasmCache  int      `yaml:"wasm_cache"`
	CacheSize  int      `yaml:"cache_size"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"` // openai | mock
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	MaxPromptTokens   int           `yaml:"max_prompt_tokens"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	MockScript        string        `yaml:"mock_script"`
}

type OrchestratorConfig struct {
	NoveltyThreshold         float64       `yaml:"novelty_threshold"`
	MaxFormulationAttempts   int           `yaml:"max_formulation_attempts"`
	PoisonToken              string        `yaml:"poison_token"`
	PlanDirectly             bool          `yaml:"plan_directly"`
	MaxTaskErrors            int           `yaml:"max_task_errors"`
	SkillTimeout             time.Duration `yaml:"skill_timeout"`
	Interval                 time.Duration `yaml:"interval"`
	ProposeQuestionsWhenIdle bool          `yaml:"propose_questions_when_idle"`
}

type SynthesisConfig struct {
	MaxAttempts int        `yaml:"max_attempts"`
	Exemplars   int        `yaml:"exemplars"`
	Hints       []HintRule `yaml:"hints"`
}

// HintRule attaches Hint to the next prompt when the previous error
// contains Match, ignoring case.
type HintRule struct {
	Match string `yaml:"match"`
	Hint  string `yaml:"hint"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultHints is used when the configuration names none.
var DefaultHints = []HintRule{{
	Match: "overpass",
	Hint:  "The Overpass query failed. Resolve places by name through a geocoder such as Nominatim before querying their geometry.",
}}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store:  StoreConfig{Driver: "sqlite", Path: "sleuth.db"},
		Skills: SkillsConfig{Root: "skills", WasmCache: 32, CacheSize: 256},
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			EmbeddingModel:    "",
			Temperature:       0.2,
			MaxTokens:         2048,
			MaxPromptTokens:   12000,
			RequestsPerMinute: 60,
			Timeout:           2 * time.Minute,
			MaxRetries:        3,
		},
		Orchestrator: OrchestratorConfig{
			NoveltyThreshold:       0.5,
			MaxFormulationAttempts: 5,
			PoisonToken:            "<<POISON>>",
			MaxTaskErrors:          3,
			SkillTimeout:           60 * time.Second,
			Interval:               10 * time.Second,
		},
		Synthesis: SynthesisConfig{MaxAttempts: 20, Exemplars: 3, Hints: DefaultHints},
		Logging:   logging.DefaultConfig(),
		Metrics:   MetricsConfig{Addr: ":9090"},
		Tracing:   tracing.Config{ServiceName: "sleuth"},
	}
}

// LoadConfig reads path over the defaults, then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	config.applyEnv()
	if len(config.Synthesis.Hints) == 0 {
		config.Synthesis.Hints = DefaultHints
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Store.Path = getEnv("SLEUTH_DB_PATH", c.Store.Path)
	c.Skills.Root = getEnv("SLEUTH_SKILLS_ROOT", c.Skills.Root)
	if runtimes := getEnv("SLEUTH_RUNTIMES", ""); runtimes != "" {
		c.Skills.Runtimes = parseCommaSeparated(runtimes)
	}
	c.LLM.Provider = getEnv("SLEUTH_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("SLEUTH_MODEL", c.LLM.Model)
	c.Orchestrator.NoveltyThreshold = getEnvFloat("SLEUTH_NOVELTY_THRESHOLD", c.Orchestrator.NoveltyThreshold)
	c.Orchestrator.SkillTimeout = getEnvDuration("SLEUTH_SKILL_TIMEOUT", c.Orchestrator.SkillTimeout)
	c.Synthesis.MaxAttempts = getEnvInt("SLEUTH_SYNTH_ATTEMPTS", c.Synthesis.MaxAttempts)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Metrics.Addr = getEnv("SLEUTH_METRICS_ADDR", c.Metrics.Addr)
	if endpoint := getEnv("JAEGER_ENDPOINT", ""); endpoint != "" {
		c.Tracing.JaegerEndpoint = endpoint
		c.Tracing.Enabled = true
	}
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	switch c.LLM.Provider {
	case "openai", "mock":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.Skills.Root == "" {
		errs = append(errs, errors.New("skills.root is required"))
	}
	o := c.Orchestrator
	if o.NoveltyThreshold < 0 || o.NoveltyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("orchestrator.novelty_threshold must be in [0,1), got %v", o.NoveltyThreshold))
	}
	if o.MaxFormulationAttempts < 1 {
		errs = append(errs, errors.New("orchestrator.max_formulation_attempts must be at least 1"))
	}
	if o.MaxTaskErrors < 0 {
		errs = append(errs, errors.New("orchestrator.max_task_errors must not be negative"))
	}
	if o.SkillTimeout <= 0 {
		errs = append(errs, errors.New("orchestrator.skill_timeout must be positive"))
	}
	if o.Interval <= 0 {
		errs = append(errs, errors.New("orchestrator.interval must be positive"))
	}
	if c.Synthesis.MaxAttempts < 1 {
		errs = append(errs, errors.New("synthesis.max_attempts must be at least 1"))
	}
	if c.Synthesis.Exemplars < 0 {
		errs = append(errs, errors.New("synthesis.exemplars must not be negative"))
	}
	return errors.Join(errs...)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
