// Package config loads the service configuration. Values are applied in
// order of increasing precedence: hardcoded defaults, a .queryai.yaml file
// in the working directory, then QUERYAI_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rssebambulidde/QueryAI-sub001/internal/ai"
	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
	"github.com/rssebambulidde/QueryAI-sub001/internal/compress"
	qerrors "github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/fusion"
	"github.com/rssebambulidde/QueryAI-sub001/internal/logging"
	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
	"github.com/rssebambulidde/QueryAI-sub001/internal/threshold"
	"github.com/rssebambulidde/QueryAI-sub001/internal/vector"
)

// ConfigFileName is looked up in the directory passed to Load.
const ConfigFileName = ".queryai.yaml"

// Config is the complete service configuration.
type Config struct {
	Version int `yaml:"version"`

	Logging logging.Config `yaml:"logging"`

	Search    SearchConfig    `yaml:"search"`
	Threshold ThresholdConfig `yaml:"threshold"`
	Fusion    FusionConfig    `yaml:"fusion"`

	Sizing   sizing.Config   `yaml:"sizing"`
	Budget   budget.Config   `yaml:"budget"`
	Compress compress.Config `yaml:"compress"`

	Vector    vector.Config `yaml:"vector"`
	AI        ai.Config     `yaml:"ai"`
	Embedding ai.Config     `yaml:"embedding"`

	// Model is the answer-generation model name used for budgeting.
	Model string `yaml:"model"`

	// MetricsAddr is the listen address for the metrics endpoint. Empty
	// disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// SearchConfig configures lexical retrieval defaults.
type SearchConfig struct {
	// TopK is the default result limit when a request doesn't set one.
	TopK int `yaml:"top_k"`

	// MinScore drops results scoring below this value.
	MinScore float64 `yaml:"min_score"`
}

// ThresholdConfig configures the relevance threshold optimizer.
type ThresholdConfig struct {
	// Per-type starting thresholds.
	Factual     float64 `yaml:"factual"`
	Procedural  float64 `yaml:"procedural"`
	Conceptual  float64 `yaml:"conceptual"`
	Exploratory float64 `yaml:"exploratory"`
	Unknown     float64 `yaml:"unknown"`

	// Min and Max bound every chosen threshold.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// Percentile seeds the statistical candidate.
	Percentile int `yaml:"percentile"`
}

// FusionConfig configures result reranking.
type FusionConfig struct {
	// Strategy is score, cross_encoder, or hybrid.
	Strategy string `yaml:"strategy"`

	// Signal weights. Independent multipliers, not required to sum to 1.
	Semantic float64 `yaml:"semantic"`
	Keyword  float64 `yaml:"keyword"`
	Length   float64 `yaml:"length"`
	Position float64 `yaml:"position"`
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Logging: logging.DefaultConfig(),
		Search: SearchConfig{
			TopK: 10,
		},
		Threshold: ThresholdConfig{
			Factual:     0.75,
			Procedural:  0.70,
			Conceptual:  0.65,
			Exploratory: 0.60,
			Unknown:     0.70,
			Min:         0.3,
			Max:         0.95,
			Percentile:  75,
		},
		Fusion: FusionConfig{
			Strategy: "score",
			Semantic: 0.6,
			Keyword:  0.3,
			Length:   0.2,
			Position: 0.2,
		},
		Sizing:   sizing.DefaultConfig(),
		Budget:   budget.DefaultConfig(),
		Compress: compress.DefaultConfig(),
		Vector:   vector.DefaultConfig(),
		Model:    "gpt-4",
	}
}

// Load builds the configuration for the given directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// No config file is fine, defaults apply.
		return nil
	}
	if err != nil {
		return qerrors.New(qerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return qerrors.New(qerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies QUERYAI_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QUERYAI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("QUERYAI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("QUERYAI_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("QUERYAI_VECTOR_URL"); v != "" {
		c.Vector.BaseURL = v
	}
	if v := os.Getenv("QUERYAI_AI_HOST"); v != "" {
		c.AI.Host = v
	}
	if v := os.Getenv("QUERYAI_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("QUERYAI_AI_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("QUERYAI_EMBEDDING_HOST"); v != "" {
		c.Embedding.Host = v
	}
	if v := os.Getenv("QUERYAI_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("QUERYAI_BUDGET_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Budget.Strict = b
		}
	}
	if v := os.Getenv("QUERYAI_COMPRESS_STRATEGY"); v != "" {
		c.Compress.Strategy = compress.Strategy(v)
	}
	if v := os.Getenv("QUERYAI_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
}

// Validate checks cross-field constraints. Component packages apply their
// own zero-value defaults, so only outright contradictions fail here.
func (c *Config) Validate() error {
	if c.Search.TopK < 0 {
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "search.top_k must not be negative", nil)
	}
	if c.Search.MinScore < 0 {
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "search.min_score must not be negative", nil)
	}
	if c.Threshold.Min > c.Threshold.Max && c.Threshold.Max > 0 {
		return qerrors.New(qerrors.ErrCodeConfigInvalid, "threshold.min must not exceed threshold.max", nil)
	}
	switch c.Fusion.Strategy {
	case "", "score", "cross_encoder", "hybrid":
	default:
		return qerrors.New(qerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown fusion strategy %q", c.Fusion.Strategy), nil)
	}
	switch c.Compress.Strategy {
	case "", compress.StrategyTruncation, compress.StrategyExtraction,
		compress.StrategySummarization, compress.StrategyHybrid:
	default:
		return qerrors.New(qerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown compression strategy %q", c.Compress.Strategy), nil)
	}
	return nil
}

// ThresholdOptions converts the flat YAML fields to the optimizer's config.
func (t ThresholdConfig) ThresholdOptions() threshold.Config {
	cfg := threshold.DefaultConfig()
	defaults := map[query.Type]float64{
		query.TypeFactual:     t.Factual,
		query.TypeProcedural:  t.Procedural,
		query.TypeConceptual:  t.Conceptual,
		query.TypeExploratory: t.Exploratory,
		query.TypeUnknown:     t.Unknown,
	}
	for qt, v := range defaults {
		if v > 0 {
			cfg.Defaults[qt] = v
		}
	}
	if t.Min > 0 {
		cfg.Min = t.Min
	}
	if t.Max > 0 {
		cfg.Max = t.Max
	}
	if t.Percentile > 0 {
		cfg.Percentile = t.Percentile
	}
	return cfg
}

// FusionOptions converts the flat YAML fields to fusion options.
func (f FusionConfig) FusionOptions() []fusion.Option {
	opts := []fusion.Option{}
	if f.Strategy != "" {
		opts = append(opts, fusion.WithStrategy(fusion.Strategy(f.Strategy)))
	}
	weights := fusion.Weights{
		Semantic: f.Semantic,
		Keyword:  f.Keyword,
		Length:   f.Length,
		Position: f.Position,
	}
	if weights != (fusion.Weights{}) {
		opts = append(opts, fusion.WithWeights(weights))
	}
	return opts
}

// Save writes the configuration to dir as YAML.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return qerrors.Wrap(qerrors.ErrCodeInternal, err)
	}
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return qerrors.New(qerrors.ErrCodeInternal,
			fmt.Sprintf("failed to write config file %s", path), err)
	}
	return nil
}
