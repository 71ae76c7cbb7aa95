package voicegen

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

// Config is the tunable scoring and retry policy passed to every component.
type Config struct {
	Voice          VoiceConfig          `yaml:"voice"`
	Classification ClassificationConfig `yaml:"classification"`
	Generation     GenerationConfig     `yaml:"generation"`
	Retry          RetryConfig          `yaml:"retry"`
	Performance    PerformanceConfig    `yaml:"performance"`
	Patterns       PatternConfig        `yaml:"patterns"`
}

type VoiceConfig struct {
	MinExamples      int     `yaml:"min_examples"`
	MinExampleChars  int     `yaml:"min_example_chars"`
	VariancePenalty  float64 `yaml:"variance_penalty"`
	EmbedBatchSize   int     `yaml:"embed_batch_size"`
	EmbedConcurrency int     `yaml:"embed_concurrency"`
}

type ClassificationConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	RelevanceThreshold  float64 `yaml:"relevance_threshold"`
	BatchConcurrency    int     `yaml:"batch_concurrency"`
}

type StyleSpec struct {
	Name        string `yaml:"name" json:"name"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

type GenerationConfig struct {
	MaxChars            int         `yaml:"max_chars"`
	HookFoldChars       int         `yaml:"hook_fold_chars"`
	DefaultCount        int         `yaml:"default_count"`
	MaxCount            int         `yaml:"max_count"`
	MinTags             int         `yaml:"min_tags"`
	MaxTags             int         `yaml:"max_tags"`
	LowVoiceMatch       float64     `yaml:"low_voice_match"`
	DuplicateSimilarity float64     `yaml:"duplicate_similarity"`
	MaxVoiceExamples    int         `yaml:"max_voice_examples"`
	MaxExampleChars     int         `yaml:"max_example_chars"`
	DefaultStyles       []StyleSpec `yaml:"default_styles"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      time.Duration `yaml:"jitter"`
}

type TierThresholds struct {
	Top     float64 `yaml:"top"`
	Good    float64 `yaml:"good"`
	Average float64 `yaml:"average"`
}

type PerformanceConfig struct {
	LikeWeight      float64        `yaml:"like_weight"`
	CommentWeight   float64        `yaml:"comment_weight"`
	RepostWeight    float64        `yaml:"repost_weight"`
	HistoryWindow   int            `yaml:"history_window"`
	MinHistory      int            `yaml:"min_history"`
	TopRatio        float64        `yaml:"top_ratio"`
	GoodRatio       float64        `yaml:"good_ratio"`
	AverageRatio    float64        `yaml:"average_ratio"`
	AbsoluteRate    TierThresholds `yaml:"absolute_rate"`
	AbsoluteActions TierThresholds `yaml:"absolute_actions"`
}

type PatternConfig struct {
	Window     int `yaml:"window"`
	MinSamples int `yaml:"min_samples"`
}

// DefaultConfig returns the embedded policy.
func DefaultConfig() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		panic(fmt.Sprintf("voicegen: embedded config invalid: %v", err))
	}
	return cfg
}

// LoadConfig layers the YAML file at path (if any) over the embedded defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path = strings.TrimSpace(path)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read pipeline config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse pipeline config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Voice.MinExamples < 2:
		return fmt.Errorf("voice.min_examples must be >= 2")
	case c.Classification.ConfidenceThreshold < 0 || c.Classification.ConfidenceThreshold > 100:
		return fmt.Errorf("classification.confidence_threshold must be within [0,100]")
	case c.Classification.RelevanceThreshold < 0 || c.Classification.RelevanceThreshold > 100:
		return fmt.Errorf("classification.relevance_threshold must be within [0,100]")
	case c.Generation.MaxChars <= 0:
		return fmt.Errorf("generation.max_chars must be > 0")
	case c.Generation.MaxCount <= 0 || c.Generation.DefaultCount <= 0 || c.Generation.DefaultCount > c.Generation.MaxCount:
		return fmt.Errorf("generation.default_count must be within [1,max_count]")
	case len(c.Generation.DefaultStyles) < c.Generation.DefaultCount:
		return fmt.Errorf("generation.default_styles must cover default_count")
	case c.Retry.MaxAttempts < 1:
		return fmt.Errorf("retry.max_attempts must be >= 1")
	case c.Performance.TopRatio < c.Performance.GoodRatio || c.Performance.GoodRatio < c.Performance.AverageRatio:
		return fmt.Errorf("performance ratios must be ordered top >= good >= average")
	}
	return nil
}
