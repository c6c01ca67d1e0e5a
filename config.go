// Package garimpo orchestrates massive multi-source search and
// viral-content discovery runs.
package garimpo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Providers recognized by the credential loader. Each reads
// {NAME}_API_KEY plus numbered siblings from the environment.
var Providers = []string{
	"FIRECRAWL", "JINA", "GOOGLE", "EXA", "SERPER",
	"YOUTUBE", "SUPADATA", "X", "TRENDS",
}

// Config holds orchestrator configuration.
type Config struct {
	// SessionsRoot is the base directory for session artifacts.
	SessionsRoot string `koanf:"sessions_root"`

	// ImagesRoot is the base directory for downloaded viral images.
	ImagesRoot string `koanf:"images_root"`

	// MaxPages caps level-1 research extraction. Default: 20.
	MaxPages int `koanf:"max_pages"`

	// DepthLevels is the research depth (1-3). Default: 3.
	DepthLevels int `koanf:"depth_levels"`

	// MaxImagesPerPlatform caps viral extraction per platform. Default: 5.
	MaxImagesPerPlatform int `koanf:"max_images_per_platform"`

	// MinImageBytes rejects downloads below this size. Default: 10 KB.
	MinImageBytes int64 `koanf:"min_image_bytes"`

	// MinQualityScore is the page acceptance threshold. Default: 60.
	MinQualityScore int `koanf:"min_quality_score"`

	// MinViralScoreForCapture gates the capture list. Default: 5.0.
	MinViralScoreForCapture float64 `koanf:"min_viral_score_for_capture"`

	// KeyCooldownSeconds disables a failed credential for this long.
	// Default: 300.
	KeyCooldownSeconds int `koanf:"key_cooldown_seconds"`

	// StudyMinutes is the deep-study wall budget. Default: 5.
	StudyMinutes int `koanf:"study_minutes"`

	// RunBudgetSeconds bounds one collection run. Default: 600.
	RunBudgetSeconds int `koanf:"run_budget_seconds"`

	// Feature flags.
	EnableScreenshots    bool `koanf:"enable_screenshots"`
	EnableImageDownloads bool `koanf:"enable_image_downloads"`
	EnableTrends         bool `koanf:"enable_trends"`
	EnableDeepStudy      bool `koanf:"enable_deep_study"`

	// DisableFallbacks suppresses estimated placeholder records; provider
	// failures yield empty results instead.
	DisableFallbacks bool `koanf:"disable_fallbacks"`

	// GoogleCSEID is the custom search engine id paired with GOOGLE keys.
	GoogleCSEID string `koanf:"google_cse_id"`

	// SupadataAPIURL overrides the social aggregator endpoint.
	SupadataAPIURL string `koanf:"supadata_api_url"`

	// TrendsAPIURL is the trends MCP endpoint.
	TrendsAPIURL string `koanf:"trends_api_url"`

	// GeminiAPIKey enables AI query expansion and the deep-study phase.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel overrides the default model.
	GeminiModel string `koanf:"gemini_model"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		SessionsRoot:            "analyses_data",
		ImagesRoot:              "analyses_data/viral_images",
		MaxPages:                20,
		DepthLevels:             3,
		MaxImagesPerPlatform:    5,
		MinImageBytes:           10 * 1024,
		MinQualityScore:         60,
		MinViralScoreForCapture: 5.0,
		KeyCooldownSeconds:      300,
		StudyMinutes:            5,
		RunBudgetSeconds:        600,
		EnableScreenshots:       true,
		EnableImageDownloads:    true,
		EnableTrends:            true,
		GeminiModel:             "gemini-2.5-flash",
	}
}

// LoadConfig layers defaults, an optional YAML file and the environment.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills gaps left by partial configuration.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.SessionsRoot == "" {
		c.SessionsRoot = d.SessionsRoot
	}
	if c.ImagesRoot == "" {
		c.ImagesRoot = d.ImagesRoot
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.DepthLevels < 1 || c.DepthLevels > 3 {
		c.DepthLevels = d.DepthLevels
	}
	if c.MaxImagesPerPlatform <= 0 {
		c.MaxImagesPerPlatform = d.MaxImagesPerPlatform
	}
	if c.MinImageBytes <= 0 {
		c.MinImageBytes = d.MinImageBytes
	}
	if c.MinQualityScore <= 0 {
		c.MinQualityScore = d.MinQualityScore
	}
	if c.MinViralScoreForCapture <= 0 {
		c.MinViralScoreForCapture = d.MinViralScoreForCapture
	}
	if c.KeyCooldownSeconds <= 0 {
		c.KeyCooldownSeconds = d.KeyCooldownSeconds
	}
	if c.StudyMinutes <= 0 {
		c.StudyMinutes = d.StudyMinutes
	}
	if c.RunBudgetSeconds <= 0 {
		c.RunBudgetSeconds = d.RunBudgetSeconds
	}
	if c.GeminiModel == "" {
		c.GeminiModel = d.GeminiModel
	}
}

// KeyCooldown returns the cooldown as a duration.
func (c Config) KeyCooldown() time.Duration {
	return time.Duration(c.KeyCooldownSeconds) * time.Second
}

// StudyBudget returns the deep-study wall budget.
func (c Config) StudyBudget() time.Duration {
	return time.Duration(c.StudyMinutes) * time.Minute
}

// RunBudget returns the collection wall budget.
func (c Config) RunBudget() time.Duration {
	return time.Duration(c.RunBudgetSeconds) * time.Second
}

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validSessionID reports whether the id is safe as a directory name.
func validSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}
