package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderYandex    LLMProvider = "yandex"
	ProviderAnthropic LLMProvider = "anthropic"
)

type CacheBackend string

const (
	CacheBackendJSON   CacheBackend = "json"
	CacheBackendSQLite CacheBackend = "sqlite"
)

type Config struct {
	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`
	AnthropicAPIKey  string      `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string      `env:"ANTHROPIC_BASE_URL"`
	AnthropicModel   string      `env:"ANTHROPIC_MODEL"`
	MaxTokens        int         `env:"MAX_TOKENS" envDefault:"500"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Static data
	DataDir         string `env:"DATA_DIR" envDefault:"data"`
	EventsDir       string `env:"EVENTS_DIR" envDefault:"data/events"`
	ParentGuidePath string `env:"PARENT_GUIDE_PATH" envDefault:"data/parent_guide_data.json"`

	// Generation
	UseAIGeneration          bool   `env:"USE_AI_GENERATION" envDefault:"true"`
	AIGenerationMaxAttempts  int    `env:"AI_GENERATION_MAX_ATTEMPTS" envDefault:"3"`
	AIQualityThreshold       int    `env:"AI_QUALITY_THRESHOLD" envDefault:"80"`
	ParentSituationThreshold int    `env:"PARENT_SITUATION_THRESHOLD" envDefault:"75"`
	ValidatorFailPolicy      string `env:"VALIDATOR_FAIL_POLICY" envDefault:"open"`

	// Cache
	EnableScenarioCache bool         `env:"ENABLE_SCENARIO_CACHE" envDefault:"true"`
	CacheExpiryHours    int          `env:"CACHE_EXPIRY_HOURS" envDefault:"24"`
	MaxCacheSize        int          `env:"MAX_CACHE_SIZE" envDefault:"100"`
	CacheDir            string       `env:"CACHE_DIR" envDefault:"data/cache"`
	CacheBackend        CacheBackend `env:"CACHE_BACKEND" envDefault:"json"`
	MemoryCacheSize     int          `env:"MEMORY_CACHE_SIZE" envDefault:"256"`
	CachePurgeSchedule  string       `env:"CACHE_PURGE_SCHEDULE" envDefault:"@hourly"`

	// Streaming
	StreamTimeout time.Duration `env:"STREAM_TIMEOUT" envDefault:"2m"`

	// Telemetry
	DebugLogDir        string  `env:"DEBUG_LOG_DIR" envDefault:"logs/debug"`
	DebugLogAlways     bool    `env:"DEBUG_LOG_ALWAYS" envDefault:"true"`
	InputPricePerMTok  float64 `env:"INPUT_PRICE_PER_MTOK" envDefault:"0.150"`
	OutputPricePerMTok float64 `env:"OUTPUT_PRICE_PER_MTOK" envDefault:"0.600"`

	// Ежедневный отчет в 21:00 UTC; пустое значение отключает
	ReportSchedule string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Parse reads the environment and checks the enumerated settings.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.LLMProvider = LLMProvider(strings.ToLower(string(c.LLMProvider)))
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	c.CacheBackend = CacheBackend(strings.ToLower(string(c.CacheBackend)))
	switch c.CacheBackend {
	case CacheBackendJSON, CacheBackendSQLite:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}

	c.ValidatorFailPolicy = strings.ToLower(c.ValidatorFailPolicy)
	switch c.ValidatorFailPolicy {
	case "open", "closed":
	default:
		return fmt.Errorf("unsupported VALIDATOR_FAIL_POLICY %q", c.ValidatorFailPolicy)
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.MaxCacheSize <= 0 {
		return fmt.Errorf("MAX_CACHE_SIZE must be positive, got %d", c.MaxCacheSize)
	}
	if c.AIGenerationMaxAttempts <= 0 {
		c.AIGenerationMaxAttempts = 1
	}
	return nil
}

func (c *Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheExpiryHours) * time.Hour
}
