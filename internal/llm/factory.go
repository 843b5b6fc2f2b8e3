package llm

import (
	"errors"
	"fmt"
	"strings"

	"story-coach/internal/config"
)

const (
	ProviderOpenAI    = "openai"
	ProviderYandex    = "yandex"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel = "gpt-4o-mini"
)

// ErrMissingCredentials is returned when the chosen provider has no key.
var ErrMissingCredentials = errors.New("llm provider credentials missing")

// Factory creates Gateway clients from the configured credentials.
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	AnthropicAPIKey    string
	AnthropicBaseURL   string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		AnthropicAPIKey:    cfg.AnthropicAPIKey,
		AnthropicBaseURL:   cfg.AnthropicBaseURL,
	}
}

// CreateClient builds the client for provider. An empty model picks the
// provider default; Yandex always uses its lite model.
func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch p := strings.ToLower(provider); p {
	case ProviderOpenAI:
		if f.OpenaiAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingCredentials)
		}
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case ProviderYandex:
		if f.YandexOAuthToken == "" || f.YandexFolderID == "" {
			return nil, fmt.Errorf("%w: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID", ErrMissingCredentials)
		}
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	case ProviderAnthropic:
		if f.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingCredentials)
		}
		return NewAnthropic(f.AnthropicAPIKey, f.AnthropicBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

// CreateFromConfig resolves the model of the configured provider.
func (f *Factory) CreateFromConfig(cfg *config.Config) (Client, error) {
	var model string
	switch strings.ToLower(string(cfg.LLMProvider)) {
	case ProviderOpenAI:
		model = cfg.OpenAIModel
	case ProviderAnthropic:
		model = cfg.AnthropicModel
	}
	return f.CreateClient(string(cfg.LLMProvider), model)
}
