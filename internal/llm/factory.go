package llm

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// backend describes one provider family: how to build it and which
// conventional environment variables fill in missing settings
type backend struct {
	name       string
	build      func(Config) (Provider, error)
	apiKeyEnv  string
	baseURLEnv string
}

var backends = []backend{
	{
		name:      "openai",
		build:     func(c Config) (Provider, error) { return NewOpenAIProvider(c) },
		apiKeyEnv: "OPENAI_API_KEY",
	},
	{
		name:      "anthropic",
		build:     func(c Config) (Provider, error) { return NewAnthropicProvider(c) },
		apiKeyEnv: "ANTHROPIC_API_KEY",
	},
	{
		name:       "ollama",
		build:      func(c Config) (Provider, error) { return NewOllamaProvider(c) },
		baseURLEnv: "OLLAMA_BASE_URL",
	},
}

var aliases = map[string]string{"claude": "anthropic"}

func lookup(provider string) (backend, bool) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	for _, b := range backends {
		if b.name == name {
			return b, true
		}
	}
	return backend{}, false
}

// Providers lists the supported provider names, aliases included
func Providers() []string {
	names := make([]string, 0, len(backends)+len(aliases))
	for _, b := range backends {
		names = append(names, b.name)
	}
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// Known reports whether provider names a supported backend; "" means disabled
// and is known too
func Known(provider string) bool {
	if strings.TrimSpace(provider) == "" {
		return true
	}
	_, ok := lookup(provider)
	return ok
}

// ApplyEnv fills an unset API key or base URL from the provider's
// conventional environment variable
func ApplyEnv(c *Config) {
	b, ok := lookup(c.Provider)
	if !ok {
		return
	}
	if c.APIKey == "" && b.apiKeyEnv != "" {
		c.APIKey = os.Getenv(b.apiKeyEnv)
	}
	if c.BaseURL == "" && b.baseURLEnv != "" {
		c.BaseURL = os.Getenv(b.baseURLEnv)
	}
}

// NewProvider builds the configured provider. No provider configured returns
// nil: the LLM is disabled.
func NewProvider(config Config) (Provider, error) {
	if strings.TrimSpace(config.Provider) == "" {
		return nil, nil
	}
	b, ok := lookup(config.Provider)
	if !ok {
		return nil, eris.Errorf("unknown LLM provider: %s (supported: %s)", config.Provider, strings.Join(Providers(), ", "))
	}
	return b.build(config)
}
