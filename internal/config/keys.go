package config

import (
	"fmt"
	"os"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name     string       `json:"name"`
	Source   APIKeySource `json:"source"`
	IsSet    bool         `json:"is_set"`
	Required bool         `json:"required"`
	Masked   string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// CheckAPIKeys returns the status of all API keys and connection strings.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Tavily API Key", cfg.Search.TavilyKey, true, "BRIEFLY_SEARCH_TAVILY_KEY", "TAVILY_API_KEY"),
		checkKey("OpenAI API Key", cfg.LLM.OpenAIKey, true, "BRIEFLY_LLM_OPENAI_KEY", "OPENAI_API_KEY"),
		checkKey("Redis URL", cfg.Cache.RedisURL, false, "BRIEFLY_CACHE_REDIS_URL", "REDIS_URL"),
	}
}

// ValidateRequired returns an error naming the first missing required key.
// Absence of a required key is a startup-time fatal condition; the caller
// (cmd) decides what to do with it.
func ValidateRequired(cfg *Config) error {
	for _, ks := range CheckAPIKeys(cfg) {
		if ks.Required && !ks.IsSet {
			return fmt.Errorf("missing required credential: %s", ks.Name)
		}
	}
	return nil
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, required bool, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:     name,
		IsSet:    value != "",
		Required: required,
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, ev := range envVars {
		if os.Getenv(ev) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks a credential for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
