package core

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the documented fallback endpoint used when neither
	// runtime config nor STOREFRONT_API_URL provides one.
	DefaultBaseURL = "http://localhost:8080/api/v1"

	// DefaultStorageKey is the fixed key the credential survives reloads under.
	DefaultStorageKey = "storefront_access_token"

	EnvBaseURL    = "STOREFRONT_API_URL"
	EnvStorageKey = "STOREFRONT_STORAGE_KEY"
)

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string `koanf:"base_url" mapstructure:"base_url"`
	StorageKey  string `koanf:"storage_key" mapstructure:"storage_key"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "storefront",
		BaseURL:     DefaultBaseURL,
		StorageKey:  DefaultStorageKey,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("core: base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("core: base_url is not a valid url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: base_url must be absolute, got %q", base)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("core: storage_key is required")
	}
	return nil
}
