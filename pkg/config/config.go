// Package config holds the service-level settings shared by the indexer CLIs
// and the search UI: provider endpoints, collection names, and search
// defaults. Connection credentials for the vector store come from CLI flags,
// not from this file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Providers   ProvidersConfig   `yaml:"providers"`
	Collections CollectionsConfig `yaml:"collections"`
	Search      SearchConfig      `yaml:"search"`
	Fetch       FetchConfig       `yaml:"fetch"`
}

// ProvidersConfig holds the embedding provider endpoints.
type ProvidersConfig struct {
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
	CLIPURL     string `yaml:"clip_url"`
	CLIPModel   string `yaml:"clip_model"`
}

// CollectionsConfig names the per-modality vector store collections.
type CollectionsConfig struct {
	Text  string `yaml:"text"`
	Image string `yaml:"image"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultK       int `yaml:"default_k"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// FetchConfig bounds remote image fetching during indexing.
type FetchConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxImageBytes     int64   `yaml:"max_image_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Providers: ProvidersConfig{
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "nomic-embed-text",
			CLIPURL:     "http://localhost:8093",
			CLIPModel:   "ViT-B-32",
		},
		Collections: CollectionsConfig{
			Text:  "car_text_embeddings",
			Image: "car_image_embeddings",
		},
		Search: SearchConfig{
			DefaultK:       6,
			TimeoutSeconds: 15,
		},
		Fetch: FetchConfig{
			RequestsPerSecond: 5,
			Burst:             2,
			MaxImageBytes:     20 << 20,
		},
	}
}

// Load returns the default config overlaid with the YAML file at path, if
// path is non-empty. A missing explicit file is an error; path=="" just
// returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
