package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderIDs is the fixed fallback order. A providers file can tune each
// entry but never reorder or extend the list.
var ProviderIDs = []string{"openai", "gemini", "mistral"}

// ProviderOverride tunes one provider. Empty fields keep the built-in value.
type ProviderOverride struct {
	ID      string   `yaml:"id"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"`
}

type providersFile struct {
	Providers []ProviderOverride `yaml:"providers"`
}

// LoadProvidersFile reads path and returns overrides keyed by provider id.
// An empty path yields no overrides.
func LoadProvidersFile(path string) (map[string]ProviderOverride, error) {
	if path == "" {
		return map[string]ProviderOverride{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return parseProviders(data)
}

func parseProviders(data []byte) (map[string]ProviderOverride, error) {
	var f providersFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	known := make(map[string]bool, len(ProviderIDs))
	for _, id := range ProviderIDs {
		known[id] = true
	}
	out := make(map[string]ProviderOverride, len(f.Providers))
	for _, p := range f.Providers {
		if !known[p.ID] {
			return nil, fmt.Errorf("providers file: unknown provider %q", p.ID)
		}
		if _, dup := out[p.ID]; dup {
			return nil, fmt.Errorf("providers file: provider %q listed twice", p.ID)
		}
		for _, m := range p.Models {
			if m == "" {
				return nil, fmt.Errorf("providers file: %s has an empty model name", p.ID)
			}
		}
		out[p.ID] = p
	}
	return out, nil
}
