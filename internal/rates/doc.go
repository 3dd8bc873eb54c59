// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citation-engine/pkg/types"
)

// LoadCorpus reads and validates a citations document from path.
func LoadCorpus(path string) (types.CitationCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CitationCorpus{}, fmt.Errorf("reading corpus: %w", err)
	}

	var corpus types.CitationCorpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return types.CitationCorpus{}, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	if err := corpus.Validate(); err != nil {
		return types.CitationCorpus{}, fmt.Errorf("corpus %s: %w", path, err)
	}
	return corpus, nil
}

// WriteDocument writes v to path, creating parent directories. The
// extension picks the encoding: .yaml/.yml for YAML, anything else for
// indented JSON.
func WriteDocument(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadModelConfig reads model parameters from a YAML or JSON file,
// layered over the built-in defaults. Used by `analyze --params`.
func LoadModelConfig(path string) (types.ModelConfig, error) {
	cfg := types.DefaultModelConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return types.ModelConfig{}, fmt.Errorf("reading parameters: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return types.ModelConfig{}, fmt.Errorf("parsing parameters %s: %w", path, err)
	}
	return cfg, nil
}
