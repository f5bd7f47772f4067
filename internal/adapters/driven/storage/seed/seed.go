// Package seed reads reference data (vocabulary and historical work
// orders) from YAML and applies it to a driven.ReferenceLoader.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// file is the on-disk layout of a seed file.
type file struct {
	Terms   map[string][]term         `yaml:"terms"`
	Records []domain.HistoricalRecord `yaml:"records"`
}

type term struct {
	Value   string   `yaml:"value"`
	Aliases []string `yaml:"aliases"`
}

// Parse decodes and validates seed YAML. Unknown categories, blank terms,
// records without an item ID and duplicate item IDs are rejected.
func Parse(data []byte) (driven.ReferenceData, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return driven.ReferenceData{}, fmt.Errorf("%w: seed: %w", domain.ErrInvalidInput, err)
	}

	out := driven.ReferenceData{
		Terms:   make(map[domain.Category][]domain.Term, len(f.Terms)),
		Records: make([]domain.HistoricalRecord, 0, len(f.Records)),
	}

	for name, terms := range f.Terms {
		category := domain.Category(name)
		if !category.IsValid() {
			return driven.ReferenceData{}, fmt.Errorf("%w: seed: unknown category %q", domain.ErrInvalidInput, name)
		}
		for _, t := range terms {
			value := strings.TrimSpace(t.Value)
			if value == "" {
				return driven.ReferenceData{}, fmt.Errorf("%w: seed: blank %s term", domain.ErrInvalidInput, name)
			}
			out.Terms[category] = append(out.Terms[category], domain.Term{Value: value, Aliases: t.Aliases})
		}
	}

	seen := make(map[string]bool, len(f.Records))
	for i, r := range f.Records {
		r.ItemID = strings.TrimSpace(r.ItemID)
		if r.ItemID == "" {
			return driven.ReferenceData{}, fmt.Errorf("%w: seed: record %d has no item_id", domain.ErrInvalidInput, i+1)
		}
		if seen[r.ItemID] {
			return driven.ReferenceData{}, fmt.Errorf("%w: seed: duplicate item_id %q", domain.ErrInvalidInput, r.ItemID)
		}
		seen[r.ItemID] = true
		out.Records = append(out.Records, r)
	}

	return out, nil
}

// Default returns the built-in reference data.
func Default() driven.ReferenceData {
	data, err := Parse(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("seed: built-in data is invalid: %v", err))
	}
	return data
}

// Load reads a seed file, or returns the built-in data when path is empty.
func Load(path string) (driven.ReferenceData, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return driven.ReferenceData{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Apply loads the seed at path into loader and returns what was applied.
func Apply(ctx context.Context, loader driven.ReferenceLoader, path string) (driven.ReferenceData, error) {
	data, err := Load(path)
	if err != nil {
		return driven.ReferenceData{}, err
	}
	if err := loader.Replace(ctx, data); err != nil {
		return driven.ReferenceData{}, fmt.Errorf("seed: replace reference data: %w", err)
	}
	return data, nil
}
