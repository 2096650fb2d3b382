package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/nao1215/reviewharvest/internal/model"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of the language/region catalog.
// YAML is a superset of JSON, so the same decoder reads both
// {"languages": [{"lang": "en", "country": "us"}]} and its YAML form.
type catalogFile struct {
	Languages []model.Locale `yaml:"languages"`
}

// DefaultCatalog returns the catalog used when no file is configured.
func DefaultCatalog() []model.Locale {
	return []model.Locale{{Language: "en", Country: "us"}}
}

// LoadCatalog reads the ordered locale list from path.
// A bare list of entries is accepted as well as the "languages" object.
// Every entry is validated and normalized to lowercase codes.
func LoadCatalog(path string) ([]model.Locale, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided catalog path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog data.
func ParseCatalog(data []byte) ([]model.Locale, error) {
	var entries []model.Locale

	var wrapped catalogFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil {
		entries = wrapped.Languages
	} else if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	out := make([]model.Locale, 0, len(entries))
	for i, e := range entries {
		loc, err := normalizeLocale(e)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d: %w", ErrInvalidLocale, i, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

// normalizeLocale checks the codes with x/text and lowercases them the way
// the remote source expects.
func normalizeLocale(l model.Locale) (model.Locale, error) {
	lang := strings.TrimSpace(l.Language)
	country := strings.TrimSpace(l.Country)
	if lang == "" || country == "" {
		return model.Locale{}, fmt.Errorf("lang and country are required, got %q/%q", lang, country)
	}

	base, err := language.ParseBase(lang)
	if err != nil {
		return model.Locale{}, fmt.Errorf("language %q: %w", lang, err)
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return model.Locale{}, fmt.Errorf("country %q: %w", country, err)
	}

	return model.Locale{
		Language: base.String(),
		Country:  strings.ToLower(region.String()),
	}, nil
}
