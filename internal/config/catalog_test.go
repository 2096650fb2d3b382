package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestParseCatalog tests catalog decoding and validation.
func TestParseCatalog(t *testing.T) {
	t.Parallel()

	t.Run("json object with languages keeps order", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"languages": [{"lang": "EN", "country": "US"}, {"lang": "de", "country": "de"}, {"lang": "ja", "country": "jp"}]}`)
		got, err := ParseCatalog(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(got))
		}
		if got[0].Language != "en" || got[0].Country != "us" {
			t.Errorf("expected normalized en/us, got %s", got[0])
		}
		if got[2].Language != "ja" || got[2].Country != "jp" {
			t.Errorf("expected ja/jp last, got %s", got[2])
		}
	})

	t.Run("bare yaml list is accepted", func(t *testing.T) {
		t.Parallel()
		data := []byte("- lang: fr\n  country: fr\n- lang: pt\n  country: br\n")
		got, err := ParseCatalog(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[1].Country != "br" {
			t.Errorf("unexpected catalog %v", got)
		}
	})

	t.Run("empty catalog is rejected", func(t *testing.T) {
		t.Parallel()
		for _, data := range []string{"", `{"languages": []}`, "[]"} {
			if _, err := ParseCatalog([]byte(data)); !errors.Is(err, ErrEmptyCatalog) {
				t.Errorf("ParseCatalog(%q): expected ErrEmptyCatalog, got %v", data, err)
			}
		}
	})

	t.Run("unknown codes are rejected", func(t *testing.T) {
		t.Parallel()
		data := []byte(`[{"lang": "en", "country": "us"}, {"lang": "notalang", "country": "us"}]`)
		if _, err := ParseCatalog(data); !errors.Is(err, ErrInvalidLocale) {
			t.Errorf("expected ErrInvalidLocale, got %v", err)
		}
	})

	t.Run("missing country is rejected", func(t *testing.T) {
		t.Parallel()
		data := []byte(`[{"lang": "en"}]`)
		if _, err := ParseCatalog(data); !errors.Is(err, ErrInvalidLocale) {
			t.Errorf("expected ErrInvalidLocale, got %v", err)
		}
	})
}

// TestLoadCatalog tests reading a catalog file.
func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lang.json")
	if err := os.WriteFile(path, []byte(`{"languages": [{"lang": "en", "country": "gb"}]}`), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Country != "gb" {
		t.Errorf("unexpected catalog %v", got)
	}

	if _, err := LoadCatalog(path + ".missing"); err == nil {
		t.Error("expected error for missing catalog")
	}
}
