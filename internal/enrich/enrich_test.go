package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/translate"
)

var testKey = model.DatasetKey{TargetID: "com.example.app", Level: 1}

// fakeTranslator prefixes text with the language. Texts containing "fail"
// cannot be translated.
type fakeTranslator struct {
	calls  atomic.Int32
	onCall func(n int32)
}

func (f *fakeTranslator) Translate(ctx context.Context, text, language string) (string, error) {
	n := f.calls.Add(1)
	if f.onCall != nil {
		f.onCall(n)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(text, "fail") {
		return "", fmt.Errorf("%w: model refused", translate.ErrTranslation)
	}
	return "[" + language + "] " + text, nil
}

func makeReviews(prefix string, n int) []model.Review {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Review, n)
	for i := range out {
		out[i] = model.Review{
			Author: fmt.Sprintf("%s-author-%d", prefix, i),
			Rating: 1,
			At:     base.Add(time.Duration(i) * time.Minute),
			Text:   fmt.Sprintf("%s review %d", prefix, i),
		}
	}
	return out
}

func setupStore(t *testing.T) *database.DatasetStore {
	t.Helper()
	store, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnricher_Run(t *testing.T) {
	t.Parallel()

	t.Run("translates every pending review in batches", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := setupStore(t)
		if _, err := store.Merge(ctx, testKey, "en", makeReviews("en", 7)); err != nil {
			t.Fatal(err)
		}

		tr := &fakeTranslator{}
		e := New(store, tr, "ru", WithBatchSize(3), WithProgressEvery(2), WithLogger(discardLogger()))
		stats, err := e.Run(ctx, testKey)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Translated != 7 || stats.Failed != 0 || tr.calls.Load() != 7 {
			t.Errorf("unexpected stats %+v, %d calls", stats, tr.calls.Load())
		}

		got, err := store.Translations(ctx, testKey, "ru")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 7 {
			t.Fatalf("expected 7 translations, got %d", len(got))
		}
		for _, tl := range got {
			if !strings.HasPrefix(tl.Text, "[ru] en review") || tl.Failed {
				t.Errorf("unexpected translation %+v", tl)
			}
		}
	})

	t.Run("second pass has nothing to do", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := setupStore(t)
		if _, err := store.Merge(ctx, testKey, "en", makeReviews("en", 4)); err != nil {
			t.Fatal(err)
		}
		tr := &fakeTranslator{}
		e := New(store, tr, "ru", WithLogger(discardLogger()))
		if err := e.Enrich(ctx, testKey); err != nil {
			t.Fatal(err)
		}
		stats, err := e.Run(ctx, testKey)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Total() != 0 || tr.calls.Load() != 4 {
			t.Errorf("expected an empty second pass, got %+v, %d calls", stats, tr.calls.Load())
		}
	})

	t.Run("failures keep the original text", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := setupStore(t)
		records := makeReviews("en", 3)
		records[1].Text = "please fail"
		if _, err := store.Merge(ctx, testKey, "en", records); err != nil {
			t.Fatal(err)
		}

		stats, err := New(store, &fakeTranslator{}, "ru", WithLogger(discardLogger())).Run(ctx, testKey)
		if err != nil {
			t.Fatalf("translation failures must not fail the pass: %v", err)
		}
		if stats.Translated != 2 || stats.Failed != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}

		got, err := store.Translations(ctx, testKey, "ru")
		if err != nil {
			t.Fatal(err)
		}
		failed := 0
		for _, tl := range got {
			if tl.Failed {
				failed++
				if tl.Text != "please fail" {
					t.Errorf("expected original text, got %q", tl.Text)
				}
			}
		}
		if failed != 1 {
			t.Errorf("expected 1 failed translation, got %d", failed)
		}
	})

	t.Run("reviews in the target language are copied", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := setupStore(t)
		if _, err := store.Merge(ctx, testKey, "ru", makeReviews("ru", 2)); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Merge(ctx, testKey, "de", makeReviews("de", 2)); err != nil {
			t.Fatal(err)
		}

		tr := &fakeTranslator{}
		stats, err := New(store, tr, "ru", WithLogger(discardLogger())).Run(ctx, testKey)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Copied != 2 || stats.Translated != 2 || tr.calls.Load() != 2 {
			t.Errorf("unexpected stats %+v, %d calls", stats, tr.calls.Load())
		}
	})

	t.Run("rating-only reviews are copied", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := setupStore(t)
		batch := makeReviews("de", 3)
		batch[1].Text = ""
		if _, err := store.Merge(ctx, testKey, "de", batch); err != nil {
			t.Fatal(err)
		}

		tr := &fakeTranslator{}
		stats, err := New(store, tr, "ru", WithLogger(discardLogger())).Run(ctx, testKey)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Copied != 1 || stats.Translated != 2 || tr.calls.Load() != 2 {
			t.Errorf("unexpected stats %+v, %d calls", stats, tr.calls.Load())
		}
	})

	t.Run("cancellation keeps finished work", func(t *testing.T) {
		t.Parallel()
		store := setupStore(t)
		if _, err := store.Merge(context.Background(), testKey, "en", makeReviews("en", 5)); err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		tr := &fakeTranslator{onCall: func(n int32) {
			if n == 3 {
				cancel()
			}
		}}

		stats, err := New(store, tr, "ru", WithLogger(discardLogger())).Run(ctx, testKey)
		if err == nil {
			t.Fatal("expected cancellation error")
		}
		if stats.Translated != 2 || stats.Failed != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}

		got, err := store.Translations(context.Background(), testKey, "ru")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 saved translations, got %d", len(got))
		}
	})
}

func TestSameLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"en", "en", true},
		{"en-GB", "en", true},
		{"EN", "en-us", true},
		{"de", "ru", false},
		{"", "ru", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			t.Parallel()
			if got := sameLanguage(tt.a, tt.b); got != tt.want {
				t.Errorf("sameLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
