package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reviewharvest/internal/model"
)

// datasetExt is the file extension of dataset files.
const datasetExt = ".db"

// ErrDatasetNotFound is returned when a dataset file does not exist and
// the store was opened without CreateIfNotExists.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetStore keeps one SQLite file per (target, severity level) dataset
// under a single directory. Files are opened lazily and kept open until
// Close. Writes to the same dataset are serialized; different datasets
// never contend.
type DatasetStore struct {
	dir  string
	opts Options

	mu       sync.Mutex
	datasets map[model.DatasetKey]*dataset
}

// dataset is one open dataset file.
type dataset struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Options configures DatasetStore behavior.
type Options struct {
	// CreateIfNotExists creates the directory and dataset files on demand.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging on every dataset file.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions returns options for commands that only inspect existing
// datasets.
func ReadOnlyOptions() Options {
	return Options{EnableWAL: true}
}

// Open returns a store rooted at dir.
// With CreateIfNotExists the directory is created; otherwise it must exist.
func Open(dir string, opts Options) (*DatasetStore, error) {
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	} else if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to open data directory %s: %w", dir, err)
	}

	return &DatasetStore{
		dir:      dir,
		opts:     opts,
		datasets: make(map[model.DatasetKey]*dataset),
	}, nil
}

// Dir returns the directory holding the dataset files.
func (s *DatasetStore) Dir() string {
	return s.dir
}

// Path returns the file path of the dataset for key.
func (s *DatasetStore) Path(key model.DatasetKey) string {
	return filepath.Join(s.dir, fileStem(key)+datasetExt)
}

// Close closes every open dataset file.
func (s *DatasetStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, ds := range s.datasets {
		if err := ds.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		delete(s.datasets, key)
	}
	return errors.Join(errs...)
}

// dataset returns the open dataset for key, opening it on first use.
func (s *DatasetStore) dataset(ctx context.Context, key model.DatasetKey) (*dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.datasets[key]; ok {
		return ds, nil
	}
	if err := model.ValidateTargetID(key.TargetID); err != nil {
		return nil, err
	}

	path := s.Path(key)
	dsn := path + "?mode=rw"
	if s.opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", key, err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if s.opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if s.opts.CreateIfNotExists {
		if err := writeMeta(ctx, db, key); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	ds := &dataset{db: db, path: path}
	s.datasets[key] = ds
	return ds, nil
}

// createTables creates the dataset schema if it doesn't exist.
func createTables(ctx context.Context, db *sql.DB) error {
	schema := `
	-- One row per distinct review; content_key is the dedup identity
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_key TEXT NOT NULL UNIQUE,
		author TEXT NOT NULL,
		rating INTEGER NOT NULL,
		reviewed_at TEXT NOT NULL,
		text TEXT NOT NULL,
		thumbs_up INTEGER NOT NULL DEFAULT 0,
		reply TEXT,
		replied_at TEXT,
		language TEXT NOT NULL,
		inserted_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_language ON reviews(language);

	-- Translated copies written by the enrichment pass
	CREATE TABLE IF NOT EXISTS translations (
		review_id INTEGER NOT NULL REFERENCES reviews(id),
		language TEXT NOT NULL,
		text TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		translated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (review_id, language)
	);

	CREATE TABLE IF NOT EXISTS dataset_meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func writeMeta(ctx context.Context, db *sql.DB, key model.DatasetKey) error {
	query := `INSERT INTO dataset_meta (name, value) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	for name, value := range map[string]string{
		"target_id": key.TargetID,
		"level":     key.Level.String(),
	} {
		if _, err := db.ExecContext(ctx, query, name, value); err != nil {
			return fmt.Errorf("failed to write dataset metadata: %w", err)
		}
	}
	return nil
}

// Merge appends records to the dataset for key, tagging each with
// language. Records whose content key already exists are skipped.
// The whole batch is written in one transaction, so readers never see a
// partial merge. It returns the number of newly inserted records.
func (s *DatasetStore) Merge(ctx context.Context, key model.DatasetKey, language string, records []model.Review) (int, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return 0, err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reviews (content_key, author, rating, reviewed_at, text, thumbs_up, reply, replied_at, language)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(content_key) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare merge: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		var reply, repliedAt sql.NullString
		if r.Reply != "" {
			reply = sql.NullString{String: r.Reply, Valid: true}
		}
		if r.RepliedAt != nil {
			repliedAt = sql.NullString{String: formatTime(*r.RepliedAt), Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			r.ContentKey(),
			r.Author,
			r.Rating,
			formatTime(r.At),
			r.Text,
			r.ThumbsUp,
			reply,
			repliedAt,
			language,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert review: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read insert result: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return inserted, nil
}

// Count returns the number of reviews in the dataset.
func (s *DatasetStore) Count(ctx context.Context, key model.DatasetKey) (int, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return 0, err
	}

	var n int
	if err := ds.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}

// StoredReview is a review read back from a dataset.
type StoredReview struct {
	ID       int64
	Language string
	model.Review
}

// Reviews returns every review of the dataset in insertion order.
func (s *DatasetStore) Reviews(ctx context.Context, key model.DatasetKey) ([]StoredReview, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	rows, err := ds.db.QueryContext(ctx, `
	SELECT id, author, rating, reviewed_at, text, thumbs_up, reply, replied_at, language
	FROM reviews ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	return scanReviews(rows)
}

// PendingTranslations returns up to limit reviews that have no translation
// into language yet, oldest first.
func (s *DatasetStore) PendingTranslations(ctx context.Context, key model.DatasetKey, language string, limit int) ([]StoredReview, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	rows, err := ds.db.QueryContext(ctx, `
	SELECT r.id, r.author, r.rating, r.reviewed_at, r.text, r.thumbs_up, r.reply, r.replied_at, r.language
	FROM reviews r
	LEFT JOIN translations t ON t.review_id = r.id AND t.language = ?
	WHERE t.review_id IS NULL
	ORDER BY r.id
	LIMIT ?
	`, language, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending translations: %w", err)
	}
	return scanReviews(rows)
}

func scanReviews(rows *sql.Rows) ([]StoredReview, error) {
	defer rows.Close()

	var out []StoredReview
	for rows.Next() {
		var (
			r                StoredReview
			at               string
			reply, repliedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Author, &r.Rating, &at, &r.Text, &r.ThumbsUp, &reply, &repliedAt, &r.Language); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.At = parseTimestamp(at)
		r.Reply = reply.String
		if repliedAt.Valid {
			t := parseTimestamp(repliedAt.String)
			r.RepliedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Translation is the translated text of one stored review.
type Translation struct {
	ReviewID int64
	Text     string

	// Failed marks a translation that could not be produced; Text then
	// holds the original text.
	Failed bool
}

// SaveTranslations upserts translations into language in one transaction.
func (s *DatasetStore) SaveTranslations(ctx context.Context, key model.DatasetKey, language string, items []Translation) error {
	if len(items) == 0 {
		return nil
	}

	ds, err := s.dataset(ctx, key)
	if err != nil {
		return err
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin translation write: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // Rollback after Commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO translations (review_id, language, text, failed)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(review_id, language) DO UPDATE SET
		text = excluded.text,
		failed = excluded.failed,
		translated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare translation write: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.ReviewID, language, it.Text, boolToInt(it.Failed)); err != nil {
			return fmt.Errorf("failed to save translation: %w", err)
		}
	}
	return tx.Commit()
}

// Translations returns the translations of the dataset into language keyed
// by review id.
func (s *DatasetStore) Translations(ctx context.Context, key model.DatasetKey, language string) (map[int64]Translation, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	rows, err := ds.db.QueryContext(ctx,
		"SELECT review_id, text, failed FROM translations WHERE language = ?", language)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Translation)
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.ReviewID, &t.Text, &t.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan translation: %w", err)
		}
		out[t.ReviewID] = t
	}
	return out, rows.Err()
}

// DatasetStats summarizes one dataset.
type DatasetStats struct {
	Key        model.DatasetKey `json:"dataset"`
	Path       string           `json:"path"`
	Reviews    int              `json:"reviews"`
	ByLanguage map[string]int   `json:"byLanguage"`
	Translated int              `json:"translated"`
	Failed     int              `json:"failed"`
}

// Datasets lists the dataset keys present in the store directory.
func (s *DatasetStore) Datasets() ([]model.DatasetKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	var keys []model.DatasetKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), datasetExt) {
			continue
		}
		key, ok := parseFileStem(strings.TrimSuffix(e.Name(), datasetExt))
		if !ok {
			continue
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TargetID != keys[j].TargetID {
			return keys[i].TargetID < keys[j].TargetID
		}
		return keys[i].Level < keys[j].Level
	})
	return keys, nil
}

// Stats returns per-dataset statistics for every dataset in the store.
func (s *DatasetStore) Stats(ctx context.Context) ([]DatasetStats, error) {
	keys, err := s.Datasets()
	if err != nil {
		return nil, err
	}

	out := make([]DatasetStats, 0, len(keys))
	for _, key := range keys {
		st, err := s.stats(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *DatasetStore) stats(ctx context.Context, key model.DatasetKey) (DatasetStats, error) {
	ds, err := s.dataset(ctx, key)
	if err != nil {
		return DatasetStats{}, err
	}

	st := DatasetStats{Key: key, Path: ds.path, ByLanguage: make(map[string]int)}

	rows, err := ds.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM reviews GROUP BY language ORDER BY language")
	if err != nil {
		return st, fmt.Errorf("failed to count languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			lang string
			n    int
		)
		if err := rows.Scan(&lang, &n); err != nil {
			return st, fmt.Errorf("failed to scan language count: %w", err)
		}
		st.ByLanguage[lang] = n
		st.Reviews += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = ds.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(failed), 0) FROM translations").Scan(&st.Translated, &st.Failed)
	if err != nil {
		return st, fmt.Errorf("failed to count translations: %w", err)
	}
	return st, nil
}

// fileStem returns the file name (without extension) of the dataset.
// Target ids are restricted by model.ValidateTargetID, so the stem maps back
// to exactly one key.
func fileStem(key model.DatasetKey) string {
	return key.TargetID + "-" + key.Level.String()
}

// parseFileStem reverses fileStem for file names it produced.
func parseFileStem(stem string) (model.DatasetKey, bool) {
	i := strings.LastIndex(stem, "-")
	if i <= 0 {
		return model.DatasetKey{}, false
	}
	n, err := strconv.Atoi(stem[i+1:])
	if err != nil {
		return model.DatasetKey{}, false
	}
	level, err := model.ParseSeverityLevel(n)
	if err != nil {
		return model.DatasetKey{}, false
	}
	if model.ValidateTargetID(stem[:i]) != nil {
		return model.DatasetKey{}, false
	}
	return model.DatasetKey{TargetID: stem[:i], Level: level}, true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats lists the formats parseTimestamp accepts, most specific
// first. SQLite returns CURRENT_TIMESTAMP values without a zone.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

// parseTimestamp parses s with the first matching format, or returns the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
