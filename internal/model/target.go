package model

import "fmt"

// Target is an application whose reviews are harvested.
// It is resolved once per run and never changes afterwards.
type Target struct {
	// ID is the store identifier, e.g. "com.example.app".
	ID string `json:"id"`

	// Title is the display name resolved from the store metadata.
	// It falls back to ID when metadata is unavailable.
	Title string `json:"title"`
}

// ValidateTargetID checks that id is a store identifier such as
// "com.example.app". The id is used verbatim in dataset file names.
func ValidateTargetID(id string) error {
	if id == "" {
		return ErrEmptyTargetID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidTargetID, id)
		}
	}
	return nil
}

// DisplayName returns Title when known, otherwise ID.
func (t Target) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

// Locale is one entry of the language/region catalog.
type Locale struct {
	// Language is a BCP 47 base language code such as "en".
	Language string `json:"lang" yaml:"lang"`

	// Country is an ISO 3166 region code such as "us".
	Country string `json:"country" yaml:"country"`
}

// String returns "lang-country".
func (l Locale) String() string {
	return l.Language + "-" + l.Country
}

// DatasetKey identifies one durable dataset: every partition of a target
// at a given severity level merges into the same dataset.
type DatasetKey struct {
	TargetID string        `json:"targetId"`
	Level    SeverityLevel `json:"level"`
}

// String returns "targetID-level", which is also the dataset file stem.
func (k DatasetKey) String() string {
	return fmt.Sprintf("%s-%d", k.TargetID, k.Level)
}

// Partition is the unit of independent crawl state: one target, one
// severity level and one locale.
type Partition struct {
	Target Target        `json:"target"`
	Level  SeverityLevel `json:"level"`
	Locale Locale        `json:"locale"`
}

// Dataset returns the key of the dataset this partition merges into.
func (p Partition) Dataset() DatasetKey {
	return DatasetKey{TargetID: p.Target.ID, Level: p.Level}
}

// String returns a compact label such as "com.example.app/3/en-us".
func (p Partition) String() string {
	return fmt.Sprintf("%s/%d/%s", p.Target.ID, p.Level, p.Locale)
}
