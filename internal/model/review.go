package model

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// Review is a single validated feedback record.
// Records reach the harvest core only through the fetch boundary, which
// rejects anything that fails Validate.
type Review struct {
	// Author is the display name of the reviewer.
	Author string `json:"author"`

	// Rating is the score the reviewer gave (1..5).
	Rating int `json:"rating"`

	// At is when the review was written.
	At time.Time `json:"at"`

	// Text is the review body. It is empty for rating-only reviews.
	Text string `json:"text"`

	// ThumbsUp is how many users marked the review as helpful.
	ThumbsUp int `json:"thumbsUp"`

	// Reply is the developer's answer, empty when there is none.
	Reply string `json:"reply,omitempty"`

	// RepliedAt is when the developer answered. Nil when Reply is empty.
	RepliedAt *time.Time `json:"repliedAt,omitempty"`
}

// Validate checks the fields every persisted record must carry.
// An empty Text is valid; sources report an absent body with ErrMissingText.
func (r Review) Validate() error {
	if strings.TrimSpace(r.Author) == "" {
		return ErrMissingAuthor
	}
	if r.Rating < int(MinSeverityLevel) || r.Rating > int(MaxSeverityLevel) {
		return fmt.Errorf("%w: %d", ErrInvalidRating, r.Rating)
	}
	if r.At.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// ContentKey returns the deduplication identity of the review: a SHA3-256
// digest over (author, rating, timestamp, text). Two records with the same
// key are the same review no matter which partition fetched them.
func (r Review) ContentKey() string {
	var b strings.Builder
	b.WriteString(r.Author)
	b.WriteByte(0x1f)
	b.WriteString(strconv.Itoa(r.Rating))
	b.WriteByte(0x1f)
	b.WriteString(r.At.UTC().Format(time.RFC3339Nano))
	b.WriteByte(0x1f)
	b.WriteString(r.Text)

	sum := sha3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
