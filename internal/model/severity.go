package model

import (
	"fmt"
	"strconv"
)

// SeverityLevel is the review score bucket a partition is bound to.
// The remote source filters reviews by score, so each level is crawled
// and persisted independently.
type SeverityLevel int

const (
	// MinSeverityLevel is the lowest review score.
	MinSeverityLevel SeverityLevel = 1

	// MaxSeverityLevel is the highest review score.
	MaxSeverityLevel SeverityLevel = 5
)

// AllSeverityLevels returns every level from MinSeverityLevel to
// MaxSeverityLevel in ascending order.
func AllSeverityLevels() []SeverityLevel {
	levels := make([]SeverityLevel, 0, MaxSeverityLevel-MinSeverityLevel+1)
	for l := MinSeverityLevel; l <= MaxSeverityLevel; l++ {
		levels = append(levels, l)
	}
	return levels
}

// Valid reports whether the level is within the supported range.
func (l SeverityLevel) Valid() bool {
	return l >= MinSeverityLevel && l <= MaxSeverityLevel
}

// String returns the level as a plain number ("1".."5").
func (l SeverityLevel) String() string {
	return strconv.Itoa(int(l))
}

// ParseSeverityLevel converts a number into a SeverityLevel.
// It returns ErrInvalidSeverityLevel when n is out of range.
func ParseSeverityLevel(n int) (SeverityLevel, error) {
	l := SeverityLevel(n)
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSeverityLevel, n)
	}
	return l, nil
}
