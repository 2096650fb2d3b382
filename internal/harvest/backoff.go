package harvest

import (
	"time"

	"github.com/nao1215/reviewharvest/internal/config"
)

// OutcomeKind classifies the result of one fetch.
type OutcomeKind int

const (
	// KindRecords is a fetch that returned at least one record.
	KindRecords OutcomeKind = iota

	// KindEmpty is a successful fetch with no records.
	KindEmpty

	// KindError is a failed fetch.
	KindError
)

// String returns a lowercase name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case KindRecords:
		return "records"
	case KindEmpty:
		return "empty"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Action is what the controller does after a fetch.
type Action int

const (
	// Continue fetches the next page immediately.
	Continue Action = iota

	// Pause waits Decision.Delay before the next fetch.
	Pause

	// Abandon waits Decision.Delay and then gives up the partition.
	Abandon
)

// String returns a lowercase name of the action.
func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Pause:
		return "pause"
	case Abandon:
		return "abandon"
	default:
		return "unknown"
	}
}

// Decision is the policy's answer for one fetch outcome.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// BackoffPolicy maps fetch outcomes to actions. It holds no state; the
// counters are owned by the controller.
type BackoffPolicy struct {
	// EmptyPause is waited after an empty page.
	EmptyPause time.Duration

	// ErrorCooldown is waited after a failed fetch before the partition is
	// abandoned.
	ErrorCooldown time.Duration
}

// DefaultBackoffPolicy returns the policy with the default delays.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		EmptyPause:    config.DefaultEmptyPause,
		ErrorCooldown: config.DefaultErrorCooldown,
	}
}

// NewBackoffPolicy returns the policy configured by cfg.
func NewBackoffPolicy(cfg config.HarvestConfig) BackoffPolicy {
	return BackoffPolicy{
		EmptyPause:    cfg.EmptyPause,
		ErrorCooldown: cfg.ErrorCooldown,
	}
}

// Decide returns the action for kind. The streak counters are accepted so
// that policies may grow a bounded retry; this one does not use them.
// Whether an empty streak means exhaustion is the controller's decision.
func (p BackoffPolicy) Decide(kind OutcomeKind, consecutiveEmpty, consecutiveErrors int) Decision {
	switch kind {
	case KindRecords:
		return Decision{Action: Continue}
	case KindEmpty:
		return Decision{Action: Pause, Delay: p.EmptyPause}
	default:
		return Decision{Action: Abandon, Delay: p.ErrorCooldown}
	}
}
