package providers

import (
	"context"
	"time"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// Slot status tokens, visible to polling clients as literal strings.
// An error status carries the message after the colon.
const (
	StatusPending     = "pending"
	StatusProcessing  = "processing"
	StatusDone        = "done"
	StatusInvalid     = "invalid"
	StatusErrorPrefix = "error:"

	// StatusNotStarted is what pollers see when no entry exists. It is
	// never written: absence of a key is the representation.
	StatusNotStarted = "not_started"
)

// StatusError renders an error token from a failure message.
func StatusError(message string) string {
	return StatusErrorPrefix + message
}

// StatusStore is the ephemeral, TTL-bounded progress signal for slot
// tasks. It is never the source of truth for a slot's final output; an
// expired entry means "historical, consult the job record". Last write
// wins on concurrent writers, which is acceptable because the dispatch
// discipline allows at most one legitimate owner per (job, slot).
type StatusStore interface {
	SetStatus(ctx context.Context, jobID string, slot entities.SlotID, value string, ttl time.Duration) error
	// GetStatus returns the stored token and whether an entry exists.
	GetStatus(ctx context.Context, jobID string, slot entities.SlotID) (string, bool, error)
}
