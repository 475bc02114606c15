package entities

import "time"

// Report event types published on the event bus when a slot changes state.
const (
	EventSlotDone  = "slot_done"
	EventSlotError = "slot_error"
)

// ReportEvent notifies stream subscribers that a slot finished.
type ReportEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	Slot      SlotID    `json:"slot"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
