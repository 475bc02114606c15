package providers

import (
	"context"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// EventBus distributes slot completion events to stream subscribers.
type EventBus interface {
	// Publish publishes an event to all subscribers of a channel
	Publish(ctx context.Context, channel string, event *entities.ReportEvent) error

	// Subscribe returns a channel of events for the given channel name.
	// The subscription ends when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error)

	// Close shuts down the event bus
	Close() error
}

// GetReportChannel returns the event channel name for a report job.
func GetReportChannel(jobID string) string {
	return "report:" + jobID
}
