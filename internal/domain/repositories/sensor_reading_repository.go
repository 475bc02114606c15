package repositories

import (
	"context"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// SensorReadingRepository defines the interface for sensor reading storage.
// Readings are written by the device ingestion pipeline; this backend
// only consumes them.
type SensorReadingRepository interface {
	GetByID(ctx context.Context, id string) (*entities.SensorReading, error)
	// ListLatestPerPatient returns the most recent reading for every
	// patient, joined with demographics and report presence.
	ListLatestPerPatient(ctx context.Context) ([]*entities.PatientReading, error)
}
