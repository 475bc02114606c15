package repositories

import (
	"context"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient storage.
type PatientRepository interface {
	// Upsert inserts the patient or refreshes demographics on conflict.
	Upsert(ctx context.Context, patient *entities.Patient) error
	GetByMobileNumber(ctx context.Context, mobileNumber string) (*entities.Patient, error)
}
