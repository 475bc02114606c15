package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/repositories"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// PatientAdapter implements PatientRepository.
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter.
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert inserts the patient or refreshes demographics on conflict.
func (a *PatientAdapter) Upsert(ctx context.Context, patient *entities.Patient) error {
	if patient == nil || patient.MobileNumber == "" {
		return apperrors.NewValidationError("patient mobile number is required")
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO patients (mobile_number, name, age, gender, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mobile_number)
		DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		patient.MobileNumber,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to upsert patient", err)
	}
	return nil
}

// GetByMobileNumber retrieves a patient by mobile number.
func (a *PatientAdapter) GetByMobileNumber(ctx context.Context, mobileNumber string) (*entities.Patient, error) {
	query, args, err := a.db.Select(
		"mobile_number",
		"name",
		"age",
		"gender",
		"created_at",
	).
		From("patients").
		Where(goqu.Ex{"mobile_number": mobileNumber}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build patient query", err)
	}

	patient := &entities.Patient{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&patient.MobileNumber,
		&patient.Name,
		&patient.Age,
		&patient.Gender,
		&patient.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with mobile number %s not found", mobileNumber))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}

	return patient, nil
}
