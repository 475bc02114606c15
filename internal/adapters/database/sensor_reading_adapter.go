package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/repositories"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// SensorReadingAdapter implements SensorReadingRepository.
type SensorReadingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	dbx    *sqlx.DB
}

// NewSensorReadingAdapter creates a new sensor reading adapter.
func NewSensorReadingAdapter(client *postgres.Client) repositories.SensorReadingRepository {
	return &SensorReadingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		dbx:    sqlx.NewDb(client.DB(), "postgres"),
	}
}

var sensorReadingColumns = []interface{}{
	"id",
	"doctor_id",
	"patient_mobile_number",
	"device_serial_number",
	"co",
	"co2",
	"o2",
	"nh3",
	"spo2",
	"heart_rate",
	"rq",
	"hydrogen",
	"formaldehyde",
	"created_at",
}

// GetByID retrieves one sensor reading.
func (a *SensorReadingAdapter) GetByID(ctx context.Context, id string) (*entities.SensorReading, error) {
	query, args, err := a.db.Select(sensorReadingColumns...).
		From("sensor_readings").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build sensor reading query", err)
	}

	reading := &entities.SensorReading{}
	err = a.dbx.GetContext(ctx, reading, query, args...)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("sensor reading %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get sensor reading", err)
	}

	return reading, nil
}

// patientReadingRow flattens the list join for struct scanning.
type patientReadingRow struct {
	entities.SensorReading
	PatientName   string         `db:"patient_name"`
	PatientAge    int            `db:"patient_age"`
	PatientGender string         `db:"patient_gender"`
	ReportJobID   sql.NullString `db:"report_job_id"`
}

// ListLatestPerPatient returns the most recent reading per patient
// joined with demographics and whether a report job exists for it.
func (a *SensorReadingAdapter) ListLatestPerPatient(ctx context.Context) ([]*entities.PatientReading, error) {
	query := `
		SELECT DISTINCT ON (r.patient_mobile_number)
			r.id, r.doctor_id, r.patient_mobile_number, r.device_serial_number,
			r.co, r.co2, r.o2, r.nh3, r.spo2, r.heart_rate,
			r.rq, r.hydrogen, r.formaldehyde, r.created_at,
			COALESCE(p.name, '') AS patient_name,
			COALESCE(p.age, 0) AS patient_age,
			COALESCE(p.gender, '') AS patient_gender,
			j.id AS report_job_id
		FROM sensor_readings r
		LEFT JOIN patients p ON p.mobile_number = r.patient_mobile_number
		LEFT JOIN LATERAL (
			SELECT id FROM report_jobs
			WHERE sensor_reading_id = r.id
			ORDER BY created_at DESC
			LIMIT 1
		) j ON true
		ORDER BY r.patient_mobile_number, r.created_at DESC
	`

	var rows []patientReadingRow
	if err := a.dbx.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperrors.NewInternalError("failed to list latest readings", err)
	}

	results := make([]*entities.PatientReading, 0, len(rows))
	for _, row := range rows {
		item := &entities.PatientReading{
			Reading:       row.SensorReading,
			PatientName:   row.PatientName,
			PatientAge:    row.PatientAge,
			PatientGender: row.PatientGender,
		}
		if row.ReportJobID.Valid {
			item.ReportExists = true
			jobID := row.ReportJobID.String
			item.ReportJobID = &jobID
		}
		results = append(results, item)
	}

	return results, nil
}
