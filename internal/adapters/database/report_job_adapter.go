package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/repositories"
	"github.com/vitalscan/breathmon/backend/internal/domain/slots"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// ReportJobAdapter implements ReportJobRepository. Each slot output has
// its own column so concurrent slot writers never touch the same field.
type ReportJobAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReportJobAdapter creates a new report job adapter.
func NewReportJobAdapter(client *postgres.Client) repositories.ReportJobRepository {
	return &ReportJobAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var allSlots = append(entities.FastPathSlots(), entities.AsyncSlots()...)

func slotColumn(slot entities.SlotID) (string, error) {
	if _, ok := slots.Lookup(slot); !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown slot %d", int(slot)))
	}
	return fmt.Sprintf("output_slot_%d", int(slot)), nil
}

// Create persists a new report job, including any fast-path outputs
// already present on it.
func (a *ReportJobAdapter) Create(ctx context.Context, job *entities.ReportJob) error {
	if job == nil {
		return apperrors.NewValidationError("report job is required")
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	attachmentsJSON, err := json.Marshal(job.Attachments)
	if err != nil {
		return apperrors.NewInternalError("failed to encode attachments", err)
	}

	record := goqu.Record{
		"id":                    job.ID,
		"sensor_reading_id":     job.SensorReadingID,
		"doctor_id":             job.DoctorID,
		"patient_mobile_number": job.PatientMobileNumber,
		"symptoms":              job.Symptoms,
		"history":               job.History,
		"notes":                 job.Notes,
		"medication_type":       job.MedicationType,
		"attachments":           string(attachmentsJSON),
		"created_at":            job.CreatedAt,
		"updated_at":            job.UpdatedAt,
	}
	for slot, text := range job.Outputs {
		column, err := slotColumn(slot)
		if err != nil {
			return err
		}
		record[column] = text
	}

	query, args, err := a.db.Insert("report_jobs").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build report job insert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create report job", err)
	}
	return nil
}

// GetByID retrieves a report job with all slot outputs.
func (a *ReportJobAdapter) GetByID(ctx context.Context, id string) (*entities.ReportJob, error) {
	columns := []interface{}{
		"id",
		"sensor_reading_id",
		"doctor_id",
		"patient_mobile_number",
		"symptoms",
		"history",
		"notes",
		"medication_type",
		"attachments",
		"doctor_remark",
		"doctor_comment",
		"doctor_note",
		"created_at",
		"updated_at",
	}
	for _, slot := range allSlots {
		column, err := slotColumn(slot)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}

	query, args, err := a.db.Select(columns...).
		From("report_jobs").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build report job query", err)
	}

	job := &entities.ReportJob{}
	var attachmentsRaw []byte
	dest := []interface{}{
		&job.ID,
		&job.SensorReadingID,
		&job.DoctorID,
		&job.PatientMobileNumber,
		&job.Symptoms,
		&job.History,
		&job.Notes,
		&job.MedicationType,
		&attachmentsRaw,
		&job.DoctorRemark,
		&job.DoctorComment,
		&job.DoctorNote,
		&job.CreatedAt,
		&job.UpdatedAt,
	}
	outputs := make([]sql.NullString, len(allSlots))
	for i := range outputs {
		dest = append(dest, &outputs[i])
	}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report job %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get report job", err)
	}

	if len(attachmentsRaw) > 0 {
		_ = json.Unmarshal(attachmentsRaw, &job.Attachments)
	}
	for i, slot := range allSlots {
		if outputs[i].Valid && outputs[i].String != "" {
			job.SetOutput(slot, outputs[i].String)
		}
	}

	return job, nil
}

// UpdateSlotOutput writes exactly one slot column plus updated_at.
func (a *ReportJobAdapter) UpdateSlotOutput(ctx context.Context, id string, slot entities.SlotID, value string) error {
	column, err := slotColumn(slot)
	if err != nil {
		return err
	}

	query, args, err := a.db.Update("report_jobs").
		Set(goqu.Record{
			column:       value,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build slot output update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update slot output", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("report job %s not found", id))
	}
	return nil
}

// UpdateAnnotations writes the doctor annotation fields. Nil pointers
// leave the stored value untouched.
func (a *ReportJobAdapter) UpdateAnnotations(ctx context.Context, id string, remark, comment, note *string) error {
	record := goqu.Record{"updated_at": time.Now().UTC()}
	if remark != nil {
		record["doctor_remark"] = *remark
	}
	if comment != nil {
		record["doctor_comment"] = *comment
	}
	if note != nil {
		record["doctor_note"] = *note
	}

	query, args, err := a.db.Update("report_jobs").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build annotations update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update annotations", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("report job %s not found", id))
	}
	return nil
}
