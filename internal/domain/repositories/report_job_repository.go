package repositories

import (
	"context"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

// ReportJobRepository defines the interface for report job storage.
//
// Each slot output maps to its own column, so concurrent tasks writing
// different slots never contend: UpdateSlotOutput touches exactly one
// slot column plus updated_at.
type ReportJobRepository interface {
	Create(ctx context.Context, job *entities.ReportJob) error
	GetByID(ctx context.Context, id string) (*entities.ReportJob, error)
	UpdateSlotOutput(ctx context.Context, id string, slot entities.SlotID, value string) error
	UpdateAnnotations(ctx context.Context, id string, remark, comment, note *string) error
}
