package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	"github.com/vitalscan/breathmon/backend/internal/domain/repositories"
	"github.com/vitalscan/breathmon/backend/internal/domain/slots"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/observability"
	"github.com/vitalscan/breathmon/backend/pkg/config"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// ErrSlotInProgress signals that a slot already has a legitimate owner
// (a pending or processing task) and no duplicate run was started.
var ErrSlotInProgress = errors.New("slot generation already in progress")

// ReportService orchestrates slot generation for report jobs: the
// synchronous fast path at creation, the background fan-out of the
// remaining slots, and explicit single-slot regeneration. Failed slots
// are never retried automatically; regeneration is the only retry path.
type ReportService struct {
	jobs     repositories.ReportJobRepository
	patients repositories.PatientRepository
	readings repositories.SensorReadingRepository

	textGen  providers.TextGenerationProvider
	imageGen providers.AttachmentGenerationProvider

	statuses   providers.StatusStore
	dispatcher providers.TaskDispatcher

	// Optional collaborators; nil disables the feature.
	bus      providers.EventBus
	notifier providers.NotificationSender
	metrics  *observability.Metrics
}

// NewReportService creates a new report orchestration service.
func NewReportService(
	jobs repositories.ReportJobRepository,
	patients repositories.PatientRepository,
	readings repositories.SensorReadingRepository,
	textGen providers.TextGenerationProvider,
	imageGen providers.AttachmentGenerationProvider,
	statuses providers.StatusStore,
	dispatcher providers.TaskDispatcher,
) *ReportService {
	return &ReportService{
		jobs:       jobs,
		patients:   patients,
		readings:   readings,
		textGen:    textGen,
		imageGen:   imageGen,
		statuses:   statuses,
		dispatcher: dispatcher,
	}
}

// WithEventBus enables slot completion events.
func (s *ReportService) WithEventBus(bus providers.EventBus) *ReportService {
	s.bus = bus
	return s
}

// WithNotifier enables the doctor notification on report completion.
func (s *ReportService) WithNotifier(notifier providers.NotificationSender) *ReportService {
	s.notifier = notifier
	return s
}

// WithMetrics enables slot task metrics.
func (s *ReportService) WithMetrics(metrics *observability.Metrics) *ReportService {
	s.metrics = metrics
	return s
}

// CreateReportInput carries everything the device app submits when it
// requests a report for one encounter. Attachment references arrive
// already resolved by the upload layer.
type CreateReportInput struct {
	SensorReadingID string
	DoctorID        string
	PatientName     string
	MobileNumber    string
	Age             int
	Gender          string
	Symptoms        string
	History         string
	Notes           string
	MedicationType  string
	Attachments     map[string]string
}

// Create produces the fast-path slots synchronously, persists the job,
// and fans the remaining slots out as independent background tasks. A
// fast-path failure aborts the whole call with nothing persisted: the
// caller needs those slots in the same round trip, so a partial job
// would only mislead it.
func (s *ReportService) Create(ctx context.Context, input *CreateReportInput) (*entities.ReportJob, error) {
	if input == nil {
		return nil, apperrors.NewValidationError("report input is required")
	}
	if input.SensorReadingID == "" {
		return nil, apperrors.NewValidationError("sensor reading id is required")
	}
	if input.MobileNumber == "" {
		return nil, apperrors.NewValidationError("patient mobile number is required")
	}

	reading, err := s.readings.GetByID(ctx, input.SensorReadingID)
	if err != nil {
		return nil, err
	}

	patient := &entities.Patient{
		MobileNumber: input.MobileNumber,
		Name:         input.PatientName,
		Age:          input.Age,
		Gender:       input.Gender,
	}
	if err := s.patients.Upsert(ctx, patient); err != nil {
		return nil, err
	}

	job := &entities.ReportJob{
		ID:                  uuid.New().String(),
		SensorReadingID:     reading.ID,
		DoctorID:            input.DoctorID,
		PatientMobileNumber: input.MobileNumber,
		Symptoms:            input.Symptoms,
		History:             input.History,
		Notes:               input.Notes,
		MedicationType:      input.MedicationType,
		Attachments:         input.Attachments,
	}

	ec := entities.NewEncounterContext(patient, job, reading)

	for _, slot := range entities.FastPathSlots() {
		def, ok := slots.Lookup(slot)
		if !ok {
			return nil, apperrors.NewInternalError(fmt.Sprintf("fast-path slot %d is not registered", int(slot)), nil)
		}
		text, err := s.generateSlot(ctx, def, ec)
		if err != nil {
			return nil, err
		}
		job.SetOutput(slot, text)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)
	for _, slot := range entities.AsyncSlots() {
		slot := slot
		if err := s.statuses.SetStatus(ctx, job.ID, slot, providers.StatusPending, config.ProcessingTTL); err != nil {
			logger.Error().Err(err).Str("job_id", job.ID).Stringer("slot", slot).
				Msg("failed to write pending status")
		}

		err := s.dispatcher.Submit(func(taskCtx context.Context) {
			s.runSlot(taskCtx, job.ID, slot)
		})
		if err != nil {
			// A dropped dispatch must stay visible: the poller sees an
			// error status instead of an eternally-pending slot.
			logger.Error().Err(err).Str("job_id", job.ID).Stringer("slot", slot).
				Msg("failed to dispatch slot task")
			s.setStatus(ctx, job.ID, slot, providers.StatusError("dispatch failed: "+err.Error()), config.StatusTTL)
		}
	}

	return job, nil
}

// runSlot executes the background state machine for one slot:
// pending -> processing -> done | error | invalid.
func (s *ReportService) runSlot(ctx context.Context, jobID string, slot entities.SlotID) {
	logger := observability.LoggerFromContext(ctx)

	s.setStatus(ctx, jobID, slot, providers.StatusProcessing, config.ProcessingTTL)

	def, ok := slots.Lookup(slot)
	if !ok {
		s.setStatus(ctx, jobID, slot, providers.StatusInvalid, config.StatusTTL)
		observability.RecordSlotTask(ctx, s.metrics, slot.Name(), true)
		return
	}

	text, err := s.generateForJob(ctx, jobID, def)
	if err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Stringer("slot", slot).
			Msg("slot generation failed")
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		s.publishEvent(ctx, jobID, slot, entities.EventSlotError, providers.StatusError(errorMessage(err)))
		observability.RecordSlotTask(ctx, s.metrics, slot.Name(), true)
		return
	}

	if err := s.jobs.UpdateSlotOutput(ctx, jobID, slot, text); err != nil {
		logger.Error().Err(err).Str("job_id", jobID).Stringer("slot", slot).
			Msg("failed to persist slot output")
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		observability.RecordSlotTask(ctx, s.metrics, slot.Name(), true)
		return
	}

	s.setStatus(ctx, jobID, slot, providers.StatusDone, config.StatusTTL)
	s.publishEvent(ctx, jobID, slot, entities.EventSlotDone, providers.StatusDone)
	observability.RecordSlotTask(ctx, s.metrics, slot.Name(), false)

	s.notifyIfComplete(ctx, jobID)
}

// generateForJob reloads the job and its reading from storage and runs
// the single-slot generation. Re-derivation matters: the task may run
// on a different instance than the one that accepted the request.
func (s *ReportService) generateForJob(ctx context.Context, jobID string, def slots.Definition) (string, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	reading, err := s.readings.GetByID(ctx, job.SensorReadingID)
	if err != nil {
		return "", err
	}
	patient, err := s.patients.GetByMobileNumber(ctx, job.PatientMobileNumber)
	if err != nil {
		return "", err
	}

	ec := entities.NewEncounterContext(patient, job, reading)
	return s.generateSlot(ctx, def, ec)
}

// generateSlot produces the text for one slot: the sentinel when the
// slot's precondition is unmet, otherwise a single generation call.
func (s *ReportService) generateSlot(ctx context.Context, def slots.Definition, ec entities.EncounterContext) (string, error) {
	if !def.IsReady(ec) {
		return def.Sentinel, nil
	}

	prompt := def.Build(ec)
	if def.UsesAttachments {
		return s.imageGen.GenerateWithAttachments(ctx, prompt, ec.Attachments)
	}
	return s.textGen.GenerateText(ctx, slots.SystemPrompt(), prompt)
}

// Regenerate re-runs exactly one slot synchronously and returns the
// fresh text. With force=false a completed slot is returned as-is
// without touching the backend.
func (s *ReportService) Regenerate(ctx context.Context, jobID string, slot entities.SlotID, requesterID string, force bool) (string, error) {
	// In-progress check first: at most one legitimate owner per slot.
	value, exists, err := s.statuses.GetStatus(ctx, jobID, slot)
	if err != nil {
		return "", apperrors.NewInternalError("failed to read slot status", err)
	}
	if exists && (value == providers.StatusPending || value == providers.StatusProcessing) {
		return "", ErrSlotInProgress
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.DoctorID != requesterID {
		return "", apperrors.NewUnauthorizedError("report job belongs to a different doctor")
	}

	def, ok := slots.Lookup(slot)
	if !ok {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("unknown slot %d", int(slot)))
	}

	if !force {
		if text, ok := job.Output(slot); ok {
			return text, nil
		}
	}

	s.setStatus(ctx, jobID, slot, providers.StatusProcessing, config.ProcessingTTL)

	reading, err := s.readings.GetByID(ctx, job.SensorReadingID)
	if err != nil {
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		return "", err
	}
	patient, err := s.patients.GetByMobileNumber(ctx, job.PatientMobileNumber)
	if err != nil {
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		return "", err
	}

	ec := entities.NewEncounterContext(patient, job, reading)
	text, err := s.generateSlot(ctx, def, ec)
	if err != nil {
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		return "", err
	}

	if err := s.jobs.UpdateSlotOutput(ctx, jobID, slot, text); err != nil {
		s.setStatus(ctx, jobID, slot, providers.StatusError(errorMessage(err)), config.StatusTTL)
		return "", err
	}

	s.setStatus(ctx, jobID, slot, providers.StatusDone, config.StatusTTL)
	s.publishEvent(ctx, jobID, slot, entities.EventSlotDone, providers.StatusDone)
	return text, nil
}

// PollStatus returns the slot's status token, or "not_started" when no
// entry exists. An unknown job is indistinguishable from a slot that
// was never dispatched; callers who need existence use the job endpoint.
func (s *ReportService) PollStatus(ctx context.Context, jobID string, slot entities.SlotID) (string, error) {
	value, exists, err := s.statuses.GetStatus(ctx, jobID, slot)
	if err != nil {
		return "", apperrors.NewInternalError("failed to read slot status", err)
	}
	if !exists {
		return providers.StatusNotStarted, nil
	}
	return value, nil
}

// ReportDetail is the job joined with its sensor reading, as returned
// to the report detail view.
type ReportDetail struct {
	Job     *entities.ReportJob     `json:"report"`
	Reading *entities.SensorReading `json:"sensor_reading"`
}

// GetReportDetail loads a job together with the reading it was built from.
func (s *ReportService) GetReportDetail(ctx context.Context, jobID string) (*ReportDetail, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	reading, err := s.readings.GetByID(ctx, job.SensorReadingID)
	if err != nil {
		return nil, err
	}
	return &ReportDetail{Job: job, Reading: reading}, nil
}

// Annotate updates the doctor annotation fields on a job. Nil pointers
// leave the stored value untouched.
func (s *ReportService) Annotate(ctx context.Context, jobID string, remark, comment, note *string) error {
	if remark == nil && comment == nil && note == nil {
		return apperrors.NewValidationError("at least one annotation field is required")
	}
	return s.jobs.UpdateAnnotations(ctx, jobID, remark, comment, note)
}

// notifyIfComplete sends the doctor notification once every async slot
// has an output. Two slots finishing at the same instant can both see a
// complete job; duplicate report-ready messages are harmless.
func (s *ReportService) notifyIfComplete(ctx context.Context, jobID string) {
	if s.notifier == nil {
		return
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return
	}
	for _, slot := range entities.AsyncSlots() {
		if _, ok := job.Output(slot); !ok {
			return
		}
	}

	patient, err := s.patients.GetByMobileNumber(ctx, job.PatientMobileNumber)
	if err != nil {
		return
	}

	notification := &providers.ReportNotification{
		ToPhone:     job.DoctorID,
		PatientName: patient.Name,
		JobID:       job.ID,
	}
	if err := s.notifier.SendReportReady(ctx, notification); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("job_id", jobID).
			Msg("failed to send report-ready notification")
	}
}

func (s *ReportService) setStatus(ctx context.Context, jobID string, slot entities.SlotID, value string, ttl time.Duration) {
	if err := s.statuses.SetStatus(ctx, jobID, slot, value, ttl); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Str("job_id", jobID).Stringer("slot", slot).
			Msg("failed to write slot status")
	}
}

func (s *ReportService) publishEvent(ctx context.Context, jobID string, slot entities.SlotID, eventType, statusToken string) {
	if s.bus == nil {
		return
	}
	event := &entities.ReportEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		JobID:     jobID,
		Slot:      slot,
		Status:    statusToken,
		Timestamp: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, providers.GetReportChannel(jobID), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("job_id", jobID).
			Msg("failed to publish slot event")
	}
}

// errorMessage extracts a compact, single-line message for the status
// token. Pollers display it verbatim.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return strings.ReplaceAll(err.Error(), "\n", " ")
}
