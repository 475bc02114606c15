package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	"github.com/vitalscan/breathmon/backend/internal/domain/slots"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// Mocks

type MockReportJobRepo struct {
	mock.Mock
}

func (m *MockReportJobRepo) Create(ctx context.Context, job *entities.ReportJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockReportJobRepo) GetByID(ctx context.Context, id string) (*entities.ReportJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReportJob), args.Error(1)
}

func (m *MockReportJobRepo) UpdateSlotOutput(ctx context.Context, id string, slot entities.SlotID, value string) error {
	args := m.Called(ctx, id, slot, value)
	return args.Error(0)
}

func (m *MockReportJobRepo) UpdateAnnotations(ctx context.Context, id string, remark, comment, note *string) error {
	args := m.Called(ctx, id, remark, comment, note)
	return args.Error(0)
}

type MockPatientRepo struct {
	mock.Mock
}

func (m *MockPatientRepo) Upsert(ctx context.Context, patient *entities.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockPatientRepo) GetByMobileNumber(ctx context.Context, mobileNumber string) (*entities.Patient, error) {
	args := m.Called(ctx, mobileNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

type MockSensorReadingRepo struct {
	mock.Mock
}

func (m *MockSensorReadingRepo) GetByID(ctx context.Context, id string) (*entities.SensorReading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SensorReading), args.Error(1)
}

func (m *MockSensorReadingRepo) ListLatestPerPatient(ctx context.Context) ([]*entities.PatientReading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PatientReading), args.Error(1)
}

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

type MockAttachmentGenerator struct {
	mock.Mock
}

func (m *MockAttachmentGenerator) GenerateWithAttachments(ctx context.Context, userPrompt string, attachments map[string]string) (string, error) {
	args := m.Called(ctx, userPrompt, attachments)
	return args.String(0), args.Error(1)
}

// memoryStatusStore is an in-process StatusStore so tests can assert
// the full pending/processing/done progression without Redis.
type memoryStatusStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStatusStore() *memoryStatusStore {
	return &memoryStatusStore{values: make(map[string]string)}
}

func (s *memoryStatusStore) key(jobID string, slot entities.SlotID) string {
	return jobID + "/" + slot.String()
}

func (s *memoryStatusStore) SetStatus(ctx context.Context, jobID string, slot entities.SlotID, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.key(jobID, slot)] = value
	return nil
}

func (s *memoryStatusStore) GetStatus(ctx context.Context, jobID string, slot entities.SlotID) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[s.key(jobID, slot)]
	return value, ok, nil
}

// captureDispatcher records submitted tasks so the test decides when
// (and whether) background work runs.
type captureDispatcher struct {
	mu    sync.Mutex
	tasks []providers.Task
}

func (d *captureDispatcher) Submit(task providers.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *captureDispatcher) Close() {}

func (d *captureDispatcher) runAll(ctx context.Context) {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		task(ctx)
	}
}

func testReading() *entities.SensorReading {
	co := 4.2
	spo2 := 97.0
	hr := 72
	return &entities.SensorReading{
		ID:                  "reading-1",
		PatientMobileNumber: "+2348012345678",
		CO:                  &co,
		SpO2:                &spo2,
		HeartRate:           &hr,
	}
}

func testCreateInput() *CreateReportInput {
	return &CreateReportInput{
		SensorReadingID: "reading-1",
		DoctorID:        "doctor-1",
		PatientName:     "Ada Obi",
		MobileNumber:    "+2348012345678",
		Age:             54,
		Gender:          "female",
		Symptoms:        "shortness of breath",
	}
}

func TestReportService_Create_FastPathAndFanOut(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()
	dispatcher := &captureDispatcher{}

	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("generated text", nil).Twice()
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, nil, statuses, dispatcher)

	job, err := service.Create(ctx, testCreateInput())

	require.NoError(t, err)
	require.NotNil(t, job)

	// Both fast-path slots are present before the call returns.
	for _, slot := range entities.FastPathSlots() {
		text, ok := job.Output(slot)
		assert.True(t, ok, "fast-path slot %s missing", slot)
		assert.Equal(t, "generated text", text)
	}

	// Every async slot was marked pending and got exactly one task.
	for _, slot := range entities.AsyncSlots() {
		value, ok, _ := statuses.GetStatus(ctx, job.ID, slot)
		assert.True(t, ok, "no status for slot %s", slot)
		assert.Equal(t, providers.StatusPending, value)
	}
	assert.Len(t, dispatcher.tasks, len(entities.AsyncSlots()))

	jobRepo.AssertExpectations(t)
	textGen.AssertExpectations(t)
}

func TestReportService_Create_FastPathFailureAbortsEverything(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()
	dispatcher := &captureDispatcher{}

	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", apperrors.NewUpstreamError("model overloaded", nil))

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, nil, statuses, dispatcher)

	job, err := service.Create(ctx, testCreateInput())

	require.Error(t, err)
	assert.Nil(t, job)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))

	// Nothing persisted, nothing dispatched.
	jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, dispatcher.tasks)
}

func TestReportService_Create_MissingReadingIsNotFound(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	statuses := newMemoryStatusStore()

	readingRepo.On("GetByID", mock.Anything, "reading-1").
		Return(nil, apperrors.NewNotFoundError("sensor reading not found"))

	service := NewReportService(jobRepo, patientRepo, readingRepo, new(MockTextGenerator), nil, statuses, &captureDispatcher{})

	_, err := service.Create(ctx, testCreateInput())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestReportService_RunSlot_CompletesAndPersists(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()
	dispatcher := &captureDispatcher{}

	storedJob := &entities.ReportJob{
		ID:                  "job-1",
		SensorReadingID:     "reading-1",
		DoctorID:            "doctor-1",
		PatientMobileNumber: "+2348012345678",
	}

	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	patientRepo.On("GetByMobileNumber", mock.Anything, "+2348012345678").
		Return(&entities.Patient{MobileNumber: "+2348012345678", Name: "Ada Obi"}, nil)
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("slot text", nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("GetByID", mock.Anything, mock.Anything).Return(storedJob, nil)
	// Unconditional slots persist generated text; medication and imaging
	// persist their sentinels.
	jobRepo.On("UpdateSlotOutput", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, nil, statuses, dispatcher)

	job, err := service.Create(ctx, testCreateInput())
	require.NoError(t, err)

	dispatcher.runAll(ctx)

	// Unconditional async slots ended done; the conditional ones wrote
	// sentinels and are done too.
	for _, slot := range entities.AsyncSlots() {
		value, ok, _ := statuses.GetStatus(ctx, job.ID, slot)
		require.True(t, ok)
		assert.Equal(t, providers.StatusDone, value, "slot %s", slot)
	}
}

func TestReportService_RunSlot_SentinelSkipsGeneration(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	imageGen := new(MockAttachmentGenerator)
	statuses := newMemoryStatusStore()

	// No attachments, no medication type.
	storedJob := &entities.ReportJob{
		ID:                  "job-1",
		SensorReadingID:     "reading-1",
		DoctorID:            "doctor-1",
		PatientMobileNumber: "+2348012345678",
	}

	jobRepo.On("GetByID", mock.Anything, "job-1").Return(storedJob, nil)
	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("GetByMobileNumber", mock.Anything, "+2348012345678").
		Return(&entities.Patient{MobileNumber: "+2348012345678"}, nil)
	jobRepo.On("UpdateSlotOutput", mock.Anything, "job-1", entities.SlotImaging, slots.SentinelNoAttachments).Return(nil)
	jobRepo.On("UpdateSlotOutput", mock.Anything, "job-1", entities.SlotMedication, slots.SentinelNoMedicationType).Return(nil)

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, imageGen, statuses, &captureDispatcher{})

	service.runSlot(ctx, "job-1", entities.SlotImaging)
	service.runSlot(ctx, "job-1", entities.SlotMedication)

	value, _, _ := statuses.GetStatus(ctx, "job-1", entities.SlotImaging)
	assert.Equal(t, providers.StatusDone, value)
	value, _, _ = statuses.GetStatus(ctx, "job-1", entities.SlotMedication)
	assert.Equal(t, providers.StatusDone, value)

	// The sentinel path never reaches a generation backend.
	textGen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
	imageGen.AssertNotCalled(t, "GenerateWithAttachments", mock.Anything, mock.Anything, mock.Anything)
	jobRepo.AssertExpectations(t)
}

func TestReportService_RunSlot_FailureIsIsolated(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()

	storedJob := &entities.ReportJob{
		ID:                  "job-1",
		SensorReadingID:     "reading-1",
		DoctorID:            "doctor-1",
		PatientMobileNumber: "+2348012345678",
	}

	jobRepo.On("GetByID", mock.Anything, "job-1").Return(storedJob, nil)
	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("GetByMobileNumber", mock.Anything, "+2348012345678").
		Return(&entities.Patient{MobileNumber: "+2348012345678"}, nil)

	// First run (diagnosis) fails; second run (summary) succeeds.
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", apperrors.NewUpstreamError("model overloaded", nil)).Once()
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("summary text", nil).Once()
	jobRepo.On("UpdateSlotOutput", mock.Anything, "job-1", entities.SlotSummary, "summary text").Return(nil)

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, nil, statuses, &captureDispatcher{})

	service.runSlot(ctx, "job-1", entities.SlotDiagnosis)
	service.runSlot(ctx, "job-1", entities.SlotSummary)

	value, _, _ := statuses.GetStatus(ctx, "job-1", entities.SlotDiagnosis)
	assert.Equal(t, providers.StatusError("model overloaded"), value)

	value, _, _ = statuses.GetStatus(ctx, "job-1", entities.SlotSummary)
	assert.Equal(t, providers.StatusDone, value)

	// The failed slot never wrote an output.
	jobRepo.AssertNotCalled(t, "UpdateSlotOutput", mock.Anything, "job-1", entities.SlotDiagnosis, mock.Anything)
}

func TestReportService_RunSlot_UnknownSlotIsInvalid(t *testing.T) {
	ctx := context.Background()

	statuses := newMemoryStatusStore()
	service := NewReportService(new(MockReportJobRepo), new(MockPatientRepo), new(MockSensorReadingRepo),
		new(MockTextGenerator), nil, statuses, &captureDispatcher{})

	service.runSlot(ctx, "job-1", entities.SlotID(42))

	value, ok, _ := statuses.GetStatus(ctx, "job-1", entities.SlotID(42))
	require.True(t, ok)
	assert.Equal(t, providers.StatusInvalid, value)
}

func TestReportService_Regenerate_InProgressBlocksDoubleDispatch(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()

	require.NoError(t, statuses.SetStatus(ctx, "job-1", entities.SlotDiagnosis, providers.StatusProcessing, time.Minute))

	service := NewReportService(jobRepo, new(MockPatientRepo), new(MockSensorReadingRepo),
		textGen, nil, statuses, &captureDispatcher{})

	_, err := service.Regenerate(ctx, "job-1", entities.SlotDiagnosis, "doctor-1", true)

	assert.ErrorIs(t, err, ErrSlotInProgress)
	textGen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
	jobRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestReportService_Regenerate_ForceFalseReturnsStoredOutput(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()

	storedJob := &entities.ReportJob{
		ID:       "job-1",
		DoctorID: "doctor-1",
	}
	storedJob.SetOutput(entities.SlotDiagnosis, "existing diagnosis")

	jobRepo.On("GetByID", mock.Anything, "job-1").Return(storedJob, nil)

	service := NewReportService(jobRepo, new(MockPatientRepo), new(MockSensorReadingRepo),
		textGen, nil, statuses, &captureDispatcher{})

	text, err := service.Regenerate(ctx, "job-1", entities.SlotDiagnosis, "doctor-1", false)

	require.NoError(t, err)
	assert.Equal(t, "existing diagnosis", text)
	textGen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
	jobRepo.AssertNotCalled(t, "UpdateSlotOutput", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_Regenerate_ForceRunsAndPersists(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	patientRepo := new(MockPatientRepo)
	readingRepo := new(MockSensorReadingRepo)
	textGen := new(MockTextGenerator)
	statuses := newMemoryStatusStore()

	storedJob := &entities.ReportJob{
		ID:                  "job-1",
		SensorReadingID:     "reading-1",
		DoctorID:            "doctor-1",
		PatientMobileNumber: "+2348012345678",
	}
	storedJob.SetOutput(entities.SlotDiagnosis, "stale diagnosis")

	jobRepo.On("GetByID", mock.Anything, "job-1").Return(storedJob, nil)
	readingRepo.On("GetByID", mock.Anything, "reading-1").Return(testReading(), nil)
	patientRepo.On("GetByMobileNumber", mock.Anything, "+2348012345678").
		Return(&entities.Patient{MobileNumber: "+2348012345678"}, nil)
	textGen.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("fresh diagnosis", nil)
	jobRepo.On("UpdateSlotOutput", mock.Anything, "job-1", entities.SlotDiagnosis, "fresh diagnosis").Return(nil)

	service := NewReportService(jobRepo, patientRepo, readingRepo, textGen, nil, statuses, &captureDispatcher{})

	text, err := service.Regenerate(ctx, "job-1", entities.SlotDiagnosis, "doctor-1", true)

	require.NoError(t, err)
	assert.Equal(t, "fresh diagnosis", text)

	value, _, _ := statuses.GetStatus(ctx, "job-1", entities.SlotDiagnosis)
	assert.Equal(t, providers.StatusDone, value)
	jobRepo.AssertExpectations(t)
}

func TestReportService_Regenerate_WrongDoctorIsUnauthorized(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	statuses := newMemoryStatusStore()

	jobRepo.On("GetByID", mock.Anything, "job-1").
		Return(&entities.ReportJob{ID: "job-1", DoctorID: "doctor-1"}, nil)

	service := NewReportService(jobRepo, new(MockPatientRepo), new(MockSensorReadingRepo),
		new(MockTextGenerator), nil, statuses, &captureDispatcher{})

	_, err := service.Regenerate(ctx, "job-1", entities.SlotDiagnosis, "doctor-2", true)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
}

func TestReportService_Regenerate_UnknownSlotIsNotFound(t *testing.T) {
	ctx := context.Background()

	jobRepo := new(MockReportJobRepo)
	statuses := newMemoryStatusStore()

	jobRepo.On("GetByID", mock.Anything, "job-1").
		Return(&entities.ReportJob{ID: "job-1", DoctorID: "doctor-1"}, nil)

	service := NewReportService(jobRepo, new(MockPatientRepo), new(MockSensorReadingRepo),
		new(MockTextGenerator), nil, statuses, &captureDispatcher{})

	_, err := service.Regenerate(ctx, "job-1", entities.SlotID(42), "doctor-1", true)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestReportService_PollStatus(t *testing.T) {
	ctx := context.Background()

	statuses := newMemoryStatusStore()
	service := NewReportService(new(MockReportJobRepo), new(MockPatientRepo), new(MockSensorReadingRepo),
		new(MockTextGenerator), nil, statuses, &captureDispatcher{})

	// Absent entry reads as not_started.
	value, err := service.PollStatus(ctx, "job-1", entities.SlotDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, providers.StatusNotStarted, value)

	require.NoError(t, statuses.SetStatus(ctx, "job-1", entities.SlotDiagnosis, providers.StatusProcessing, time.Minute))
	value, err = service.PollStatus(ctx, "job-1", entities.SlotDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, providers.StatusProcessing, value)

	require.NoError(t, statuses.SetStatus(ctx, "job-1", entities.SlotDiagnosis, providers.StatusError("model overloaded"), time.Minute))
	value, err = service.PollStatus(ctx, "job-1", entities.SlotDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, "error:model overloaded", value)
}

func TestReportService_Annotate_RequiresAField(t *testing.T) {
	ctx := context.Background()

	service := NewReportService(new(MockReportJobRepo), new(MockPatientRepo), new(MockSensorReadingRepo),
		new(MockTextGenerator), nil, newMemoryStatusStore(), &captureDispatcher{})

	err := service.Annotate(ctx, "job-1", nil, nil, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
