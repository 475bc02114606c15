package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
)

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func testPatientReadings() []*entities.PatientReading {
	co := 3.1
	jobID := "job-1"
	return []*entities.PatientReading{
		{
			Reading: entities.SensorReading{
				ID:                  "reading-1",
				PatientMobileNumber: "+2348012345678",
				CO:                  &co,
			},
			PatientName:   "Ada Obi",
			PatientAge:    54,
			PatientGender: "female",
			ReportExists:  true,
			ReportJobID:   &jobID,
		},
	}
}

func TestPatientService_ListPatients_CacheMissQueriesAndCaches(t *testing.T) {
	ctx := context.Background()

	readingRepo := new(MockSensorReadingRepo)
	cache := new(MockCacheProvider)

	cache.On("Get", mock.Anything, "patients:latest").Return(nil, errors.New("key not found"))
	readingRepo.On("ListLatestPerPatient", mock.Anything).Return(testPatientReadings(), nil)
	cache.On("Set", mock.Anything, "patients:latest", mock.Anything, 30).Return(nil)

	service := NewPatientService(new(MockPatientRepo), readingRepo, cache, nil)

	list, err := service.ListPatients(ctx)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada Obi", list[0].PatientName)
	assert.True(t, list[0].ReportExists)
	cache.AssertExpectations(t)
	readingRepo.AssertExpectations(t)
}

func TestPatientService_ListPatients_CacheHitSkipsRepository(t *testing.T) {
	ctx := context.Background()

	readingRepo := new(MockSensorReadingRepo)
	cache := new(MockCacheProvider)

	data, err := json.Marshal(testPatientReadings())
	require.NoError(t, err)
	cache.On("Get", mock.Anything, "patients:latest").Return(data, nil)

	service := NewPatientService(new(MockPatientRepo), readingRepo, cache, nil)

	list, err := service.ListPatients(ctx)

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "reading-1", list[0].Reading.ID)
	readingRepo.AssertNotCalled(t, "ListLatestPerPatient", mock.Anything)
}

func TestPatientService_ListPatients_NilCacheStillServes(t *testing.T) {
	ctx := context.Background()

	readingRepo := new(MockSensorReadingRepo)
	readingRepo.On("ListLatestPerPatient", mock.Anything).Return(testPatientReadings(), nil)

	service := NewPatientService(new(MockPatientRepo), readingRepo, nil, nil)

	list, err := service.ListPatients(ctx)

	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPatientService_GetPatient(t *testing.T) {
	ctx := context.Background()

	patientRepo := new(MockPatientRepo)
	patientRepo.On("GetByMobileNumber", mock.Anything, "+2348012345678").
		Return(&entities.Patient{MobileNumber: "+2348012345678", Name: "Ada Obi"}, nil)

	service := NewPatientService(patientRepo, new(MockSensorReadingRepo), nil, nil)

	patient, err := service.GetPatient(ctx, "+2348012345678")

	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", patient.Name)
}
