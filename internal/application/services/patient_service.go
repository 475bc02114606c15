package services

import (
	"context"
	"encoding/json"

	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	"github.com/vitalscan/breathmon/backend/internal/domain/repositories"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/observability"
)

const (
	patientListCacheKey = "patients:latest"
	patientListCacheTTL = 30 // seconds; the monitor dashboard polls faster than this
)

// PatientService serves the monitoring dashboard: the per-patient list
// of latest readings, and single patient lookups.
type PatientService struct {
	patients repositories.PatientRepository
	readings repositories.SensorReadingRepository
	cache    providers.CacheProvider
	metrics  *observability.Metrics
}

// NewPatientService creates a new patient service. The cache is
// optional; nil disables list caching.
func NewPatientService(
	patients repositories.PatientRepository,
	readings repositories.SensorReadingRepository,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
) *PatientService {
	return &PatientService{
		patients: patients,
		readings: readings,
		cache:    cache,
		metrics:  metrics,
	}
}

// ListPatients returns the most recent reading for every patient,
// joined with demographics and report presence. The list is cached
// briefly because every open dashboard polls it.
func (s *PatientService) ListPatients(ctx context.Context) ([]*entities.PatientReading, error) {
	logger := observability.LoggerFromContext(ctx)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, patientListCacheKey); err == nil {
			var cached []*entities.PatientReading
			if err := json.Unmarshal(data, &cached); err != nil {
				logger.Warn().Err(err).Msg("failed to decode cached patient list")
			} else {
				observability.RecordCacheHit(ctx, s.metrics, patientListCacheKey)
				return cached, nil
			}
		}
		observability.RecordCacheMiss(ctx, s.metrics, patientListCacheKey)
	}

	list, err := s.readings.ListLatestPerPatient(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(list); err == nil {
			if err := s.cache.Set(ctx, patientListCacheKey, data, patientListCacheTTL); err != nil {
				logger.Warn().Err(err).Msg("failed to cache patient list")
			}
		}
	}

	return list, nil
}

// GetPatient returns one patient's demographics by mobile number.
func (s *PatientService) GetPatient(ctx context.Context, mobileNumber string) (*entities.Patient, error) {
	return s.patients.GetByMobileNumber(ctx, mobileNumber)
}
