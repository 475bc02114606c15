package database

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalscan/breathmon/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

func newReadingAdapter(t *testing.T) (*SensorReadingAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := NewSensorReadingAdapter(postgres.NewClientWithDB(db)).(*SensorReadingAdapter)
	return adapter, mock
}

func TestSensorReadingAdapter_GetByID_ScansNullableChannels(t *testing.T) {
	adapter, mock := newReadingAdapter(t)

	columns := []string{
		"id", "doctor_id", "patient_mobile_number", "device_serial_number",
		"co", "co2", "o2", "nh3", "spo2", "heart_rate",
		"rq", "hydrogen", "formaldehyde", "created_at",
	}
	mock.ExpectQuery(`SELECT .* FROM "sensor_readings" WHERE`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"reading-1", "doctor-1", "+2348012345678", "dev-7",
			4.2, nil, 14.5, nil, 97.0, 72,
			nil, nil, nil, time.Now(),
		))

	reading, err := adapter.GetByID(context.Background(), "reading-1")

	require.NoError(t, err)
	assert.Equal(t, "reading-1", reading.ID)
	require.NotNil(t, reading.CO)
	assert.Equal(t, 4.2, *reading.CO)
	assert.Nil(t, reading.CO2)
	require.NotNil(t, reading.HeartRate)
	assert.Equal(t, 72, *reading.HeartRate)
}

func TestSensorReadingAdapter_GetByID_MissingIsNotFound(t *testing.T) {
	adapter, mock := newReadingAdapter(t)

	mock.ExpectQuery(`SELECT .* FROM "sensor_readings" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := adapter.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSensorReadingAdapter_ListLatestPerPatient_MapsReportPresence(t *testing.T) {
	adapter, mock := newReadingAdapter(t)

	columns := []string{
		"id", "doctor_id", "patient_mobile_number", "device_serial_number",
		"co", "co2", "o2", "nh3", "spo2", "heart_rate",
		"rq", "hydrogen", "formaldehyde", "created_at",
		"patient_name", "patient_age", "patient_gender", "report_job_id",
	}
	mock.ExpectQuery(`SELECT DISTINCT ON \(r.patient_mobile_number\)`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(
				"reading-1", "doctor-1", "+2348012345678", "dev-7",
				4.2, nil, nil, nil, nil, nil,
				nil, nil, nil, time.Now(),
				"Ada Obi", 54, "female", "job-1",
			).
			AddRow(
				"reading-2", "doctor-1", "+2348099999999", "dev-8",
				nil, nil, nil, nil, nil, nil,
				nil, nil, nil, time.Now(),
				"Bayo Ade", 61, "male", nil,
			))

	list, err := adapter.ListLatestPerPatient(context.Background())

	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Ada Obi", list[0].PatientName)
	assert.True(t, list[0].ReportExists)
	require.NotNil(t, list[0].ReportJobID)
	assert.Equal(t, "job-1", *list[0].ReportJobID)

	assert.Equal(t, "Bayo Ade", list[1].PatientName)
	assert.False(t, list[1].ReportExists)
	assert.Nil(t, list[1].ReportJobID)
}
