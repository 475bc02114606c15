package entities

import "time"

// SensorReading is one exhaled-breath capture from a monitoring device.
// Gas channels are nullable: a device reports only the sensors it carries.
type SensorReading struct {
	ID                  string    `json:"id" db:"id"`
	DoctorID            string    `json:"doctor_id" db:"doctor_id"`
	PatientMobileNumber string    `json:"patient_mobile_number" db:"patient_mobile_number"`
	DeviceSerialNumber  string    `json:"device_serial_number" db:"device_serial_number"`
	CO                  *float64  `json:"co" db:"co"`
	CO2                 *float64  `json:"co2" db:"co2"`
	O2                  *float64  `json:"o2" db:"o2"`
	NH3                 *float64  `json:"nh3" db:"nh3"`
	SpO2                *float64  `json:"spo2" db:"spo2"`
	HeartRate           *int      `json:"heart_rate" db:"heart_rate"`
	RQ                  *float64  `json:"rq" db:"rq"`
	Hydrogen            *float64  `json:"hydrogen" db:"hydrogen"`
	Formaldehyde        *float64  `json:"formaldehyde" db:"formaldehyde"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// PatientReading is the latest reading for a patient joined with
// demographics and report presence, used by the patient list view.
type PatientReading struct {
	Reading       SensorReading `json:"reading"`
	PatientName   string        `json:"patient_name"`
	PatientAge    int           `json:"patient_age"`
	PatientGender string        `json:"patient_gender"`
	ReportExists  bool          `json:"report_exists"`
	ReportJobID   *string       `json:"report_job_id"`
}
