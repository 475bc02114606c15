package entities

import "time"

// ReportJob aggregates every generated slot output for one clinical
// encounter. Slot outputs start absent and are written exactly once by
// the background task (or explicit regeneration) that owns the slot.
type ReportJob struct {
	ID                  string            `json:"id" db:"id"`
	SensorReadingID     string            `json:"sensor_reading_id" db:"sensor_reading_id"`
	DoctorID            string            `json:"doctor_id" db:"doctor_id"`
	PatientMobileNumber string            `json:"patient_mobile_number" db:"patient_mobile_number"`
	Symptoms            string            `json:"symptoms" db:"symptoms"`
	History             string            `json:"history" db:"history"`
	Notes               string            `json:"notes" db:"notes"`
	MedicationType      string            `json:"medication_type" db:"medication_type"`
	Attachments         map[string]string `json:"attachments" db:"attachments"`

	// Outputs holds the completed slot texts. A missing key means the
	// slot has not completed; it never holds an empty string.
	Outputs map[SlotID]string `json:"outputs"`

	DoctorRemark  *string `json:"doctor_remark" db:"doctor_remark"`
	DoctorComment *string `json:"doctor_comment" db:"doctor_comment"`
	DoctorNote    *string `json:"doctor_note" db:"doctor_note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Output returns the stored text for a slot, if present.
func (j *ReportJob) Output(slot SlotID) (string, bool) {
	if j.Outputs == nil {
		return "", false
	}
	text, ok := j.Outputs[slot]
	return text, ok
}

// SetOutput records a completed slot text on the in-memory job.
func (j *ReportJob) SetOutput(slot SlotID, text string) {
	if j.Outputs == nil {
		j.Outputs = make(map[SlotID]string)
	}
	j.Outputs[slot] = text
}
