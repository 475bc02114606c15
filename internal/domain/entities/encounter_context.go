package entities

// EncounterContext is the immutable snapshot every slot derives its
// instruction from: patient identity, the free-text clinical fields,
// and the sensor capture. It is built once per generation pass and
// never mutated afterwards.
type EncounterContext struct {
	PatientName    string
	Age            int
	Gender         string
	Symptoms       string
	History        string
	Notes          string
	MedicationType string
	Attachments    map[string]string
	Sensors        SensorReading
}

// NewEncounterContext assembles the snapshot from its storage-owned
// parts. Background tasks call this after reloading the job, so the
// result matches what a task in another process would derive.
func NewEncounterContext(patient *Patient, job *ReportJob, reading *SensorReading) EncounterContext {
	ec := EncounterContext{
		Symptoms:       job.Symptoms,
		History:        job.History,
		Notes:          job.Notes,
		MedicationType: job.MedicationType,
		Attachments:    job.Attachments,
	}
	if patient != nil {
		ec.PatientName = patient.Name
		ec.Age = patient.Age
		ec.Gender = patient.Gender
	}
	if reading != nil {
		ec.Sensors = *reading
	}
	return ec
}
