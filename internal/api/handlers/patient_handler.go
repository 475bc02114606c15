package handlers

import (
	"net/http"

	"github.com/vitalscan/breathmon/backend/internal/application/services"
)

// PatientHandler handles patient monitoring HTTP requests
type PatientHandler struct {
	patientService *services.PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(patientService *services.PatientService) *PatientHandler {
	return &PatientHandler{
		patientService: patientService,
	}
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientService.ListPatients(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// GetPatient handles GET /api/patients/{mobile}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	mobile := r.PathValue("mobile")
	if mobile == "" {
		respondWithError(w, http.StatusBadRequest, "mobile number is required")
		return
	}

	patient, err := h.patientService.GetPatient(r.Context(), mobile)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, patient)
}
