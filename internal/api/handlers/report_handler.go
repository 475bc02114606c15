package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitalscan/breathmon/backend/internal/application/services"
	"github.com/vitalscan/breathmon/backend/internal/domain/entities"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

// ReportHandler handles report generation HTTP requests
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

type createReportRequest struct {
	SensorReadingID string            `json:"sensor_reading_id"`
	DoctorID        string            `json:"doctor_id"`
	PatientName     string            `json:"patient_name"`
	MobileNumber    string            `json:"mobile_number"`
	Age             int               `json:"age"`
	Gender          string            `json:"gender"`
	Symptoms        string            `json:"symptoms"`
	History         string            `json:"history"`
	Notes           string            `json:"notes"`
	MedicationType  string            `json:"medication_type"`
	Attachments     map[string]string `json:"attachments"`
}

// CreateReport handles POST /api/reports
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.reportService.Create(r.Context(), &services.CreateReportInput{
		SensorReadingID: req.SensorReadingID,
		DoctorID:        req.DoctorID,
		PatientName:     req.PatientName,
		MobileNumber:    req.MobileNumber,
		Age:             req.Age,
		Gender:          req.Gender,
		Symptoms:        req.Symptoms,
		History:         req.History,
		Notes:           req.Notes,
		MedicationType:  req.MedicationType,
		Attachments:     req.Attachments,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, job)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}

	detail, err := h.reportService.GetReportDetail(r.Context(), jobID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, detail)
}

// GetSlotStatus handles GET /api/reports/{id}/slots/{slot}/status
func (h *ReportHandler) GetSlotStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}

	slot, err := entities.ParseSlotID(r.PathValue("slot"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid slot")
		return
	}

	status, err := h.reportService.PollStatus(r.Context(), jobID, slot)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"slot":   slot.Name(),
		"status": status,
	})
}

type regenerateSlotRequest struct {
	DoctorID string `json:"doctor_id"`
	Force    bool   `json:"force"`
}

// RegenerateSlot handles POST /api/reports/{id}/slots/{slot}/regenerate
func (h *ReportHandler) RegenerateSlot(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}

	slot, err := entities.ParseSlotID(r.PathValue("slot"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid slot")
		return
	}

	var req regenerateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, err := h.reportService.Regenerate(r.Context(), jobID, slot, req.DoctorID, req.Force)
	if err != nil {
		if errors.Is(err, services.ErrSlotInProgress) {
			respondWithError(w, http.StatusConflict, "slot generation already in progress")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"slot":   slot.Name(),
		"output": text,
	})
}

type annotateRequest struct {
	DoctorRemark  *string `json:"doctor_remark"`
	DoctorComment *string `json:"doctor_comment"`
	DoctorNote    *string `json:"doctor_note"`
}

// UpdateAnnotations handles PATCH /api/reports/{id}/annotations
func (h *ReportHandler) UpdateAnnotations(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		respondWithError(w, http.StatusBadRequest, "report ID is required")
		return
	}

	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.reportService.Annotate(r.Context(), jobID, req.DoctorRemark, req.DoctorComment, req.DoctorNote); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Helper functions

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeUnauthorized:
			respondWithError(w, http.StatusForbidden, appErr.Message)
		case apperrors.ErrorTypeConflict:
			respondWithError(w, http.StatusConflict, appErr.Message)
		case apperrors.ErrorTypeUpstream:
			respondWithError(w, http.StatusBadGateway, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
