package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/printer"
	"github.com/openlims/limsgo/internal/services/workflow"
)

// listSamples returns samples, optionally filtered by status
func (r *Router) listSamples(w http.ResponseWriter, req *http.Request) {
	q := r.db.Preload("SampleType").Preload("SampleSource").Preload("StorageLocation")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("current_status = ?", status)
	}

	var samples []models.Sample
	if err := q.Order("created_at DESC").Find(&samples).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch samples")
		return
	}
	respondJSON(w, http.StatusOK, samples)
}

// getSample returns a single sample
func (r *Router) getSample(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return
	}

	sample, err := r.workflow.GetSample(req.Context(), id)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

// registerSample creates a sample plus its initial custody entry
func (r *Router) registerSample(w http.ResponseWriter, req *http.Request) {
	var body workflow.RegisterSampleRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	sample, err := r.workflow.RegisterSample(req.Context(), p.Role, p.ID, body)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sample)
}

// UpdateSampleStatusRequest is the payload for a status/location change
type UpdateSampleStatusRequest struct {
	Status        models.SampleStatus `json:"status"`
	NewLocationID *uint               `json:"new_location_id,omitempty"`
	Notes         string              `json:"notes,omitempty"`
}

// updateSampleStatus moves a sample through the custody workflow
func (r *Router) updateSampleStatus(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return
	}

	var body UpdateSampleStatusRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	sample, err := r.workflow.UpdateSampleStatus(req.Context(), id, p.Role, p.ID, body.Status, body.NewLocationID, body.Notes)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sample)
}

// listCustody returns a sample's chain-of-custody ledger, oldest first
func (r *Router) listCustody(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return
	}

	entries, err := r.workflow.ListCustody(req.Context(), id)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// AppendCustodyRequest is the payload for a manual ledger entry
type AppendCustodyRequest struct {
	Action             string `json:"action"`
	Notes              string `json:"notes,omitempty"`
	PreviousLocationID *uint  `json:"previous_location_id,omitempty"`
	NewLocationID      *uint  `json:"new_location_id,omitempty"`
}

// appendCustodyEntry logs a manual custody event without touching the sample
func (r *Router) appendCustodyEntry(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermLogCustody) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return
	}

	var body AppendCustodyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	entry, err := r.workflow.AppendCustodyEntry(req.Context(), id, p.ID, body.Action, body.PreviousLocationID, body.NewLocationID, body.Notes)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// custodyReport renders the ledger as a printable PDF
func (r *Router) custodyReport(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample ID")
		return
	}

	sample, err := r.workflow.GetSample(req.Context(), id)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	entries, err := r.workflow.ListCustody(req.Context(), id)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}

	rows := make([]printer.CustodyRow, 0, len(entries))
	for _, e := range entries {
		location := ""
		if e.NewLocationID != nil {
			location = fmt.Sprintf("location %d", *e.NewLocationID)
		}
		rows = append(rows, printer.CustodyRow{
			At:       e.CreatedAt.Format(time.RFC3339),
			Action:   e.Action,
			Actor:    e.ActorID,
			Location: location,
			Notes:    e.Notes,
		})
	}

	pdfBytes, err := printer.GenerateCustodyReportPDF(sample.Code, rows)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"custody_%s.pdf\"", sample.Code))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}
