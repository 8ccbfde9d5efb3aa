package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/workflow"
)

// RequestTestsRequest creates runs for every (sample, test) pair
type RequestTestsRequest struct {
	SampleIDs    []uint `json:"sample_ids"`
	TestIDs      []uint `json:"test_ids"`
	ExperimentID *uint  `json:"experiment_id,omitempty"`
}

// requestTests creates pending runs in batch
func (r *Router) requestTests(w http.ResponseWriter, req *http.Request) {
	var body RequestTestsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	runs, err := r.workflow.RequestTests(req.Context(), body.SampleIDs, body.TestIDs, body.ExperimentID, p.Role, p.ID)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, runs)
}

// listTestRuns returns runs, filterable by sample and status
func (r *Router) listTestRuns(w http.ResponseWriter, req *http.Request) {
	var sampleID *uint
	if raw := req.URL.Query().Get("sample_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sample_id filter")
			return
		}
		id := uint(parsed)
		sampleID = &id
	}

	var status *models.TestRunStatus
	if raw := req.URL.Query().Get("status"); raw != "" {
		s := models.TestRunStatus(raw)
		status = &s
	}

	runs, err := r.workflow.ListTestRuns(req.Context(), sampleID, status)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

// getTestRun returns a single run with its relations
func (r *Router) getTestRun(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid test run ID")
		return
	}

	run, err := r.workflow.GetTestRun(req.Context(), id)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// updateTestRun applies a patch through the transition graph
func (r *Router) updateTestRun(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid test run ID")
		return
	}

	var patch workflow.TestRunPatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	run, err := r.workflow.UpdateTestRun(req.Context(), id, p.Role, p.ID, patch)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// deleteTestRun removes a run (administrative override)
func (r *Router) deleteTestRun(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid test run ID")
		return
	}

	p := principal(req)
	if err := r.workflow.DeleteTestRun(req.Context(), id, p.Role); err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Test run deleted"})
}
