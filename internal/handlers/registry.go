package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/openlims/limsgo/internal/models"
)

// pathID parses the {id} route variable
func pathID(req *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// requireCapability checks the principal's role against the resolver
// and writes a 403 when the capability is missing.
func (r *Router) requireCapability(w http.ResponseWriter, req *http.Request, capabilities ...string) bool {
	p := principal(req)
	if !r.rbac.HasAnyPermission(p.Role, capabilities...) {
		respondError(w, http.StatusForbidden, "Insufficient permissions")
		return false
	}
	return true
}

// --- Sample types ---

func (r *Router) listSampleTypes(w http.ResponseWriter, req *http.Request) {
	var types []models.SampleType
	if err := r.db.Order("name").Find(&types).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch sample types")
		return
	}
	respondJSON(w, http.StatusOK, types)
}

func (r *Router) createSampleType(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	var st models.SampleType
	if err := json.NewDecoder(req.Body).Decode(&st); err != nil || st.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&st).Error; err != nil {
		respondError(w, http.StatusConflict, "Sample type already exists")
		return
	}
	respondJSON(w, http.StatusCreated, st)
}

func (r *Router) updateSampleType(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample type ID")
		return
	}
	var st models.SampleType
	if err := r.db.First(&st, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Sample type not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&st); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	st.ID = id
	if err := r.db.Save(&st).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update sample type")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (r *Router) deleteSampleType(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample type ID")
		return
	}

	var refs int64
	r.db.Model(&models.Sample{}).Where("sample_type_id = ?", id).Count(&refs)
	if refs > 0 {
		respondError(w, http.StatusConflict, "Sample type is still referenced by samples")
		return
	}

	if err := r.db.Delete(&models.SampleType{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete sample type")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sample type deleted"})
}

// --- Sample sources ---

func (r *Router) listSampleSources(w http.ResponseWriter, req *http.Request) {
	var sources []models.SampleSource
	if err := r.db.Order("name").Find(&sources).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch sample sources")
		return
	}
	respondJSON(w, http.StatusOK, sources)
}

func (r *Router) createSampleSource(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	var src models.SampleSource
	if err := json.NewDecoder(req.Body).Decode(&src); err != nil || src.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&src).Error; err != nil {
		respondError(w, http.StatusConflict, "Sample source already exists")
		return
	}
	respondJSON(w, http.StatusCreated, src)
}

func (r *Router) updateSampleSource(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample source ID")
		return
	}
	var src models.SampleSource
	if err := r.db.First(&src, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Sample source not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&src); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	src.ID = id
	if err := r.db.Save(&src).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update sample source")
		return
	}
	respondJSON(w, http.StatusOK, src)
}

func (r *Router) deleteSampleSource(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid sample source ID")
		return
	}

	var refs int64
	r.db.Model(&models.Sample{}).Where("sample_source_id = ?", id).Count(&refs)
	if refs > 0 {
		respondError(w, http.StatusConflict, "Sample source is still referenced by samples")
		return
	}

	if err := r.db.Delete(&models.SampleSource{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete sample source")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sample source deleted"})
}

// --- Storage locations ---

func (r *Router) listStorageLocations(w http.ResponseWriter, req *http.Request) {
	var locations []models.StorageLocation
	if err := r.db.Order("name").Find(&locations).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch storage locations")
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (r *Router) createStorageLocation(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples, models.PermManageInventory) {
		return
	}
	var loc models.StorageLocation
	if err := json.NewDecoder(req.Body).Decode(&loc); err != nil || loc.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&loc).Error; err != nil {
		respondError(w, http.StatusConflict, "Storage location already exists")
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

func (r *Router) updateStorageLocation(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples, models.PermManageInventory) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid storage location ID")
		return
	}
	var loc models.StorageLocation
	if err := r.db.First(&loc, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Storage location not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	loc.ID = id
	if err := r.db.Save(&loc).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update storage location")
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (r *Router) deleteStorageLocation(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples, models.PermManageInventory) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid storage location ID")
		return
	}

	var refs int64
	r.db.Model(&models.Sample{}).Where("storage_location_id = ?", id).Count(&refs)
	if refs > 0 {
		respondError(w, http.StatusConflict, "Storage location still holds samples")
		return
	}

	if err := r.db.Delete(&models.StorageLocation{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete storage location")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Storage location deleted"})
}

// --- Test definitions ---

func (r *Router) listTestDefinitions(w http.ResponseWriter, req *http.Request) {
	var defs []models.TestDefinition
	if err := r.db.Order("name").Find(&defs).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch test definitions")
		return
	}
	respondJSON(w, http.StatusOK, defs)
}

func (r *Router) createTestDefinition(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageTests) {
		return
	}
	var def models.TestDefinition
	if err := json.NewDecoder(req.Body).Decode(&def); err != nil || def.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&def).Error; err != nil {
		respondError(w, http.StatusConflict, "Test definition already exists")
		return
	}
	respondJSON(w, http.StatusCreated, def)
}

func (r *Router) updateTestDefinition(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageTests) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid test definition ID")
		return
	}
	var def models.TestDefinition
	if err := r.db.First(&def, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Test definition not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	def.ID = id
	if err := r.db.Save(&def).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update test definition")
		return
	}
	respondJSON(w, http.StatusOK, def)
}

func (r *Router) deleteTestDefinition(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageTests) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid test definition ID")
		return
	}

	var refs int64
	r.db.Model(&models.SampleTestRun{}).Where("test_id = ?", id).Count(&refs)
	if refs > 0 {
		respondError(w, http.StatusConflict, "Test definition is still referenced by test runs")
		return
	}

	if err := r.db.Delete(&models.TestDefinition{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete test definition")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Test definition deleted"})
}

// --- Experiments ---

func (r *Router) listExperiments(w http.ResponseWriter, req *http.Request) {
	var experiments []models.Experiment
	if err := r.db.Order("created_at DESC").Find(&experiments).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch experiments")
		return
	}
	respondJSON(w, http.StatusOK, experiments)
}

func (r *Router) createExperiment(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageTests, models.PermRequestTests) {
		return
	}
	var exp models.Experiment
	if err := json.NewDecoder(req.Body).Decode(&exp); err != nil || exp.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&exp).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create experiment")
		return
	}
	respondJSON(w, http.StatusCreated, exp)
}

func (r *Router) updateExperiment(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageTests) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid experiment ID")
		return
	}
	var exp models.Experiment
	if err := r.db.First(&exp, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Experiment not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&exp); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	exp.ID = id
	if err := r.db.Save(&exp).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update experiment")
		return
	}
	respondJSON(w, http.StatusOK, exp)
}
