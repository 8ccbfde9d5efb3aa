package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/openlims/limsgo/internal/buildinfo"
	"github.com/openlims/limsgo/internal/config"
	"github.com/openlims/limsgo/internal/database"
	"github.com/openlims/limsgo/internal/events"
	"github.com/openlims/limsgo/internal/middleware"
	"github.com/openlims/limsgo/internal/services/rbac"
	"github.com/openlims/limsgo/internal/services/workflow"
)

// Router wraps the mux router and the services handlers dispatch to
type Router struct {
	*mux.Router
	db       *database.DB
	cfg      *config.Config
	rbac     *rbac.Resolver
	workflow *workflow.Service
	hub      *events.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, resolver *rbac.Resolver, wf *workflow.Service, hub *events.Hub) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		cfg:      cfg,
		rbac:     resolver,
		workflow: wf,
		hub:      hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")

	// Everything under /api requires a valid token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg))

	api.HandleFunc("/me", r.currentUser).Methods("GET")

	// Registry entities (plain CRUD)
	api.HandleFunc("/sample-types", r.listSampleTypes).Methods("GET")
	api.HandleFunc("/sample-types", r.createSampleType).Methods("POST")
	api.HandleFunc("/sample-types/{id}", r.updateSampleType).Methods("PUT")
	api.HandleFunc("/sample-types/{id}", r.deleteSampleType).Methods("DELETE")

	api.HandleFunc("/sample-sources", r.listSampleSources).Methods("GET")
	api.HandleFunc("/sample-sources", r.createSampleSource).Methods("POST")
	api.HandleFunc("/sample-sources/{id}", r.updateSampleSource).Methods("PUT")
	api.HandleFunc("/sample-sources/{id}", r.deleteSampleSource).Methods("DELETE")

	api.HandleFunc("/storage-locations", r.listStorageLocations).Methods("GET")
	api.HandleFunc("/storage-locations", r.createStorageLocation).Methods("POST")
	api.HandleFunc("/storage-locations/{id}", r.updateStorageLocation).Methods("PUT")
	api.HandleFunc("/storage-locations/{id}", r.deleteStorageLocation).Methods("DELETE")

	api.HandleFunc("/test-definitions", r.listTestDefinitions).Methods("GET")
	api.HandleFunc("/test-definitions", r.createTestDefinition).Methods("POST")
	api.HandleFunc("/test-definitions/{id}", r.updateTestDefinition).Methods("PUT")
	api.HandleFunc("/test-definitions/{id}", r.deleteTestDefinition).Methods("DELETE")

	api.HandleFunc("/experiments", r.listExperiments).Methods("GET")
	api.HandleFunc("/experiments", r.createExperiment).Methods("POST")
	api.HandleFunc("/experiments/{id}", r.updateExperiment).Methods("PUT")

	// Samples and custody (workflow-gated)
	api.HandleFunc("/samples", r.listSamples).Methods("GET")
	api.HandleFunc("/samples", r.registerSample).Methods("POST")
	api.HandleFunc("/samples/{id}", r.getSample).Methods("GET")
	api.HandleFunc("/samples/{id}/status", r.updateSampleStatus).Methods("PUT")
	api.HandleFunc("/samples/{id}/custody", r.listCustody).Methods("GET")
	api.HandleFunc("/samples/{id}/custody", r.appendCustodyEntry).Methods("POST")
	api.HandleFunc("/samples/{id}/custody/report", r.custodyReport).Methods("GET")

	// Test runs (workflow-gated)
	api.HandleFunc("/test-runs", r.listTestRuns).Methods("GET")
	api.HandleFunc("/test-runs", r.requestTests).Methods("POST")
	api.HandleFunc("/test-runs/{id}", r.getTestRun).Methods("GET")
	api.HandleFunc("/test-runs/{id}", r.updateTestRun).Methods("PUT")
	api.HandleFunc("/test-runs/{id}", r.deleteTestRun).Methods("DELETE")

	// Inventory
	api.HandleFunc("/suppliers", r.listSuppliers).Methods("GET")
	api.HandleFunc("/suppliers", r.createSupplier).Methods("POST")
	api.HandleFunc("/suppliers/{id}", r.updateSupplier).Methods("PUT")
	api.HandleFunc("/suppliers/{id}", r.deleteSupplier).Methods("DELETE")

	api.HandleFunc("/reagents", r.listReagents).Methods("GET")
	api.HandleFunc("/reagents", r.createReagent).Methods("POST")
	api.HandleFunc("/reagents/{id}", r.updateReagent).Methods("PUT")
	api.HandleFunc("/reagents/{id}/adjust-stock", r.adjustReagentStock).Methods("POST")

	api.HandleFunc("/reagent-orders", r.listReagentOrders).Methods("GET")
	api.HandleFunc("/reagent-orders", r.createReagentOrder).Methods("POST")
	api.HandleFunc("/reagent-orders/{id}", r.getReagentOrder).Methods("GET")
	api.HandleFunc("/reagent-orders/{id}", r.updateReagentOrder).Methods("PUT")
	api.HandleFunc("/reagent-orders/{id}/deliver", r.markOrderDelivered).Methods("POST")

	// Admin
	api.HandleFunc("/roles", r.listRoles).Methods("GET")
	api.HandleFunc("/roles", r.createRole).Methods("POST")
	api.HandleFunc("/roles/{id}", r.updateRole).Methods("PUT")
	api.HandleFunc("/roles/{id}", r.deleteRole).Methods("DELETE")
	api.HandleFunc("/permissions", r.listPermissions).Methods("GET")
	api.HandleFunc("/users", r.listUsers).Methods("GET")
	api.HandleFunc("/users/{id}/role", r.assignUserRole).Methods("PUT")

	// Label printing
	api.HandleFunc("/labels", r.generateLabels).Methods("POST")

	// Live event feed for dashboards
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		events.ServeWs(hub, w, req)
	})

	return r
}

// Handler returns the router wrapped in global middleware
func (r *Router) Handler() http.Handler {
	return middleware.CaseInsensitiveMiddleware(r.Router)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"commit":    buildinfo.CommitHash,
		"buildTime": buildinfo.BuildTime,
		"startTime": buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondWorkflowError maps the workflow error taxonomy to HTTP statuses
func respondWorkflowError(w http.ResponseWriter, err error) {
	kind := workflow.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindValidation:
		status = http.StatusBadRequest
	case workflow.KindInvalidTransition, workflow.KindConflict:
		status = http.StatusConflict
	case workflow.KindForbidden:
		status = http.StatusForbidden
	}
	respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

// principal pulls the authenticated actor off the request; the auth
// middleware guarantees it exists on /api routes.
func principal(req *http.Request) middleware.Principal {
	p, _ := middleware.PrincipalFrom(req.Context())
	return p
}
