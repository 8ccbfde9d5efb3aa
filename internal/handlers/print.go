package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/printer"
)

// generateLabels renders a printable A4 sheet of QR labels for the
// requested sample codes. Layout defaults match common 3x7 label paper.
func (r *Router) generateLabels(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageSamples, models.PermLogCustody) {
		return
	}

	var cfg printer.LabelConfig
	if err := json.NewDecoder(req.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(cfg.Codes) == 0 {
		respondError(w, http.StatusBadRequest, "No sample codes supplied")
		return
	}

	if cfg.Cols <= 0 {
		cfg.Cols = 3
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 7
	}
	if cfg.MarginTop <= 0 {
		cfg.MarginTop = 10
	}
	if cfg.MarginLeft <= 0 {
		cfg.MarginLeft = 7
	}
	if cfg.GapX <= 0 {
		cfg.GapX = 2.5
	}
	if cfg.GapY <= 0 {
		cfg.GapY = 0
	}

	// Only print labels for codes that actually exist
	var known int64
	r.db.Model(&models.Sample{}).Where("code IN ?", cfg.Codes).Count(&known)
	if int(known) != len(cfg.Codes) {
		respondError(w, http.StatusBadRequest, "One or more sample codes are unknown")
		return
	}

	pdfBytes, err := printer.GenerateLabelsPDF(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate labels: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="sample_labels.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
