package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/workflow"
)

// --- Suppliers ---

func (r *Router) listSuppliers(w http.ResponseWriter, req *http.Request) {
	var suppliers []models.Supplier
	if err := r.db.Order("name").Find(&suppliers).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (r *Router) createSupplier(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}
	var supplier models.Supplier
	if err := json.NewDecoder(req.Body).Decode(&supplier); err != nil || supplier.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := r.db.Create(&supplier).Error; err != nil {
		respondError(w, http.StatusConflict, "Supplier already exists")
		return
	}
	respondJSON(w, http.StatusCreated, supplier)
}

func (r *Router) updateSupplier(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid supplier ID")
		return
	}
	var supplier models.Supplier
	if err := r.db.First(&supplier, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Supplier not found")
		return
	}
	if err := json.NewDecoder(req.Body).Decode(&supplier); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	supplier.ID = id
	if err := r.db.Save(&supplier).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update supplier")
		return
	}
	respondJSON(w, http.StatusOK, supplier)
}

// deleteSupplier refuses to remove a supplier still referenced by
// orders or reagents.
func (r *Router) deleteSupplier(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid supplier ID")
		return
	}

	var orderRefs, reagentRefs int64
	r.db.Model(&models.ReagentOrder{}).Where("supplier_id = ?", id).Count(&orderRefs)
	r.db.Model(&models.Reagent{}).Where("supplier_id = ?", id).Count(&reagentRefs)
	if orderRefs > 0 || reagentRefs > 0 {
		respondError(w, http.StatusConflict, "Supplier is still referenced by orders or reagents")
		return
	}

	if err := r.db.Delete(&models.Supplier{}, id).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete supplier")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Supplier deleted"})
}

// --- Reagents ---

func (r *Router) listReagents(w http.ResponseWriter, req *http.Request) {
	q := r.db.Preload("Supplier")
	// ?low_stock=true narrows to reagents at or below their minimum
	if req.URL.Query().Get("low_stock") == "true" {
		q = q.Where("current_stock <= min_stock_level")
	}

	var reagents []models.Reagent
	if err := q.Order("name").Find(&reagents).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch reagents")
		return
	}
	respondJSON(w, http.StatusOK, reagents)
}

func (r *Router) createReagent(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}
	var reagent models.Reagent
	if err := json.NewDecoder(req.Body).Decode(&reagent); err != nil || reagent.Name == "" {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if reagent.CurrentStock < 0 || reagent.MinStockLevel < 0 {
		respondError(w, http.StatusBadRequest, "Stock levels must be non-negative")
		return
	}
	if err := r.db.Create(&reagent).Error; err != nil {
		respondError(w, http.StatusConflict, "Reagent already exists")
		return
	}
	respondJSON(w, http.StatusCreated, reagent)
}

// updateReagent edits descriptive fields; stock changes go through
// the adjust-stock endpoint or the delivery workflow so they are
// always guarded against going negative.
func (r *Router) updateReagent(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid reagent ID")
		return
	}
	var reagent models.Reagent
	if err := r.db.First(&reagent, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Reagent not found")
		return
	}

	currentStock := reagent.CurrentStock
	if err := json.NewDecoder(req.Body).Decode(&reagent); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	reagent.ID = id
	reagent.CurrentStock = currentStock
	if reagent.MinStockLevel < 0 {
		respondError(w, http.StatusBadRequest, "Minimum stock level must be non-negative")
		return
	}

	if err := r.db.Save(&reagent).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update reagent")
		return
	}
	respondJSON(w, http.StatusOK, reagent)
}

// AdjustStockRequest is the payload for a manual stock adjustment
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

func (r *Router) adjustReagentStock(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid reagent ID")
		return
	}

	var body AdjustStockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	reagent, err := r.workflow.AdjustReagentStock(req.Context(), id, p.Role, body.Delta, body.Reason)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reagent)
}

// --- Reagent orders ---

func (r *Router) listReagentOrders(w http.ResponseWriter, req *http.Request) {
	q := r.db.Preload("Reagent").Preload("Supplier")
	if status := req.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.ReagentOrder
	if err := q.Order("order_date DESC").Find(&orders).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch reagent orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (r *Router) getReagentOrder(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var order models.ReagentOrder
	if err := r.db.Preload("Reagent").Preload("Supplier").First(&order, id).Error; err != nil {
		respondError(w, http.StatusNotFound, "Reagent order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// CreateReagentOrderRequest is the payload for placing an order
type CreateReagentOrderRequest struct {
	ReagentID        uint   `json:"reagent_id"`
	SupplierID       *uint  `json:"supplier_id,omitempty"`
	OrderDate        string `json:"order_date"`
	ExpectedDelivery string `json:"expected_delivery,omitempty"`
	QuantityOrdered  int    `json:"quantity_ordered"`
	Notes            string `json:"notes,omitempty"`
}

func (r *Router) createReagentOrder(w http.ResponseWriter, req *http.Request) {
	if !r.requireCapability(w, req, models.PermManageInventory) {
		return
	}

	var body CreateReagentOrderRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if body.QuantityOrdered <= 0 {
		respondError(w, http.StatusBadRequest, "Quantity ordered must be a positive integer")
		return
	}

	orderDate, err := time.Parse("2006-01-02", body.OrderDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Order date must be a valid YYYY-MM-DD date")
		return
	}
	var expected *time.Time
	if body.ExpectedDelivery != "" {
		t, err := time.Parse("2006-01-02", body.ExpectedDelivery)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Expected delivery must be a valid YYYY-MM-DD date")
			return
		}
		expected = &t
	}

	var reagent models.Reagent
	if err := r.db.First(&reagent, body.ReagentID).Error; err != nil {
		respondError(w, http.StatusNotFound, "Reagent not found")
		return
	}

	p := principal(req)
	order := models.ReagentOrder{
		ReagentID:        body.ReagentID,
		SupplierID:       body.SupplierID,
		OrderDate:        orderDate,
		ExpectedDelivery: expected,
		QuantityOrdered:  body.QuantityOrdered,
		Status:           models.OrderStatusPending,
		OrderedBy:        p.ID,
		Notes:            body.Notes,
	}
	if err := r.db.Create(&order).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create reagent order")
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (r *Router) updateReagentOrder(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var patch workflow.ReagentOrderPatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	p := principal(req)
	order, err := r.workflow.UpdateReagentOrder(req.Context(), id, p.Role, patch)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// markOrderDelivered confirms receipt; the stock increment happens
// atomically inside the workflow service.
func (r *Router) markOrderDelivered(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var patch workflow.ReagentOrderPatch
	if req.ContentLength > 0 {
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	p := principal(req)
	order, err := r.workflow.MarkDelivered(req.Context(), id, p.Role, patch)
	if err != nil {
		respondWorkflowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
