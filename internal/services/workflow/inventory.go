package workflow

import (
	"context"
	"time"

	"github.com/openlims/limsgo/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReagentOrderPatch carries the mutable fields of an order update.
// Date fields use ISO calendar dates (YYYY-MM-DD). Nil fields are
// left untouched.
type ReagentOrderPatch struct {
	Status           *models.OrderStatus `json:"status,omitempty"`
	QuantityOrdered  *int                `json:"quantity_ordered,omitempty"`
	OrderDate        *string             `json:"order_date,omitempty"`
	ExpectedDelivery *string             `json:"expected_delivery,omitempty"`
	SupplierID       *uint               `json:"supplier_id,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
}

const isoDate = "2006-01-02"

// UpdateReagentOrder edits an order. The first transition into
// Delivered increments the reagent's stock by the resolved quantity
// inside the same transaction as the order write; either both commit
// or neither does. Confirming delivery on an already-Delivered order
// edits the other fields but never re-increments stock. Moving away
// from Delivered does not reverse stock: receipts are treated as
// final once booked (disputed deliveries are corrected with a manual
// stock adjustment).
func (s *Service) UpdateReagentOrder(ctx context.Context, orderID uint, actorRole string, patch ReagentOrderPatch) (*models.ReagentOrder, error) {
	if !s.rbac.HasPermission(actorRole, models.PermManageInventory) {
		return nil, forbidden("role %q may not manage inventory", actorRole)
	}

	// Validate everything before the transaction opens; validation
	// failures never touch the store.
	if patch.Status != nil && !models.ValidOrderStatus(*patch.Status) {
		return nil, validation("unknown order status %q", string(*patch.Status))
	}
	if patch.QuantityOrdered != nil && *patch.QuantityOrdered <= 0 {
		return nil, validation("quantity ordered must be a positive integer")
	}
	var orderDate, expectedDelivery *time.Time
	if patch.OrderDate != nil {
		t, err := time.Parse(isoDate, *patch.OrderDate)
		if err != nil {
			return nil, validation("order date %q is not a valid YYYY-MM-DD date", *patch.OrderDate)
		}
		orderDate = &t
	}
	if patch.ExpectedDelivery != nil {
		t, err := time.Parse(isoDate, *patch.ExpectedDelivery)
		if err != nil {
			return nil, validation("expected delivery %q is not a valid YYYY-MM-DD date", *patch.ExpectedDelivery)
		}
		expectedDelivery = &t
	}

	var order models.ReagentOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock serializes concurrent delivery confirmations on
		// the same order; the loser sees Delivered already set and
		// skips the stock increment.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, orderID).Error; err != nil {
			return wrapStoreErr(err, "reagent order %d not found", orderID)
		}

		wasDelivered := order.Status == models.OrderStatusDelivered

		if patch.QuantityOrdered != nil {
			order.QuantityOrdered = *patch.QuantityOrdered
		}
		if orderDate != nil {
			order.OrderDate = *orderDate
		}
		if expectedDelivery != nil {
			order.ExpectedDelivery = expectedDelivery
		}
		if patch.SupplierID != nil {
			var supplier models.Supplier
			if err := tx.First(&supplier, *patch.SupplierID).Error; err != nil {
				return wrapStoreErr(err, "supplier %d not found", *patch.SupplierID)
			}
			order.SupplierID = patch.SupplierID
		}
		if patch.Notes != nil {
			order.Notes = *patch.Notes
		}
		if patch.Status != nil {
			order.Status = *patch.Status
		}

		if order.Status == models.OrderStatusDelivered && !wasDelivered {
			var reagent models.Reagent
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&reagent, order.ReagentID).Error; err != nil {
				return wrapStoreErr(err, "reagent %d not found", order.ReagentID)
			}
			reagent.CurrentStock += order.QuantityOrdered
			if err := tx.Save(&reagent).Error; err != nil {
				return err
			}
		}

		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, asWorkflowErr(err)
	}

	s.publish(EventOrderUpdated, order)
	return &order, nil
}

// MarkDelivered confirms receipt of an order, applying any remaining
// field edits in the same mutation.
func (s *Service) MarkDelivered(ctx context.Context, orderID uint, actorRole string, patch ReagentOrderPatch) (*models.ReagentOrder, error) {
	delivered := models.OrderStatusDelivered
	patch.Status = &delivered
	return s.UpdateReagentOrder(ctx, orderID, actorRole, patch)
}

// AdjustReagentStock applies a manual stock delta (cycle count,
// breakage, disputed delivery). A delta that would take the stock
// negative is rejected without touching the row.
func (s *Service) AdjustReagentStock(ctx context.Context, reagentID uint, actorRole string, delta int, reason string) (*models.Reagent, error) {
	if !s.rbac.HasPermission(actorRole, models.PermManageInventory) {
		return nil, forbidden("role %q may not manage inventory", actorRole)
	}
	if delta == 0 {
		return nil, validation("stock adjustment delta must be non-zero")
	}

	var reagent models.Reagent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&reagent, reagentID).Error; err != nil {
			return wrapStoreErr(err, "reagent %d not found", reagentID)
		}
		if reagent.CurrentStock+delta < 0 {
			return validation("adjustment of %d would take %q below zero stock (current %d)",
				delta, reagent.Name, reagent.CurrentStock)
		}
		reagent.CurrentStock += delta
		return tx.Save(&reagent).Error
	})
	if err != nil {
		return nil, asWorkflowErr(err)
	}

	s.publish(EventStockAdjusted, map[string]interface{}{
		"reagent_id":    reagent.ID,
		"delta":         delta,
		"current_stock": reagent.CurrentStock,
		"reason":        reason,
	})
	return &reagent, nil
}
