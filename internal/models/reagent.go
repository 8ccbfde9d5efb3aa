package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus defines possible reagent order statuses
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"   // Drafted, not yet placed
	OrderStatusOrdered   OrderStatus = "Ordered"   // Placed with the supplier
	OrderStatusShipped   OrderStatus = "Shipped"   // In transit
	OrderStatusDelivered OrderStatus = "Delivered" // Received; stock incremented
	OrderStatusCancelled OrderStatus = "Cancelled" // Abandoned
)

// Supplier is a vendor reagents are ordered from
type Supplier struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `gorm:"type:text" json:"address"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}

// Reagent is a consumable tracked by stock level. CurrentStock never
// goes negative; adjustments that would take it below zero are
// rejected before any write.
type Reagent struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"uniqueIndex;not null" json:"name"`
	CASNumber     *string    `gorm:"index" json:"cas_number,omitempty"`
	Unit          string     `gorm:"default:'pcs'" json:"unit"`
	CurrentStock  int        `gorm:"not null;default:0;check:current_stock >= 0" json:"current_stock"`
	MinStockLevel int        `gorm:"not null;default:0;check:min_stock_level >= 0" json:"min_stock_level"`
	SupplierID    *uint      `gorm:"index" json:"supplier_id,omitempty"`
	ExpiryDate    *time.Time `gorm:"type:date" json:"expiry_date,omitempty"`
	StorageNotes  string     `json:"storage_notes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Supplier *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}

// TableName specifies the table name for Reagent model
func (Reagent) TableName() string {
	return "reagents"
}

// ReagentOrder is a purchase order for a reagent. The first transition
// into Delivered increments the reagent's stock by QuantityOrdered,
// exactly once; later edits while already Delivered never touch stock.
type ReagentOrder struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	ReagentID        uint        `gorm:"index;not null" json:"reagent_id"`
	SupplierID       *uint       `gorm:"index" json:"supplier_id,omitempty"`
	OrderDate        time.Time   `gorm:"type:date" json:"order_date"`
	ExpectedDelivery *time.Time  `gorm:"type:date" json:"expected_delivery,omitempty"`
	QuantityOrdered  int         `gorm:"not null" json:"quantity_ordered"`
	Status           OrderStatus `gorm:"default:'Pending';index" json:"status"`
	OrderedBy        string      `gorm:"type:uuid" json:"ordered_by"`
	Notes            string      `gorm:"type:text" json:"notes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Reagent  *Reagent  `gorm:"foreignKey:ReagentID" json:"reagent,omitempty"`
	Supplier *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}

// TableName specifies the table name for ReagentOrder model
func (ReagentOrder) TableName() string {
	return "reagent_orders"
}

// ValidOrderStatus reports whether s is a known order status value
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusOrdered, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
