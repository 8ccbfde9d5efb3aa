package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChainOfCustodyEntry is one row of a sample's custody ledger.
//
// The ledger is append-only: rows are written once at registration, at
// every status/location change and for manual operator log entries,
// and are never updated or removed. Corrections are made by appending
// a new entry. Entries are ordered by CreatedAt with ID as tiebreak.
type ChainOfCustodyEntry struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	SampleID           uint           `gorm:"index;not null" json:"sample_id"`
	ActorID            string         `gorm:"type:uuid;not null" json:"actor_id"`
	Action             string         `gorm:"not null" json:"action"` // "Registered", new status name, or free text for manual entries
	PreviousLocationID *uint          `json:"previous_location_id,omitempty"`
	NewLocationID      *uint          `json:"new_location_id,omitempty"`
	Notes              string         `gorm:"type:text" json:"notes"`
	Details            datatypes.JSON `json:"details,omitempty"` // before/after snapshot or arbitrary context

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for ChainOfCustodyEntry model
func (ChainOfCustodyEntry) TableName() string {
	return "chain_of_custody_entries"
}
