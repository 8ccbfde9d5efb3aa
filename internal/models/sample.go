package models

import (
	"time"

	"gorm.io/gorm"
)

// SampleStatus defines possible sample statuses
type SampleStatus string

const (
	SampleStatusRegistered SampleStatus = "Registered"  // Newly registered, not yet stored
	SampleStatusInStorage  SampleStatus = "In Storage"  // Physically stored; requires a storage location
	SampleStatusInAnalysis SampleStatus = "In Analysis" // Checked out for testing
	SampleStatusDiscarded  SampleStatus = "Discarded"   // Destroyed / used up
	SampleStatusArchived   SampleStatus = "Archived"    // Long-term retention
)

// SampleType is a registry entry classifying samples (blood, soil, ...)
type SampleType struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for SampleType model
func (SampleType) TableName() string {
	return "sample_types"
}

// SampleSource is a registry entry describing where a sample came from
type SampleSource struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	ContactInfo string `json:"contact_info"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for SampleSource model
func (SampleSource) TableName() string {
	return "sample_sources"
}

// StorageLocation is a physical storage place (freezer, shelf, room)
type StorageLocation struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"uniqueIndex;not null" json:"name"`
	Description string  `json:"description"`
	Temperature *string `json:"temperature,omitempty"` // e.g. "-80C", "room"
	Capacity    *int    `json:"capacity,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for StorageLocation model
func (StorageLocation) TableName() string {
	return "storage_locations"
}

// Sample represents a physical specimen tracked by the lab.
//
// Samples are never physically deleted and the status/location pair is
// only ever changed through the workflow service, which couples every
// change with a chain-of-custody entry. A sample with status
// "In Storage" always carries a non-null StorageLocationID.
type Sample struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Code              string       `gorm:"uniqueIndex;not null" json:"code"` // human-readable identifier, printed on the label
	SampleTypeID      uint         `gorm:"index;not null" json:"sample_type_id"`
	SampleSourceID    uint         `gorm:"index;not null" json:"sample_source_id"`
	CurrentStatus     SampleStatus `gorm:"default:'Registered';index" json:"current_status"`
	StorageLocationID *uint        `gorm:"index" json:"storage_location_id,omitempty"`
	CollectedAt       *time.Time   `json:"collected_at,omitempty"`
	RegisteredBy      string       `gorm:"type:uuid;index" json:"registered_by"`
	Notes             string       `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	SampleType      *SampleType      `gorm:"foreignKey:SampleTypeID" json:"sample_type,omitempty"`
	SampleSource    *SampleSource    `gorm:"foreignKey:SampleSourceID" json:"sample_source,omitempty"`
	StorageLocation *StorageLocation `gorm:"foreignKey:StorageLocationID" json:"storage_location,omitempty"`
}

// TableName specifies the table name for Sample model
func (Sample) TableName() string {
	return "samples"
}

// ValidSampleStatus reports whether s is a known sample status value
func ValidSampleStatus(s SampleStatus) bool {
	switch s {
	case SampleStatusRegistered, SampleStatusInStorage, SampleStatusInAnalysis,
		SampleStatusDiscarded, SampleStatusArchived:
		return true
	}
	return false
}
