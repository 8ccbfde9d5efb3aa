package models

import (
	"time"

	"gorm.io/gorm"
)

// TestRunStatus defines possible sample test run statuses
type TestRunStatus string

const (
	TestRunStatusPending    TestRunStatus = "Pending"     // Requested, not started
	TestRunStatusInProgress TestRunStatus = "In Progress" // Being worked on
	TestRunStatusCompleted  TestRunStatus = "Completed"   // Results entered
	TestRunStatusValidated  TestRunStatus = "Validated"   // Results checked by a second pair of eyes
	TestRunStatusApproved   TestRunStatus = "Approved"    // Released; terminal
	TestRunStatusRejected   TestRunStatus = "Rejected"    // Abandoned; terminal
)

// TestDefinition describes a test that can be requested against samples
type TestDefinition struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Protocol    string `gorm:"type:text" json:"protocol"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for TestDefinition model
func (TestDefinition) TableName() string {
	return "test_definitions"
}

// Experiment groups related test runs under one study
type Experiment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	LeadID      *string    `gorm:"type:uuid" json:"lead_id,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Experiment model
func (Experiment) TableName() string {
	return "experiments"
}

// SampleTestRun is one requested execution of a test definition
// against a sample. Status only moves through the workflow service's
// transition graph; the result/validation/approval timestamps are
// stamped by the service, never set by callers directly.
type SampleTestRun struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	SampleID     uint          `gorm:"index;not null" json:"sample_id"`
	TestID       uint          `gorm:"index;not null" json:"test_id"`
	ExperimentID *uint         `gorm:"index" json:"experiment_id,omitempty"`
	Status       TestRunStatus `gorm:"default:'Pending';index" json:"status"`
	Results      *string       `gorm:"type:text" json:"results,omitempty"`

	RequestedBy string     `gorm:"type:uuid;index;not null" json:"requested_by"`
	AssignedTo  *string    `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`

	ResultEntryDate *time.Time `json:"result_entry_date,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	ValidatedBy     *string    `gorm:"type:uuid" json:"validated_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *string    `gorm:"type:uuid" json:"approved_by,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Sample     *Sample         `gorm:"foreignKey:SampleID" json:"sample,omitempty"`
	Test       *TestDefinition `gorm:"foreignKey:TestID" json:"test,omitempty"`
	Experiment *Experiment     `gorm:"foreignKey:ExperimentID" json:"experiment,omitempty"`
}

// TableName specifies the table name for SampleTestRun model
func (SampleTestRun) TableName() string {
	return "sample_test_runs"
}

// ValidTestRunStatus reports whether s is a known run status value
func ValidTestRunStatus(s TestRunStatus) bool {
	switch s {
	case TestRunStatusPending, TestRunStatusInProgress, TestRunStatusCompleted,
		TestRunStatusValidated, TestRunStatusApproved, TestRunStatusRejected:
		return true
	}
	return false
}
