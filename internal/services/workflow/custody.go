package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/openlims/limsgo/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RegisterSampleRequest carries the fields needed to register a sample
type RegisterSampleRequest struct {
	Code           string     `json:"code"`
	SampleTypeID   uint       `json:"sample_type_id"`
	SampleSourceID uint       `json:"sample_source_id"`
	CollectedAt    *time.Time `json:"collected_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// statusChangeDetails is serialized into the ledger entry's Details column
type statusChangeDetails struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

func marshalDetails(d statusChangeDetails) datatypes.JSON {
	raw, _ := json.Marshal(d)
	return datatypes.JSON(raw)
}

// RegisterSample creates a sample and its initial "Registered" ledger
// entry in one transaction; a sample never exists without a ledger.
func (s *Service) RegisterSample(ctx context.Context, actorRole, actorID string, req RegisterSampleRequest) (*models.Sample, error) {
	if !s.rbac.HasAnyPermission(actorRole, models.PermManageSamples) {
		return nil, forbidden("role %q may not register samples", actorRole)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, validation("sample code is required")
	}

	db := s.db.WithContext(ctx)

	var st models.SampleType
	if err := db.First(&st, req.SampleTypeID).Error; err != nil {
		return nil, wrapStoreErr(err, "sample type %d not found", req.SampleTypeID)
	}
	var src models.SampleSource
	if err := db.First(&src, req.SampleSourceID).Error; err != nil {
		return nil, wrapStoreErr(err, "sample source %d not found", req.SampleSourceID)
	}

	var existing int64
	if err := db.Model(&models.Sample{}).Where("code = ?", req.Code).Count(&existing).Error; err != nil {
		return nil, internal(err)
	}
	if existing > 0 {
		return nil, conflict("sample code %q already exists", req.Code)
	}

	sample := models.Sample{
		Code:           req.Code,
		SampleTypeID:   req.SampleTypeID,
		SampleSourceID: req.SampleSourceID,
		CurrentStatus:  models.SampleStatusRegistered,
		CollectedAt:    req.CollectedAt,
		RegisteredBy:   actorID,
		Notes:          req.Notes,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sample).Error; err != nil {
			return err
		}
		entry := models.ChainOfCustodyEntry{
			SampleID: sample.ID,
			ActorID:  actorID,
			Action:   string(models.SampleStatusRegistered),
			Details:  marshalDetails(statusChangeDetails{To: string(models.SampleStatusRegistered)}),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(EventSampleRegistered, sample)
	return &sample, nil
}

// UpdateSampleStatus moves a sample to a new status and/or location.
// The row update and the ledger append commit together; on any
// failure neither is visible. "In Storage" without a location is
// refused before the transaction opens.
func (s *Service) UpdateSampleStatus(ctx context.Context, sampleID uint, actorRole, actorID string, newStatus models.SampleStatus, newLocationID *uint, notes string) (*models.Sample, error) {
	if !models.ValidSampleStatus(newStatus) {
		return nil, validation("unknown sample status %q", string(newStatus))
	}
	if !s.rbac.HasAnyPermission(actorRole, models.PermManageSamples) {
		return nil, forbidden("role %q may not update sample status", actorRole)
	}
	if newStatus == models.SampleStatusInStorage && newLocationID == nil {
		return nil, validation("a storage location is required to move a sample into storage")
	}

	db := s.db.WithContext(ctx)

	if newLocationID != nil {
		var loc models.StorageLocation
		if err := db.First(&loc, *newLocationID).Error; err != nil {
			return nil, wrapStoreErr(err, "storage location %d not found", *newLocationID)
		}
	}

	var sample models.Sample
	if err := db.First(&sample, sampleID).Error; err != nil {
		return nil, wrapStoreErr(err, "sample %d not found", sampleID)
	}

	prevStatus := sample.CurrentStatus
	prevLocation := sample.StorageLocationID

	sample.CurrentStatus = newStatus
	if newLocationID != nil {
		sample.StorageLocationID = newLocationID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&sample).Error; err != nil {
			return err
		}
		entry := models.ChainOfCustodyEntry{
			SampleID:           sample.ID,
			ActorID:            actorID,
			Action:             string(newStatus),
			PreviousLocationID: prevLocation,
			NewLocationID:      sample.StorageLocationID,
			Notes:              notes,
			Details:            marshalDetails(statusChangeDetails{From: string(prevStatus), To: string(newStatus)}),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(EventSampleStatusChanged, sample)
	return &sample, nil
}

// AppendCustodyEntry logs a manual, operator-initiated ledger entry.
// It never touches the sample row.
func (s *Service) AppendCustodyEntry(ctx context.Context, sampleID uint, actorID, action string, previousLocationID, newLocationID *uint, notes string) (*models.ChainOfCustodyEntry, error) {
	if strings.TrimSpace(action) == "" {
		return nil, validation("custody action is required")
	}

	db := s.db.WithContext(ctx)

	var sample models.Sample
	if err := db.First(&sample, sampleID).Error; err != nil {
		return nil, wrapStoreErr(err, "sample %d not found", sampleID)
	}

	entry := models.ChainOfCustodyEntry{
		SampleID:           sampleID,
		ActorID:            actorID,
		Action:             action,
		PreviousLocationID: previousLocationID,
		NewLocationID:      newLocationID,
		Notes:              notes,
	}
	if err := db.Create(&entry).Error; err != nil {
		return nil, internal(err)
	}

	s.publish(EventCustodyAppended, entry)
	return &entry, nil
}

// ListCustody returns a sample's ledger oldest first, id as tiebreak
func (s *Service) ListCustody(ctx context.Context, sampleID uint) ([]models.ChainOfCustodyEntry, error) {
	db := s.db.WithContext(ctx)

	var sample models.Sample
	if err := db.First(&sample, sampleID).Error; err != nil {
		return nil, wrapStoreErr(err, "sample %d not found", sampleID)
	}

	var entries []models.ChainOfCustodyEntry
	if err := db.Where("sample_id = ?", sampleID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, internal(err)
	}
	return entries, nil
}

// GetSample loads one sample with its relations
func (s *Service) GetSample(ctx context.Context, sampleID uint) (*models.Sample, error) {
	var sample models.Sample
	err := s.db.WithContext(ctx).
		Preload("SampleType").Preload("SampleSource").Preload("StorageLocation").
		First(&sample, sampleID).Error
	if err != nil {
		return nil, wrapStoreErr(err, "sample %d not found", sampleID)
	}
	return &sample, nil
}
