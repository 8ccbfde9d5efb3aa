package workflow

import (
	"context"
	"time"

	"github.com/openlims/limsgo/internal/models"
)

// TestRunPatch carries the mutable fields of a run update. Nil fields
// are left untouched.
type TestRunPatch struct {
	Status     *models.TestRunStatus `json:"status,omitempty"`
	Results    *string               `json:"results,omitempty"`
	AssignedTo *string               `json:"assigned_to,omitempty"`
	Notes      *string               `json:"notes,omitempty"`
}

// RequestTests creates one Pending run per (sample, test) pair. Every
// referenced sample and test must exist; nothing is created otherwise.
func (s *Service) RequestTests(ctx context.Context, sampleIDs, testIDs []uint, experimentID *uint, actorRole, actorID string) ([]models.SampleTestRun, error) {
	if !s.rbac.HasAnyPermission(actorRole, models.PermRequestTests, models.PermManageTests) {
		return nil, forbidden("role %q may not request tests", actorRole)
	}
	if len(sampleIDs) == 0 || len(testIDs) == 0 {
		return nil, validation("at least one sample and one test are required")
	}

	db := s.db.WithContext(ctx)

	var sampleCount int64
	if err := db.Model(&models.Sample{}).Where("id IN ?", sampleIDs).Count(&sampleCount).Error; err != nil {
		return nil, internal(err)
	}
	if sampleCount != int64(len(sampleIDs)) {
		return nil, notFound("one or more referenced samples do not exist")
	}

	var testCount int64
	if err := db.Model(&models.TestDefinition{}).Where("id IN ?", testIDs).Count(&testCount).Error; err != nil {
		return nil, internal(err)
	}
	if testCount != int64(len(testIDs)) {
		return nil, notFound("one or more referenced tests do not exist")
	}

	if experimentID != nil {
		var exp models.Experiment
		if err := db.First(&exp, *experimentID).Error; err != nil {
			return nil, wrapStoreErr(err, "experiment %d not found", *experimentID)
		}
	}

	now := time.Now()
	runs := make([]models.SampleTestRun, 0, len(sampleIDs)*len(testIDs))
	for _, sampleID := range sampleIDs {
		for _, testID := range testIDs {
			runs = append(runs, models.SampleTestRun{
				SampleID:     sampleID,
				TestID:       testID,
				ExperimentID: experimentID,
				Status:       models.TestRunStatusPending,
				RequestedBy:  actorID,
				RequestedAt:  now,
			})
		}
	}

	if err := db.Create(&runs).Error; err != nil {
		return nil, internal(err)
	}

	s.publish(EventTestRunUpdated, runs)
	return runs, nil
}

// UpdateTestRun applies a patch to a run through the transition graph.
//
// The effective target status is patch.Status when supplied, otherwise
// the current status; a same-status patch skips the graph check but
// still applies field edits. Timestamps are stamped as side effects:
// result_entry_date on first completion or first results entry,
// validated_at/by on entering Validated, approved_at/by on entering
// Approved.
func (s *Service) UpdateTestRun(ctx context.Context, runID uint, actorRole, actorID string, patch TestRunPatch) (*models.SampleTestRun, error) {
	db := s.db.WithContext(ctx)

	var run models.SampleTestRun
	if err := db.First(&run, runID).Error; err != nil {
		return nil, wrapStoreErr(err, "test run %d not found", runID)
	}

	target := run.Status
	if patch.Status != nil {
		if !models.ValidTestRunStatus(*patch.Status) {
			return nil, validation("unknown test run status %q", string(*patch.Status))
		}
		target = *patch.Status
	}

	statusChanging := target != run.Status
	if statusChanging && !CanTransition(run.Status, target) {
		return nil, invalidTransition("cannot move test run from %q to %q", string(run.Status), string(target))
	}

	// Capability for the effective target status, or for a plain
	// field edit when the status stays put.
	if statusChanging {
		if !s.rbac.HasAnyPermission(actorRole, entryCapabilities(target)...) {
			return nil, forbidden("role %q may not move a test run to %q", actorRole, string(target))
		}
	} else if !s.rbac.HasAnyPermission(actorRole, models.PermEnterTestResults, models.PermManageTests) {
		return nil, forbidden("role %q may not edit test runs", actorRole)
	}

	// Editing results while the run is (or becomes) Completed is
	// result entry, whoever else signed off on the status move.
	if patch.Results != nil && (run.Status == models.TestRunStatusCompleted || target == models.TestRunStatusCompleted) {
		if !s.rbac.HasPermission(actorRole, models.PermEnterTestResults) {
			return nil, forbidden("role %q may not enter test results", actorRole)
		}
	}

	now := time.Now()

	if patch.Results != nil {
		if run.Results == nil && run.ResultEntryDate == nil {
			run.ResultEntryDate = &now
		}
		run.Results = patch.Results
	}
	if patch.AssignedTo != nil {
		run.AssignedTo = patch.AssignedTo
	}
	if patch.Notes != nil {
		run.Notes = *patch.Notes
	}

	if statusChanging {
		switch target {
		case models.TestRunStatusCompleted:
			if run.ResultEntryDate == nil {
				run.ResultEntryDate = &now
			}
		case models.TestRunStatusValidated:
			run.ValidatedAt = &now
			run.ValidatedBy = &actorID
		case models.TestRunStatusApproved:
			run.ApprovedAt = &now
			run.ApprovedBy = &actorID
		}
		run.Status = target
	}

	if err := db.Save(&run).Error; err != nil {
		return nil, internal(err)
	}

	s.publish(EventTestRunUpdated, run)
	return &run, nil
}

// DeleteTestRun removes a run outright. This is the administrative
// override: it bypasses the transition graph entirely and is gated
// only by manage_tests.
func (s *Service) DeleteTestRun(ctx context.Context, runID uint, actorRole string) error {
	if !s.rbac.HasPermission(actorRole, models.PermManageTests) {
		return forbidden("role %q may not delete test runs", actorRole)
	}

	res := s.db.WithContext(ctx).Delete(&models.SampleTestRun{}, runID)
	if res.Error != nil {
		return internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("test run %d not found", runID)
	}
	return nil
}

// GetTestRun loads one run with its relations
func (s *Service) GetTestRun(ctx context.Context, runID uint) (*models.SampleTestRun, error) {
	var run models.SampleTestRun
	err := s.db.WithContext(ctx).
		Preload("Sample").Preload("Test").Preload("Experiment").
		First(&run, runID).Error
	if err != nil {
		return nil, wrapStoreErr(err, "test run %d not found", runID)
	}
	return &run, nil
}

// ListTestRuns returns runs, optionally filtered by sample and/or status
func (s *Service) ListTestRuns(ctx context.Context, sampleID *uint, status *models.TestRunStatus) ([]models.SampleTestRun, error) {
	q := s.db.WithContext(ctx).Model(&models.SampleTestRun{})
	if sampleID != nil {
		q = q.Where("sample_id = ?", *sampleID)
	}
	if status != nil {
		if !models.ValidTestRunStatus(*status) {
			return nil, validation("unknown test run status %q", string(*status))
		}
		q = q.Where("status = ?", *status)
	}

	var runs []models.SampleTestRun
	if err := q.Order("requested_at DESC").Find(&runs).Error; err != nil {
		return nil, internal(err)
	}
	return runs, nil
}
