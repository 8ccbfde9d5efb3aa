package workflow

import "github.com/openlims/limsgo/internal/models"

// testRunTransitions is the allowed transition graph for test runs.
// Approved and Rejected are terminal. Adding a state is a data change
// here, not new branching in the update path.
var testRunTransitions = map[models.TestRunStatus][]models.TestRunStatus{
	models.TestRunStatusPending:    {models.TestRunStatusInProgress, models.TestRunStatusRejected},
	models.TestRunStatusInProgress: {models.TestRunStatusCompleted, models.TestRunStatusPending, models.TestRunStatusRejected},
	models.TestRunStatusCompleted:  {models.TestRunStatusValidated, models.TestRunStatusRejected},
	models.TestRunStatusValidated:  {models.TestRunStatusApproved, models.TestRunStatusRejected},
	models.TestRunStatusApproved:   {},
	models.TestRunStatusRejected:   {},
}

// testRunEntryCapability maps a target status to the capability required
// to enter it. Statuses absent from the map fall back to the general
// edit capabilities (enter_test_results or manage_tests).
var testRunEntryCapability = map[models.TestRunStatus]string{
	models.TestRunStatusCompleted: models.PermEnterTestResults,
	models.TestRunStatusValidated: models.PermValidateTestResults,
	models.TestRunStatusApproved:  models.PermApproveTestResults,
}

// CanTransition reports whether moving a run from one status to
// another is allowed by the graph.
func CanTransition(from, to models.TestRunStatus) bool {
	for _, next := range testRunTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// entryCapabilities returns the capability set required to move a run
// into target. A single entry means exactly that capability; multiple
// entries mean any one of them suffices.
func entryCapabilities(target models.TestRunStatus) []string {
	if cap, ok := testRunEntryCapability[target]; ok {
		return []string{cap}
	}
	return []string{models.PermEnterTestResults, models.PermManageTests}
}
