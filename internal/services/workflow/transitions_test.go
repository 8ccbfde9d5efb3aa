package workflow

import (
	"errors"
	"testing"

	"github.com/openlims/limsgo/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    models.TestRunStatus
		to      models.TestRunStatus
		allowed bool
	}{
		{models.TestRunStatusPending, models.TestRunStatusInProgress, true},
		{models.TestRunStatusPending, models.TestRunStatusRejected, true},
		{models.TestRunStatusPending, models.TestRunStatusCompleted, false},
		{models.TestRunStatusPending, models.TestRunStatusApproved, false},
		{models.TestRunStatusInProgress, models.TestRunStatusCompleted, true},
		{models.TestRunStatusInProgress, models.TestRunStatusPending, true},
		{models.TestRunStatusInProgress, models.TestRunStatusValidated, false},
		{models.TestRunStatusCompleted, models.TestRunStatusValidated, true},
		{models.TestRunStatusCompleted, models.TestRunStatusRejected, true},
		{models.TestRunStatusCompleted, models.TestRunStatusInProgress, false},
		{models.TestRunStatusValidated, models.TestRunStatusApproved, true},
		{models.TestRunStatusValidated, models.TestRunStatusCompleted, false},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.allowed {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	terminals := []models.TestRunStatus{
		models.TestRunStatusApproved,
		models.TestRunStatusRejected,
	}
	all := []models.TestRunStatus{
		models.TestRunStatusPending,
		models.TestRunStatusInProgress,
		models.TestRunStatusCompleted,
		models.TestRunStatusValidated,
		models.TestRunStatusApproved,
		models.TestRunStatusRejected,
	}

	for _, from := range terminals {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal status %q should not allow transition to %q", from, to)
			}
		}
	}
}

func TestEntryCapabilities(t *testing.T) {
	cases := []struct {
		target models.TestRunStatus
		want   []string
	}{
		{models.TestRunStatusCompleted, []string{models.PermEnterTestResults}},
		{models.TestRunStatusValidated, []string{models.PermValidateTestResults}},
		{models.TestRunStatusApproved, []string{models.PermApproveTestResults}},
		{models.TestRunStatusInProgress, []string{models.PermEnterTestResults, models.PermManageTests}},
		{models.TestRunStatusRejected, []string{models.PermEnterTestResults, models.PermManageTests}},
	}

	for _, c := range cases {
		got := entryCapabilities(c.target)
		if len(got) != len(c.want) {
			t.Fatalf("entryCapabilities(%q) = %v, want %v", c.target, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("entryCapabilities(%q) = %v, want %v", c.target, got, c.want)
			}
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(validation("bad input")); got != KindValidation {
		t.Errorf("KindOf(validation) = %q, want %q", got, KindValidation)
	}
	if got := KindOf(forbidden("nope")); got != KindForbidden {
		t.Errorf("KindOf(forbidden) = %q, want %q", got, KindForbidden)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain error) = %q, want %q", got, KindInternal)
	}
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := internal(cause)
	if err.Error() != "internal error" {
		t.Errorf("internal error message leaked detail: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("internal error should unwrap to its cause")
	}
}
