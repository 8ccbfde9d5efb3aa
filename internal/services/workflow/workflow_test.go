package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/openlims/limsgo/internal/models"
)

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %q error, got %q: %v", kind, got, err)
	}
}

func TestResolverTruthTable(t *testing.T) {
	if testDB == nil {
		t.Skip("embedded database skipped in short mode")
	}

	cases := []struct {
		role       string
		capability string
		want       bool
	}{
		{models.RoleAdministrator, models.PermManageUsers, true},
		{models.RoleAdministrator, models.PermApproveTestResults, true},
		{models.RoleLabManager, models.PermManageUsers, false},
		{models.RoleLabManager, models.PermValidateTestResults, true},
		{models.RoleResearcher, models.PermEnterTestResults, true},
		{models.RoleResearcher, models.PermValidateTestResults, false},
		{models.RoleResearcher, models.PermApproveTestResults, false},
		{"intern", models.PermManageSamples, false}, // unknown role fails closed
	}

	for _, c := range cases {
		if got := testRBAC.HasPermission(c.role, c.capability); got != c.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", c.role, c.capability, got, c.want)
		}
	}

	if testRBAC.HasAnyPermission(models.RoleResearcher) {
		t.Error("HasAnyPermission with no capabilities should be false")
	}
	if !testRBAC.HasAnyPermission(models.RoleResearcher, models.PermValidateTestResults, models.PermLogCustody) {
		t.Error("HasAnyPermission should be true when one capability matches")
	}
}

// --- Samples and custody ---

func TestRegisterSampleWritesInitialLedgerEntry(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()

	sample := makeSample(t, svc, actor)
	if sample.CurrentStatus != models.SampleStatusRegistered {
		t.Errorf("new sample status = %q, want %q", sample.CurrentStatus, models.SampleStatusRegistered)
	}

	entries, err := svc.ListCustody(context.Background(), sample.ID)
	if err != nil {
		t.Fatalf("list custody: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].Action != string(models.SampleStatusRegistered) {
		t.Errorf("initial entry action = %q, want %q", entries[0].Action, models.SampleStatusRegistered)
	}
	if entries[0].ActorID != actor {
		t.Errorf("initial entry actor = %q, want %q", entries[0].ActorID, actor)
	}
}

func TestRegisterSampleDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	st, src, _ := makeSampleFixtures(t)
	code := fmt.Sprintf("DUP-%d", nextN())

	req := RegisterSampleRequest{Code: code, SampleTypeID: st.ID, SampleSourceID: src.ID}
	if _, err := svc.RegisterSample(context.Background(), models.RoleResearcher, newActorID(), req); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := svc.RegisterSample(context.Background(), models.RoleResearcher, newActorID(), req)
	wantKind(t, err, KindConflict)
}

func TestStorageRequiresLocation(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	sample := makeSample(t, svc, actor)

	_, err := svc.UpdateSampleStatus(context.Background(), sample.ID, models.RoleResearcher, actor,
		models.SampleStatusInStorage, nil, "")
	wantKind(t, err, KindValidation)

	// Neither the sample row nor the ledger may have been touched
	reloaded, err := svc.GetSample(context.Background(), sample.ID)
	if err != nil {
		t.Fatalf("reload sample: %v", err)
	}
	if reloaded.CurrentStatus != models.SampleStatusRegistered {
		t.Errorf("sample status changed to %q after rejected update", reloaded.CurrentStatus)
	}
	entries, _ := svc.ListCustody(context.Background(), sample.ID)
	if len(entries) != 1 {
		t.Errorf("ledger grew to %d entries after rejected update", len(entries))
	}
}

func TestCustodyLedgerRecordsEveryMove(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	st, src, loc := makeSampleFixtures(t)
	ctx := context.Background()

	sample, err := svc.RegisterSample(ctx, models.RoleResearcher, actor, RegisterSampleRequest{
		Code:           fmt.Sprintf("LEDGER-%d", nextN()),
		SampleTypeID:   st.ID,
		SampleSourceID: src.ID,
	})
	if err != nil {
		t.Fatalf("register sample: %v", err)
	}

	if _, err := svc.UpdateSampleStatus(ctx, sample.ID, models.RoleResearcher, actor,
		models.SampleStatusInStorage, &loc.ID, "shelved"); err != nil {
		t.Fatalf("move to storage: %v", err)
	}
	if _, err := svc.UpdateSampleStatus(ctx, sample.ID, models.RoleResearcher, actor,
		models.SampleStatusInAnalysis, nil, "checked out"); err != nil {
		t.Fatalf("move to analysis: %v", err)
	}

	entries, err := svc.ListCustody(ctx, sample.ID)
	if err != nil {
		t.Fatalf("list custody: %v", err)
	}
	wantActions := []string{
		string(models.SampleStatusRegistered),
		string(models.SampleStatusInStorage),
		string(models.SampleStatusInAnalysis),
	}
	if len(entries) != len(wantActions) {
		t.Fatalf("expected %d ledger entries, got %d", len(wantActions), len(entries))
	}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, entries[i].Action, want)
		}
	}

	// The storage move must carry the destination location
	if entries[1].NewLocationID == nil || *entries[1].NewLocationID != loc.ID {
		t.Error("storage entry should record the new location")
	}

	reloaded, _ := svc.GetSample(ctx, sample.ID)
	if reloaded.CurrentStatus != models.SampleStatusInAnalysis {
		t.Errorf("final sample status = %q, want %q", reloaded.CurrentStatus, models.SampleStatusInAnalysis)
	}
}

func TestAppendManualCustodyEntry(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	sample := makeSample(t, svc, actor)
	ctx := context.Background()

	entry, err := svc.AppendCustodyEntry(ctx, sample.ID, actor, "Aliquoted", nil, nil, "2 x 0.5mL")
	if err != nil {
		t.Fatalf("append custody entry: %v", err)
	}
	if entry.Action != "Aliquoted" {
		t.Errorf("entry action = %q", entry.Action)
	}

	_, err = svc.AppendCustodyEntry(ctx, sample.ID, actor, "   ", nil, nil, "")
	wantKind(t, err, KindValidation)

	_, err = svc.AppendCustodyEntry(ctx, 999999, actor, "Moved", nil, nil, "")
	wantKind(t, err, KindNotFound)
}

// --- Test runs ---

func TestResearcherRunLifecycle(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	run := makePendingRun(t, svc, actor)
	ctx := context.Background()

	inProgress := models.TestRunStatusInProgress
	run2, err := svc.UpdateTestRun(ctx, run.ID, models.RoleResearcher, actor, TestRunPatch{Status: &inProgress})
	if err != nil {
		t.Fatalf("Pending -> In Progress: %v", err)
	}
	if run2.Status != models.TestRunStatusInProgress {
		t.Fatalf("status = %q, want In Progress", run2.Status)
	}

	completed := models.TestRunStatusCompleted
	results := "Positive"
	run3, err := svc.UpdateTestRun(ctx, run.ID, models.RoleResearcher, actor, TestRunPatch{
		Status:  &completed,
		Results: &results,
	})
	if err != nil {
		t.Fatalf("In Progress -> Completed: %v", err)
	}
	if run3.Status != models.TestRunStatusCompleted {
		t.Errorf("status = %q, want Completed", run3.Status)
	}
	if run3.Results == nil || *run3.Results != "Positive" {
		t.Error("results were not stored")
	}
	if run3.ResultEntryDate == nil {
		t.Error("result entry date was not stamped")
	}
}

func TestResearcherCannotValidate(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	run := makePendingRun(t, svc, actor)
	ctx := context.Background()

	// Walk the run to Completed first
	for _, status := range []models.TestRunStatus{models.TestRunStatusInProgress, models.TestRunStatusCompleted} {
		s := status
		if _, err := svc.UpdateTestRun(ctx, run.ID, models.RoleResearcher, actor, TestRunPatch{Status: &s}); err != nil {
			t.Fatalf("move to %q: %v", status, err)
		}
	}

	validated := models.TestRunStatusValidated
	_, err := svc.UpdateTestRun(ctx, run.ID, models.RoleResearcher, actor, TestRunPatch{Status: &validated})
	wantKind(t, err, KindForbidden)

	reloaded, _ := svc.GetTestRun(ctx, run.ID)
	if reloaded.Status != models.TestRunStatusCompleted {
		t.Errorf("run status = %q after forbidden update, want Completed", reloaded.Status)
	}
	if reloaded.ValidatedAt != nil {
		t.Error("validated_at was stamped by a forbidden update")
	}
}

func TestLabManagerValidatesAndApproves(t *testing.T) {
	svc := newTestService(t)
	researcher := newActorID()
	manager := newActorID()
	run := makePendingRun(t, svc, researcher)
	ctx := context.Background()

	for _, status := range []models.TestRunStatus{models.TestRunStatusInProgress, models.TestRunStatusCompleted} {
		s := status
		if _, err := svc.UpdateTestRun(ctx, run.ID, models.RoleResearcher, researcher, TestRunPatch{Status: &s}); err != nil {
			t.Fatalf("move to %q: %v", status, err)
		}
	}

	validated := models.TestRunStatusValidated
	run2, err := svc.UpdateTestRun(ctx, run.ID, models.RoleLabManager, manager, TestRunPatch{Status: &validated})
	if err != nil {
		t.Fatalf("Completed -> Validated: %v", err)
	}
	if run2.ValidatedAt == nil || run2.ValidatedBy == nil || *run2.ValidatedBy != manager {
		t.Error("validation stamp missing or wrong actor")
	}

	approved := models.TestRunStatusApproved
	run3, err := svc.UpdateTestRun(ctx, run.ID, models.RoleLabManager, manager, TestRunPatch{Status: &approved})
	if err != nil {
		t.Fatalf("Validated -> Approved: %v", err)
	}
	if run3.ApprovedAt == nil || run3.ApprovedBy == nil || *run3.ApprovedBy != manager {
		t.Error("approval stamp missing or wrong actor")
	}

	// Approved is terminal
	rejected := models.TestRunStatusRejected
	_, err = svc.UpdateTestRun(ctx, run.ID, models.RoleLabManager, manager, TestRunPatch{Status: &rejected})
	wantKind(t, err, KindInvalidTransition)
}

func TestInvalidTransitionLeavesRunUntouched(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	run := makePendingRun(t, svc, actor)
	ctx := context.Background()

	approved := models.TestRunStatusApproved
	_, err := svc.UpdateTestRun(ctx, run.ID, models.RoleAdministrator, actor, TestRunPatch{Status: &approved})
	wantKind(t, err, KindInvalidTransition)

	reloaded, _ := svc.GetTestRun(ctx, run.ID)
	if reloaded.Status != models.TestRunStatusPending {
		t.Errorf("run status = %q after invalid transition, want Pending", reloaded.Status)
	}
}

func TestUpdateTestRunUnknownStatus(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	run := makePendingRun(t, svc, actor)

	bogus := models.TestRunStatus("Half Done")
	_, err := svc.UpdateTestRun(context.Background(), run.ID, models.RoleAdministrator, actor, TestRunPatch{Status: &bogus})
	wantKind(t, err, KindValidation)
}

func TestRequestTestsUnknownSampleCreatesNothing(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	def := makeTestDefinition(t)
	ctx := context.Background()

	_, err := svc.RequestTests(ctx, []uint{999999}, []uint{def.ID}, nil, models.RoleResearcher, actor)
	wantKind(t, err, KindNotFound)

	var count int64
	testDB.Model(&models.SampleTestRun{}).Where("test_id = ?", def.ID).Count(&count)
	if count != 0 {
		t.Errorf("%d runs created despite unknown sample", count)
	}
}

func TestDeleteTestRunNeedsManageTests(t *testing.T) {
	svc := newTestService(t)
	actor := newActorID()
	run := makePendingRun(t, svc, actor)
	ctx := context.Background()

	err := svc.DeleteTestRun(ctx, run.ID, models.RoleResearcher)
	wantKind(t, err, KindForbidden)

	if err := svc.DeleteTestRun(ctx, run.ID, models.RoleLabManager); err != nil {
		t.Fatalf("lab manager delete: %v", err)
	}
	_, err = svc.GetTestRun(ctx, run.ID)
	wantKind(t, err, KindNotFound)
}

// --- Inventory ---

func TestDeliveryIncrementsStockExactlyOnce(t *testing.T) {
	svc := newTestService(t)
	reagent := makeReagent(t, 10)
	order := makeOrder(t, reagent.ID, 50, models.OrderStatusOrdered)
	ctx := context.Background()

	if _, err := svc.MarkDelivered(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{}); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	var got models.Reagent
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 60 {
		t.Fatalf("stock after delivery = %d, want 60", got.CurrentStock)
	}

	// Confirming again must not double-book the receipt
	if _, err := svc.MarkDelivered(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{}); err != nil {
		t.Fatalf("repeat delivery: %v", err)
	}
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 60 {
		t.Errorf("stock after repeat delivery = %d, want 60", got.CurrentStock)
	}
}

func TestConcurrentDeliveryConfirmationsSerialize(t *testing.T) {
	svc := newTestService(t)
	reagent := makeReagent(t, 10)
	order := makeOrder(t, reagent.ID, 50, models.OrderStatusOrdered)
	ctx := context.Background()

	// Both confirmations race for the order's row lock; the loser
	// must observe Delivered and skip the increment.
	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.MarkDelivered(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("confirmation %d failed: %v", i, err)
		}
	}

	var got models.Reagent
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 60 {
		t.Errorf("stock after concurrent confirmations = %d, want 60", got.CurrentStock)
	}
}

func TestLeavingDeliveredKeepsStock(t *testing.T) {
	svc := newTestService(t)
	reagent := makeReagent(t, 0)
	order := makeOrder(t, reagent.ID, 25, models.OrderStatusShipped)
	ctx := context.Background()

	if _, err := svc.MarkDelivered(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{}); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	shipped := models.OrderStatusShipped
	if _, err := svc.UpdateReagentOrder(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{Status: &shipped}); err != nil {
		t.Fatalf("move back to shipped: %v", err)
	}

	var got models.Reagent
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 25 {
		t.Errorf("stock after leaving Delivered = %d, want 25 (receipts are final)", got.CurrentStock)
	}

	// Re-delivering after the round trip is a new first transition
	if _, err := svc.MarkDelivered(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{}); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 50 {
		t.Errorf("stock after re-delivery = %d, want 50", got.CurrentStock)
	}
}

func TestOrderUpdateValidation(t *testing.T) {
	svc := newTestService(t)
	reagent := makeReagent(t, 0)
	order := makeOrder(t, reagent.ID, 10, models.OrderStatusPending)
	ctx := context.Background()

	badQty := -5
	_, err := svc.UpdateReagentOrder(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{QuantityOrdered: &badQty})
	wantKind(t, err, KindValidation)

	badDate := "next tuesday"
	_, err = svc.UpdateReagentOrder(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{OrderDate: &badDate})
	wantKind(t, err, KindValidation)

	bogus := models.OrderStatus("Lost")
	_, err = svc.UpdateReagentOrder(ctx, order.ID, models.RoleLabManager, ReagentOrderPatch{Status: &bogus})
	wantKind(t, err, KindValidation)

	_, err = svc.UpdateReagentOrder(ctx, order.ID, models.RoleResearcher, ReagentOrderPatch{})
	wantKind(t, err, KindForbidden)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	svc := newTestService(t)
	reagent := makeReagent(t, 5)
	ctx := context.Background()

	_, err := svc.AdjustReagentStock(ctx, reagent.ID, models.RoleLabManager, -10, "breakage")
	wantKind(t, err, KindValidation)

	var got models.Reagent
	testDB.First(&got, reagent.ID)
	if got.CurrentStock != 5 {
		t.Errorf("stock changed to %d after rejected adjustment", got.CurrentStock)
	}

	adjusted, err := svc.AdjustReagentStock(ctx, reagent.ID, models.RoleLabManager, -5, "used up")
	if err != nil {
		t.Fatalf("valid adjustment: %v", err)
	}
	if adjusted.CurrentStock != 0 {
		t.Errorf("stock = %d, want 0", adjusted.CurrentStock)
	}

	_, err = svc.AdjustReagentStock(ctx, reagent.ID, models.RoleLabManager, 0, "noop")
	wantKind(t, err, KindValidation)
}
