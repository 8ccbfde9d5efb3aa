package workflow

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/openlims/limsgo/internal/config"
	"github.com/openlims/limsgo/internal/database"
	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/rbac"
)

var (
	testDB   *database.DB
	testRBAC *rbac.Resolver
	fixtureN uint64
)

// TestMain boots a private embedded PostgreSQL instance for the
// package. Run with -short to skip everything that needs it.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	dataPath, err := os.MkdirTemp("", "limsgo-workflow-db-*")
	if err != nil {
		log.Fatalf("Failed to create temp data dir: %v", err)
	}

	db, err := database.Connect(config.DatabaseConfig{
		Host:             "localhost",
		Username:         "postgres",
		Database:         "limsgo_test",
		Alter:            true, // silences gorm query logging
		EmbeddedDataPath: dataPath,
		EmbeddedPort:     55433,
	})
	if err != nil {
		log.Fatalf("Failed to start test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Role{},
		&models.Permission{},
		&models.SampleType{},
		&models.SampleSource{},
		&models.StorageLocation{},
		&models.Sample{},
		&models.ChainOfCustodyEntry{},
		&models.TestDefinition{},
		&models.Experiment{},
		&models.SampleTestRun{},
		&models.Supplier{},
		&models.Reagent{},
		&models.ReagentOrder{},
	)
	if err != nil {
		db.Close()
		log.Fatalf("Migration failed: %v", err)
	}

	if err := rbac.SeedBaseline(db.DB); err != nil {
		db.Close()
		log.Fatalf("Role seeding failed: %v", err)
	}

	testDB = db
	testRBAC = rbac.NewResolver(db.DB)

	code := m.Run()

	db.Close()
	os.RemoveAll(dataPath)
	os.Exit(code)
}

// newTestService skips the test in short mode, otherwise hands back a
// workflow service over the shared test database.
func newTestService(t *testing.T) *Service {
	t.Helper()
	if testDB == nil {
		t.Skip("embedded database skipped in short mode")
	}
	return NewService(testDB.DB, testRBAC)
}

// nextN returns a process-unique suffix for fixture names, so tests
// never collide on unique indexes.
func nextN() uint64 {
	return atomic.AddUint64(&fixtureN, 1)
}

func newActorID() string {
	return uuid.New().String()
}

func makeSampleFixtures(t *testing.T) (models.SampleType, models.SampleSource, models.StorageLocation) {
	t.Helper()
	n := nextN()

	st := models.SampleType{Name: fmt.Sprintf("Type-%d", n)}
	if err := testDB.Create(&st).Error; err != nil {
		t.Fatalf("create sample type: %v", err)
	}
	src := models.SampleSource{Name: fmt.Sprintf("Source-%d", n)}
	if err := testDB.Create(&src).Error; err != nil {
		t.Fatalf("create sample source: %v", err)
	}
	loc := models.StorageLocation{Name: fmt.Sprintf("Freezer-%d", n)}
	if err := testDB.Create(&loc).Error; err != nil {
		t.Fatalf("create storage location: %v", err)
	}
	return st, src, loc
}

func makeSample(t *testing.T, svc *Service, actorID string) *models.Sample {
	t.Helper()
	st, src, _ := makeSampleFixtures(t)
	sample, err := svc.RegisterSample(context.Background(), models.RoleResearcher, actorID, RegisterSampleRequest{
		Code:           fmt.Sprintf("SMP-%d", nextN()),
		SampleTypeID:   st.ID,
		SampleSourceID: src.ID,
	})
	if err != nil {
		t.Fatalf("register sample: %v", err)
	}
	return sample
}

func makeTestDefinition(t *testing.T) models.TestDefinition {
	t.Helper()
	def := models.TestDefinition{Name: fmt.Sprintf("Assay-%d", nextN())}
	if err := testDB.Create(&def).Error; err != nil {
		t.Fatalf("create test definition: %v", err)
	}
	return def
}

func makePendingRun(t *testing.T, svc *Service, actorID string) *models.SampleTestRun {
	t.Helper()
	sample := makeSample(t, svc, actorID)
	def := makeTestDefinition(t)
	runs, err := svc.RequestTests(context.Background(), []uint{sample.ID}, []uint{def.ID}, nil, models.RoleResearcher, actorID)
	if err != nil {
		t.Fatalf("request tests: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	return &runs[0]
}

func makeReagent(t *testing.T, stock int) *models.Reagent {
	t.Helper()
	reagent := models.Reagent{
		Name:         fmt.Sprintf("Reagent-%d", nextN()),
		Unit:         "mL",
		CurrentStock: stock,
	}
	if err := testDB.Create(&reagent).Error; err != nil {
		t.Fatalf("create reagent: %v", err)
	}
	return &reagent
}

func makeOrder(t *testing.T, reagentID uint, qty int, status models.OrderStatus) *models.ReagentOrder {
	t.Helper()
	order := models.ReagentOrder{
		ReagentID:       reagentID,
		QuantityOrdered: qty,
		Status:          status,
		OrderedBy:       newActorID(),
	}
	if err := testDB.Create(&order).Error; err != nil {
		t.Fatalf("create reagent order: %v", err)
	}
	return &order
}
