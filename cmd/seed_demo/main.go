package main

import (
	"fmt"
	"log"
	"time"

	"github.com/openlims/limsgo/internal/config"
	"github.com/openlims/limsgo/internal/database"
	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/rbac"
	"github.com/openlims/limsgo/internal/utils"
)

func main() {
	fmt.Println("🌱 limsGo Demo Data Seeder")
	fmt.Println("=" + string(make([]rune, 60)))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
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
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	// Built-in roles first so users can reference them
	if err := rbac.SeedBaseline(db.DB); err != nil {
		log.Fatalf("❌ Role seeding failed: %v", err)
	}
	fmt.Println("✅ Baseline roles seeded")
	fmt.Println()

	// Check if data already exists
	var sampleCount int64
	db.Model(&models.Sample{}).Count(&sampleCount)
	if sampleCount > 0 {
		fmt.Printf("⚠️  Database already has %d samples. Clear it first? (y/N): ", sampleCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		// Clear existing data
		fmt.Println("🗑️  Clearing existing data...")
		db.Exec("TRUNCATE TABLE sample_test_runs CASCADE")
		db.Exec("TRUNCATE TABLE chain_of_custody_entries CASCADE")
		db.Exec("TRUNCATE TABLE samples CASCADE")
		db.Exec("TRUNCATE TABLE reagent_orders CASCADE")
		db.Exec("TRUNCATE TABLE reagents CASCADE")
		db.Exec("TRUNCATE TABLE suppliers CASCADE")
		db.Exec("TRUNCATE TABLE experiments CASCADE")
		db.Exec("TRUNCATE TABLE test_definitions CASCADE")
		db.Exec("TRUNCATE TABLE storage_locations CASCADE")
		db.Exec("TRUNCATE TABLE sample_sources CASCADE")
		db.Exec("TRUNCATE TABLE sample_types CASCADE")
		fmt.Println("✅ Data cleared")
	}

	fmt.Println()
	fmt.Println("🧪 Creating demo data...")
	fmt.Println()

	// 1. Create Users (one per built-in role)
	fmt.Println("👤 Creating users...")
	type seedUser struct {
		Username string
		Email    string
		Name     string
		Role     string
		Dept     string
	}
	seedUsers := []seedUser{
		{"admin", "admin@lab.local", "System Administrator", models.RoleAdministrator, "IT"},
		{"mmeyer", "m.meyer@lab.local", "Martina Meyer", models.RoleLabManager, "Analytical Chemistry"},
		{"jdoe", "j.doe@lab.local", "Jordan Doe", models.RoleResearcher, "Microbiology"},
	}

	users := map[string]models.UserAuth{}
	for _, su := range seedUsers {
		hash, err := utils.HashPassword("changeme123")
		if err != nil {
			log.Fatalf("❌ Failed to hash password: %v", err)
		}
		u := models.UserAuth{
			Username: su.Username,
			Email:    su.Email,
			Name:     su.Name,
			Role:     su.Role,
			Password: hash,
			IsActive: true,
			Department: su.Dept,
		}
		if err := db.Where("username = ?", su.Username).FirstOrCreate(&u).Error; err != nil {
			log.Printf("⚠️  Failed to create user %s: %v", su.Username, err)
		} else {
			fmt.Printf("   ✓ Created user: %s [%s]\n", su.Username, su.Role)
		}
		users[su.Username] = u
	}
	fmt.Printf("✅ Created %d users (password: changeme123)\n\n", len(seedUsers))

	// 2. Registry entities
	fmt.Println("📚 Creating registry entries...")
	sampleTypes := []models.SampleType{
		{Name: "Blood", Description: "Whole blood, EDTA tubes"},
		{Name: "Soil", Description: "Environmental soil samples"},
		{Name: "Water", Description: "Surface and ground water"},
	}
	for i := range sampleTypes {
		db.Create(&sampleTypes[i])
		fmt.Printf("   ✓ Sample type: %s\n", sampleTypes[i].Name)
	}

	sampleSources := []models.SampleSource{
		{Name: "City Hospital", Description: "Clinical trial partner", ContactInfo: "lab@cityhospital.example"},
		{Name: "Field Station North", Description: "Environmental monitoring site"},
	}
	for i := range sampleSources {
		db.Create(&sampleSources[i])
		fmt.Printf("   ✓ Sample source: %s\n", sampleSources[i].Name)
	}

	minus80 := "-80C"
	minus20 := "-20C"
	room := "room"
	locations := []models.StorageLocation{
		{Name: "Freezer A1", Description: "Ultra-low freezer, rack 1", Temperature: &minus80},
		{Name: "Freezer B2", Description: "Standard freezer", Temperature: &minus20},
		{Name: "Shelf 3", Description: "Dry storage", Temperature: &room},
	}
	for i := range locations {
		db.Create(&locations[i])
		fmt.Printf("   ✓ Storage location: %s\n", locations[i].Name)
	}
	fmt.Println()

	// 3. Test definitions and an experiment
	fmt.Println("🔬 Creating test definitions...")
	tests := []models.TestDefinition{
		{Name: "PCR Pathogen Panel", Description: "Multiplex PCR screen", Protocol: "SOP-PCR-017"},
		{Name: "Heavy Metal ICP-MS", Description: "Trace metal quantification", Protocol: "SOP-ICP-004"},
		{Name: "pH Measurement", Description: "Standard electrode pH", Protocol: "SOP-GEN-001"},
	}
	for i := range tests {
		db.Create(&tests[i])
		fmt.Printf("   ✓ Test: %s\n", tests[i].Name)
	}

	leadID := users["mmeyer"].ID
	start := time.Now().AddDate(0, -1, 0)
	experiment := models.Experiment{
		Name:        "Q3 Water Quality Survey",
		Description: "Quarterly monitoring of field station intake water",
		LeadID:      &leadID,
		StartDate:   &start,
	}
	db.Create(&experiment)
	fmt.Printf("   ✓ Experiment: %s\n\n", experiment.Name)

	// 4. Samples with custody history
	fmt.Println("🧫 Creating samples...")
	researcher := users["jdoe"].ID
	samples := []models.Sample{
		{Code: "BLD-2025-0001", SampleTypeID: sampleTypes[0].ID, SampleSourceID: sampleSources[0].ID, CurrentStatus: models.SampleStatusInStorage, StorageLocationID: &locations[0].ID, RegisteredBy: researcher},
		{Code: "SOIL-2025-0042", SampleTypeID: sampleTypes[1].ID, SampleSourceID: sampleSources[1].ID, CurrentStatus: models.SampleStatusRegistered, RegisteredBy: researcher},
		{Code: "WAT-2025-0107", SampleTypeID: sampleTypes[2].ID, SampleSourceID: sampleSources[1].ID, CurrentStatus: models.SampleStatusInAnalysis, RegisteredBy: researcher},
	}
	for i := range samples {
		if err := db.Create(&samples[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create sample %s: %v", samples[i].Code, err)
			continue
		}
		entry := models.ChainOfCustodyEntry{
			SampleID: samples[i].ID,
			ActorID:  researcher,
			Action:   "Registered",
			Notes:    "Seeded demo sample",
		}
		db.Create(&entry)
		fmt.Printf("   ✓ Sample: %s [%s]\n", samples[i].Code, samples[i].CurrentStatus)
	}
	fmt.Println()

	// 5. Test runs in assorted workflow states
	fmt.Println("📋 Creating test runs...")
	positive := "Positive: E. coli detected"
	now := time.Now()
	runs := []models.SampleTestRun{
		{SampleID: samples[2].ID, TestID: tests[0].ID, ExperimentID: &experiment.ID, Status: models.TestRunStatusInProgress, RequestedBy: researcher, RequestedAt: now.Add(-48 * time.Hour)},
		{SampleID: samples[2].ID, TestID: tests[2].ID, ExperimentID: &experiment.ID, Status: models.TestRunStatusCompleted, Results: &positive, RequestedBy: researcher, RequestedAt: now.Add(-72 * time.Hour), ResultEntryDate: &now},
		{SampleID: samples[0].ID, TestID: tests[0].ID, Status: models.TestRunStatusPending, RequestedBy: researcher, RequestedAt: now},
	}
	for i := range runs {
		if err := db.Create(&runs[i]).Error; err != nil {
			log.Printf("⚠️  Failed to create test run: %v", err)
		} else {
			fmt.Printf("   ✓ Test run: sample %d / test %d [%s]\n", runs[i].SampleID, runs[i].TestID, runs[i].Status)
		}
	}
	fmt.Println()

	// 6. Inventory
	fmt.Println("📦 Creating inventory...")
	supplier := models.Supplier{Name: "ChemSupply GmbH", ContactName: "Sales Desk", Email: "orders@chemsupply.example"}
	db.Create(&supplier)
	fmt.Printf("   ✓ Supplier: %s\n", supplier.Name)

	cas := "67-68-5"
	reagents := []models.Reagent{
		{Name: "DMSO", CASNumber: &cas, Unit: "mL", CurrentStock: 500, MinStockLevel: 100, SupplierID: &supplier.ID},
		{Name: "PCR Master Mix", Unit: "reactions", CurrentStock: 10, MinStockLevel: 50, SupplierID: &supplier.ID},
	}
	for i := range reagents {
		db.Create(&reagents[i])
		fmt.Printf("   ✓ Reagent: %s (stock %d %s)\n", reagents[i].Name, reagents[i].CurrentStock, reagents[i].Unit)
	}

	order := models.ReagentOrder{
		ReagentID:       reagents[1].ID,
		SupplierID:      &supplier.ID,
		OrderDate:       now,
		QuantityOrdered: 200,
		Status:          models.OrderStatusOrdered,
		OrderedBy:       users["mmeyer"].ID,
		Notes:           "Restock below minimum level",
	}
	db.Create(&order)
	fmt.Printf("   ✓ Reagent order: %d x %s [%s]\n", order.QuantityOrdered, reagents[1].Name, order.Status)
	fmt.Println()

	// Summary
	fmt.Println("=" + string(make([]rune, 60)))
	fmt.Println("🎉 Demo data created successfully!")
	fmt.Println()
	fmt.Println("📊 Summary:")
	fmt.Printf("   • %d users (admin / mmeyer / jdoe, password: changeme123)\n", len(seedUsers))
	fmt.Printf("   • %d sample types, %d sources, %d storage locations\n", len(sampleTypes), len(sampleSources), len(locations))
	fmt.Printf("   • %d test definitions, 1 experiment\n", len(tests))
	fmt.Printf("   • %d samples with custody history\n", len(samples))
	fmt.Printf("   • %d test runs\n", len(runs))
	fmt.Printf("   • %d reagents, 1 supplier, 1 open order\n", len(reagents))
	fmt.Println()
	fmt.Println("🚀 Start the server:")
	fmt.Println("   go run ./cmd/api/main.go")
	fmt.Println("=" + string(make([]rune, 60)))
}
