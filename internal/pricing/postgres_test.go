package pricing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/life-quote-server/internal/database"
	"github.com/life-quote-server/internal/domain"
)

// generateTestPassword creates a random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping rate-table integration test in short mode")
	}

	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	databaseURL := "postgres://testuser:" + testPassword + "@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	migrator, err := database.NewMigrator(databaseURL, "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to open migrations: %v", err)
	}

	if err := migrator.Up(); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}

	cleanup := func() {
		migrator.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func seedRates(t *testing.T, db *database.DB) {
	ctx := context.Background()

	termRows := [][]any{
		{250000, "Male", 20, 45, false, "Acme Life", "Term 20", "Preferred", 42.10, 505.20},
		{250000, "Male", 20, 45, false, "Summit Mutual", "Term 20", "Standard", 38.55, 462.60},
		{250000, "Male", 20, 45, false, "Zero Rate Co", "Term 20", "", 0.0, 0.0},
	}
	for _, r := range termRows {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO term_quotes (face_amount, sex, term_length, age, tobacco,
				company, plan_name, tier_name, monthly_rate, annual_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r...)
		if err != nil {
			t.Fatalf("Failed to seed term rate: %v", err)
		}
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO fex_quotes (face_amount, sex, age, tobacco, underwriting_class,
			company, plan_name, tier_name, monthly_rate, annual_rate)
		VALUES (15000, 'Female', 67, true, 'Level', 'Foresters (PlanRight)', 'PlanRight', 'Level', 61.25, 735.00)`)
	if err != nil {
		t.Fatalf("Failed to seed fex rate: %v", err)
	}
}

func TestPostgresSource_TermQuotes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedRates(t, db)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	source, err := NewPostgresSource(db, logger)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	quotes, err := source.Quotes(context.Background(), &domain.QuoteRequest{
		Coverage:   domain.TERM,
		FaceAmount: 250000,
		Sex:        "male",
		Age:        45,
		TermLength: 20,
	})
	if err != nil {
		t.Fatalf("Failed to query term quotes: %v", err)
	}

	if len(quotes) != 3 {
		t.Fatalf("Expected 3 quotes, got %d", len(quotes))
	}

	// Rate tables return cheapest first, zero rates included; dropping
	// them is the annotator's job.
	if quotes[0].MonthlyPremium > quotes[1].MonthlyPremium && quotes[1].MonthlyPremium > 0 {
		t.Error("Expected ascending monthly premiums")
	}
	if quotes[1].Carrier != "Summit Mutual" {
		t.Errorf("Expected Summit Mutual second, got %s", quotes[1].Carrier)
	}
}

func TestPostgresSource_FexQuotes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedRates(t, db)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	source, err := NewPostgresSource(db, logger)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	quotes, err := source.Quotes(context.Background(), &domain.QuoteRequest{
		Coverage:          domain.FEX,
		FaceAmount:        15000,
		Sex:               "Female",
		Age:               67,
		Tobacco:           true,
		UnderwritingClass: "Level",
	})
	if err != nil {
		t.Fatalf("Failed to query fex quotes: %v", err)
	}

	if len(quotes) != 1 {
		t.Fatalf("Expected 1 quote, got %d", len(quotes))
	}
	if quotes[0].Carrier != "Foresters (PlanRight)" {
		t.Errorf("Expected Foresters (PlanRight), got %s", quotes[0].Carrier)
	}
	if quotes[0].MonthlyPremium != 61.25 {
		t.Errorf("Expected 61.25 monthly, got %v", quotes[0].MonthlyPremium)
	}
}

func TestPostgresSource_CachesRepeatedProfiles(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedRates(t, db)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	source, err := NewPostgresSource(db, logger)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	req := &domain.QuoteRequest{
		Coverage:   domain.TERM,
		FaceAmount: 250000,
		Sex:        "male",
		Age:        45,
		TermLength: 20,
	}

	first, err := source.Quotes(context.Background(), req)
	if err != nil {
		t.Fatalf("First lookup failed: %v", err)
	}

	// Second lookup for the same profile is served from the LRU even if
	// the table changes underneath.
	_, err = db.Pool.Exec(context.Background(), "DELETE FROM term_quotes")
	if err != nil {
		t.Fatalf("Failed to clear table: %v", err)
	}

	second, err := source.Quotes(context.Background(), req)
	if err != nil {
		t.Fatalf("Second lookup failed: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("Expected cached result of %d quotes, got %d", len(first), len(second))
	}

	source.InvalidateCache()
	third, err := source.Quotes(context.Background(), req)
	if err != nil {
		t.Fatalf("Third lookup failed: %v", err)
	}
	if len(third) != 0 {
		t.Errorf("Expected fresh lookup after invalidation, got %d quotes", len(third))
	}
}
