// Package pricing reads priced plan rates from the rate-table database.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/life-quote-server/internal/database"
	"github.com/life-quote-server/internal/domain"
)

// lruSize bounds the in-process rate lookup cache. Rate tables change
// rarely, so a small hot set covers most repeated profiles.
const lruSize = 512

// PostgresSource prices applicants from the term_quotes and fex_quotes
// rate tables. Lookups go through a circuit breaker so a struggling
// database sheds load fast, and an in-process LRU shortcuts repeated
// profiles.
type PostgresSource struct {
	db      *database.DB
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[string, []domain.Quote]
	logger  *logrus.Logger
}

// NewPostgresSource creates a rate-table quote source.
func NewPostgresSource(db *database.DB, logger *logrus.Logger) (*PostgresSource, error) {
	cache, err := lru.New[string, []domain.Quote](lruSize)
	if err != nil {
		return nil, fmt.Errorf("creating rate cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rate-tables",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Rate-table circuit breaker state changed")
		},
	})

	return &PostgresSource{
		db:      db,
		breaker: breaker,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Quotes returns the raw priced offers for an applicant profile, cheapest
// first. Eligibility is not applied here.
func (s *PostgresSource) Quotes(ctx context.Context, req *domain.QuoteRequest) ([]domain.Quote, error) {
	key := profileKey(req)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		switch req.Coverage {
		case domain.TERM:
			return s.termQuotes(ctx, req)
		case domain.FEX:
			return s.fexQuotes(ctx, req)
		default:
			return nil, fmt.Errorf("quote lookup: %w: %s", domain.ErrInvalidCoverage, req.Coverage)
		}
	})
	if err != nil {
		return nil, err
	}

	quotes := result.([]domain.Quote)
	s.cache.Add(key, quotes)
	return quotes, nil
}

func (s *PostgresSource) termQuotes(ctx context.Context, req *domain.QuoteRequest) ([]domain.Quote, error) {
	query := `
		SELECT company, plan_name, tier_name, monthly_rate, annual_rate,
		       COALESCE(warnings, ''), COALESCE(logo_url, ''), COALESCE(eapp, '')
		FROM term_quotes
		WHERE face_amount = $1
		  AND sex = $2
		  AND age = $3
		  AND tobacco = $4
		  AND term_length = $5
		ORDER BY monthly_rate ASC`

	rows, err := s.db.Pool.Query(ctx, query,
		req.FaceAmount, normalizeSex(req.Sex), req.Age, req.Tobacco, req.TermLength)
	if err != nil {
		return nil, fmt.Errorf("querying term rates: %w", err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

func (s *PostgresSource) fexQuotes(ctx context.Context, req *domain.QuoteRequest) ([]domain.Quote, error) {
	class := req.UnderwritingClass
	if class == "" {
		class = "Level"
	}

	query := `
		SELECT company, plan_name, tier_name, monthly_rate, annual_rate,
		       COALESCE(warnings, ''), COALESCE(logo_url, ''), COALESCE(eapp, '')
		FROM fex_quotes
		WHERE face_amount = $1
		  AND sex = $2
		  AND age = $3
		  AND tobacco = $4
		  AND underwriting_class = $5
		ORDER BY monthly_rate ASC`

	rows, err := s.db.Pool.Query(ctx, query,
		req.FaceAmount, normalizeSex(req.Sex), req.Age, req.Tobacco, class)
	if err != nil {
		return nil, fmt.Errorf("querying fex rates: %w", err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// rowScanner abstracts pgx.Rows for scanning.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanQuotes(rows rowScanner) ([]domain.Quote, error) {
	var quotes []domain.Quote
	for rows.Next() {
		var q domain.Quote
		if err := rows.Scan(
			&q.Carrier, &q.PlanName, &q.TierName,
			&q.MonthlyPremium, &q.AnnualPremium,
			&q.Warnings, &q.LogoURL, &q.EApp,
		); err != nil {
			return nil, fmt.Errorf("scanning rate row: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func normalizeSex(sex string) string {
	s := strings.ToLower(strings.TrimSpace(sex))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func profileKey(req *domain.QuoteRequest) string {
	return fmt.Sprintf("%s|%d|%s|%d|%t|%d|%s",
		req.Coverage, req.FaceAmount, normalizeSex(req.Sex),
		req.Age, req.Tobacco, req.TermLength, req.UnderwritingClass)
}

// InvalidateCache drops the in-process rate cache, for use after rate
// table imports.
func (s *PostgresSource) InvalidateCache() {
	s.cache.Purge()
}
