package quotes

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/rules"
)

// Service runs the full quoting pipeline: price lookup, condition
// screening, eligibility aggregation, preference filtering, and ordering.
type Service struct {
	repo       domain.RuleRepository
	traverser  *rules.Traverser
	aggregator domain.EligibilityAggregator
	source     domain.QuoteSource
	prefs      domain.PreferenceStore
	cache      domain.QuoteCache
	logger     *logrus.Logger
}

// NewService creates the quoting service. The preference store and cache
// are optional; a nil store means no carrier is ever hidden and a nil
// cache means every run prices fresh.
func NewService(
	repo domain.RuleRepository,
	traverser *rules.Traverser,
	aggregator domain.EligibilityAggregator,
	source domain.QuoteSource,
	prefs domain.PreferenceStore,
	cache domain.QuoteCache,
	logger *logrus.Logger,
) *Service {
	return &Service{
		repo:       repo,
		traverser:  traverser,
		aggregator: aggregator,
		source:     source,
		prefs:      prefs,
		cache:      cache,
		logger:     logger,
	}
}

// ListConditions returns the screenable conditions for a coverage line.
func (s *Service) ListConditions(ctx context.Context, coverage domain.CoverageType) ([]domain.ConditionSummary, error) {
	return s.repo.ListConditions(ctx, coverage)
}

// SearchConditions ranks conditions against a query.
func (s *Service) SearchConditions(ctx context.Context, coverage domain.CoverageType, query string) ([]domain.ConditionSummary, error) {
	return s.repo.SearchConditions(ctx, coverage, query)
}

// NextQuestion returns the question an interactive screening flow should
// ask next for one condition, given the answers recorded so far. The
// second return is false once the condition's walk is terminal.
func (s *Service) NextQuestion(ctx context.Context, coverage domain.CoverageType, condition string, answers map[string]string) (domain.Question, bool, error) {
	tree, err := s.repo.Condition(ctx, coverage, condition)
	if err != nil {
		return domain.Question{}, false, err
	}
	q, ok := s.traverser.NextQuestion(tree, answers)
	return q, ok, nil
}

// Screen walks every reported condition's tree and returns the outcomes.
// Conditions missing from the rule document produce an undetermined
// outcome with a warning instead of failing the run.
func (s *Service) Screen(ctx context.Context, coverage domain.CoverageType, conditions []domain.SelectedCondition) []domain.TraversalOutcome {
	outcomes := make([]domain.TraversalOutcome, 0, len(conditions))
	for _, sc := range conditions {
		tree, err := s.repo.Condition(ctx, coverage, sc.Name)
		if err != nil {
			if errors.Is(err, domain.ErrConditionNotFound) {
				s.logger.WithFields(logrus.Fields{
					"condition": sc.Name,
					"coverage":  coverage.String(),
				}).Warn("Reported condition not in rule document, skipping screening")
				outcomes = append(outcomes, domain.TraversalOutcome{
					ConditionName: sc.Name,
					Status:        domain.TraversalUndetermined,
					Warnings:      []string{fmt.Sprintf("condition %q not found", sc.Name)},
				})
				continue
			}
			outcomes = append(outcomes, domain.TraversalOutcome{
				ConditionName: sc.Name,
				Status:        domain.TraversalUndetermined,
				Warnings:      []string{err.Error()},
			})
			continue
		}
		outcomes = append(outcomes, s.traverser.Walk(tree, sc.Answers))
	}
	return outcomes
}

// Aggregate folds traversal outcomes into per-carrier decisions.
func (s *Service) Aggregate(outcomes []domain.TraversalOutcome) map[string]domain.CarrierDecision {
	return s.aggregator.Aggregate(outcomes)
}

// HasQuoteSource reports whether a pricing backend is wired, since
// standalone deployments may run screening-only.
func (s *Service) HasQuoteSource() bool {
	return s.source != nil
}

// Quotes prices an applicant, screens their reported conditions, and
// returns quotes annotated with eligibility, filtered by the location's
// carrier preferences, in the requested order.
func (s *Service) Quotes(ctx context.Context, req *domain.QuoteRequest) (*QuoteRunResult, error) {
	deriveAge(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, fmt.Errorf("pricing quotes: no quote source configured")
	}

	start := time.Now()
	key := cacheKey(req)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.WithFields(logrus.Fields{
				"coverage":  req.Coverage.String(),
				"cache_key": key[:12],
			}).Debug("Quote run served from cache")
			return &QuoteRunResult{Quotes: cached, Cached: true}, nil
		}
	}

	raw, err := s.source.Quotes(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pricing quotes: %w", err)
	}

	outcomes := s.Screen(ctx, req.Coverage, req.Conditions)
	decisions := s.aggregator.Aggregate(outcomes)
	mask := s.maskFor(ctx, req)

	annotated := s.aggregator.Annotate(raw, decisions, mask)
	sorted := SortQuotes(annotated, req.SortBy)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, sorted); err != nil {
			s.logger.WithField("error", err.Error()).Warn("Failed to cache quote run")
		}
	}

	declined := 0
	for _, q := range sorted {
		if q.Decline {
			declined++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"coverage":    req.Coverage.String(),
		"quotes":      len(sorted),
		"declined":    declined,
		"conditions":  len(req.Conditions),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Quote run completed")

	return &QuoteRunResult{Quotes: sorted, Outcomes: outcomes}, nil
}

// maskFor loads the location's preference mask for the request's coverage
// line. Preference store failures fall back to showing every carrier.
func (s *Service) maskFor(ctx context.Context, req *domain.QuoteRequest) domain.PreferenceMask {
	if s.prefs == nil || req.LocationID == "" {
		return nil
	}
	prefs, err := s.prefs.Get(ctx, req.LocationID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{
				"location_id": req.LocationID,
				"error":       err.Error(),
			}).Warn("Preference lookup failed, showing all carriers")
		}
		return nil
	}
	return prefs.MaskFor(req.Coverage)
}

// deriveAge fills in Age from BirthDate when the caller supplied only a
// birth date. Rate tables are keyed by whole-year age at the quote date.
func deriveAge(req *domain.QuoteRequest) {
	if req == nil || req.Age > 0 || req.BirthDate == "" {
		return
	}
	age, err := domain.AgeAt(req.BirthDate, time.Now())
	if err != nil || age <= 0 {
		return
	}
	req.Age = age
}

func validateRequest(req *domain.QuoteRequest) error {
	if req == nil {
		return domain.NewValidationError("request", "request body is required", nil)
	}
	if req.Coverage != domain.TERM && req.Coverage != domain.FEX {
		return domain.NewValidationError("coverage", "must be term or fex", req.Coverage.String())
	}
	if req.FaceAmount <= 0 {
		return domain.NewValidationError("faceAmount", "must be positive", req.FaceAmount)
	}
	if req.Age <= 0 {
		return domain.NewValidationError("age", "must be positive", req.Age)
	}
	sex := strings.ToLower(strings.TrimSpace(req.Sex))
	if sex != "male" && sex != "female" {
		return domain.NewValidationError("sex", "must be male or female", req.Sex)
	}
	if req.Coverage == domain.TERM && req.TermLength <= 0 {
		return domain.NewValidationError("termLength", "required for term coverage", req.TermLength)
	}
	return nil
}

// cacheKey hashes the pricing-relevant request fields so identical runs
// share a cache entry.
func cacheKey(req *domain.QuoteRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("quotes:%s:%x", req.Coverage, sum)
}

// QuoteRunResult is the outcome of one quote run. Outcomes are empty when
// the run was served from cache.
type QuoteRunResult struct {
	Quotes   []domain.Quote            `json:"quotes"`
	Outcomes []domain.TraversalOutcome `json:"outcomes,omitempty"`
	Cached   bool                      `json:"cached,omitempty"`
}
