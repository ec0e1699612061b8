package quotes

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/eligibility"
	"github.com/life-quote-server/internal/rules"
)

type fakeSource struct {
	quotes []domain.Quote
	err    error
	calls  int
}

func (f *fakeSource) Quotes(ctx context.Context, req *domain.QuoteRequest) ([]domain.Quote, error) {
	f.calls++
	return f.quotes, f.err
}

type fakePrefs struct {
	prefs map[string]*domain.CarrierPreferences
	err   error
}

func (f *fakePrefs) Get(ctx context.Context, locationID string) (*domain.CarrierPreferences, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.prefs[locationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePrefs) Put(ctx context.Context, prefs *domain.CarrierPreferences) error { return nil }
func (f *fakePrefs) Close() error                                                    { return nil }

type fakeCache struct {
	entries map[string][]domain.Quote
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]domain.Quote, bool) {
	q, ok := f.entries[key]
	return q, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, quotes []domain.Quote) error {
	f.entries[key] = quotes
	return nil
}

func (f *fakeCache) Close() error { return nil }

func newTestService(t *testing.T, source *fakeSource, prefs domain.PreferenceStore, cache domain.QuoteCache) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := rules.NewFileRepository(domain.RulesConfig{
		Path: filepath.Join("testdata", "underwriting_rules.json"),
	}, logger)
	traverser := rules.NewTraverser(logger)
	aggregator := eligibility.NewAggregator(eligibility.NewContainmentMatcher(), logger)

	return NewService(repo, traverser, aggregator, source, prefs, cache, logger)
}

func termRequest() *domain.QuoteRequest {
	return &domain.QuoteRequest{
		Coverage:   domain.TERM,
		FaceAmount: 250000,
		Sex:        "male",
		Age:        45,
		TermLength: 20,
	}
}

func TestService_QuotesAnnotatesDeclines(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", PlanName: "Term 20", MonthlyPremium: 42.10},
		{Carrier: "Summit Mutual", PlanName: "Term 20", MonthlyPremium: 38.55},
	}}
	svc := newTestService(t, source, nil, nil)

	req := termRequest()
	req.Conditions = []domain.SelectedCondition{
		{Name: "Diabetes", Answers: map[string]string{"q1": "Yes", "q2": "Yes"}},
	}

	result, err := svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Quotes, 2)

	// Price order: accepted Summit first, declined Acme last.
	assert.Equal(t, "Summit Mutual", result.Quotes[0].Carrier)
	assert.False(t, result.Quotes[0].Decline)
	assert.Equal(t, "Acme Life", result.Quotes[1].Carrier)
	assert.True(t, result.Quotes[1].Decline)
	assert.Equal(t, "Insulin use with early onset", result.Quotes[1].DeclineReason)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, domain.TraversalComplete, result.Outcomes[0].Status)
}

func TestService_QuotesNoConditionsAcceptsEverything(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
	}}
	svc := newTestService(t, source, nil, nil)

	result, err := svc.Quotes(context.Background(), termRequest())
	require.NoError(t, err)
	require.Len(t, result.Quotes, 1)
	assert.False(t, result.Quotes[0].Decline)
}

func TestService_QuotesUnknownConditionFailsOpen(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
	}}
	svc := newTestService(t, source, nil, nil)

	req := termRequest()
	req.Conditions = []domain.SelectedCondition{
		{Name: "Unknown Ailment", Answers: map[string]string{"q1": "Yes"}},
	}

	result, err := svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Quotes, 1)
	assert.False(t, result.Quotes[0].Decline)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, domain.TraversalUndetermined, result.Outcomes[0].Status)
	assert.NotEmpty(t, result.Outcomes[0].Warnings)
}

func TestService_QuotesAppliesPreferenceMask(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
		{Carrier: "Summit Mutual", MonthlyPremium: 38.55},
	}}
	prefs := &fakePrefs{prefs: map[string]*domain.CarrierPreferences{
		"loc-1": {
			LocationID: "loc-1",
			Term:       domain.PreferenceMask{"Summit Mutual": false},
		},
	}}
	svc := newTestService(t, source, prefs, nil)

	req := termRequest()
	req.LocationID = "loc-1"

	result, err := svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Quotes, 1)
	assert.Equal(t, "Acme Life", result.Quotes[0].Carrier)
}

func TestService_QuotesPreferenceFailureShowsAllCarriers(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
		{Carrier: "Summit Mutual", MonthlyPremium: 38.55},
	}}
	prefs := &fakePrefs{err: errors.New("store down")}
	svc := newTestService(t, source, prefs, nil)

	req := termRequest()
	req.LocationID = "loc-1"

	result, err := svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Quotes, 2)
}

func TestService_QuotesUsesCache(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
	}}
	cache := &fakeCache{entries: map[string][]domain.Quote{}}
	svc := newTestService(t, source, nil, cache)

	first, err := svc.Quotes(context.Background(), termRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, source.calls)

	second, err := svc.Quotes(context.Background(), termRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, source.calls, "cached run must not reprice")
	assert.Equal(t, first.Quotes, second.Quotes)
}

func TestService_QuotesValidation(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.QuoteRequest)
		field  string
	}{
		{"Both is not priceable", func(r *domain.QuoteRequest) { r.Coverage = domain.BOTH }, "coverage"},
		{"Face amount required", func(r *domain.QuoteRequest) { r.FaceAmount = 0 }, "faceAmount"},
		{"Age required", func(r *domain.QuoteRequest) { r.Age = 0 }, "age"},
		{"Sex constrained", func(r *domain.QuoteRequest) { r.Sex = "unknown" }, "sex"},
		{"Term length for term", func(r *domain.QuoteRequest) { r.TermLength = 0 }, "termLength"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := termRequest()
			tt.mutate(req)
			_, err := svc.Quotes(ctx, req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.Quotes(ctx, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestService_QuotesDerivesAgeFromBirthDate(t *testing.T) {
	source := &fakeSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", MonthlyPremium: 42.10},
	}}
	svc := newTestService(t, source, nil, nil)

	req := termRequest()
	req.Age = 0
	req.BirthDate = "1980-03-15"

	result, err := svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Quotes, 1)
	assert.GreaterOrEqual(t, req.Age, 45, "age filled in from birth date")

	// An explicit age is never overridden by the birth date.
	req = termRequest()
	req.BirthDate = "1980-03-15"
	_, err = svc.Quotes(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 45, req.Age)

	// A malformed birth date leaves the request failing age validation.
	req = termRequest()
	req.Age = 0
	req.BirthDate = "not a date"
	_, err = svc.Quotes(context.Background(), req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "age", verr.Field)
}

func TestService_QuotesSourceErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("rate table unreachable")}
	svc := newTestService(t, source, nil, nil)

	_, err := svc.Quotes(context.Background(), termRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pricing quotes")
}

func TestService_NextQuestion(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, nil, nil)
	ctx := context.Background()

	q, ok, err := svc.NextQuestion(ctx, domain.TERM, "Diabetes", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "q1", q.ID)

	_, ok, err = svc.NextQuestion(ctx, domain.TERM, "Diabetes", map[string]string{"q1": "No"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.NextQuestion(ctx, domain.TERM, "Asthma", nil)
	assert.ErrorIs(t, err, domain.ErrConditionNotFound)
}
