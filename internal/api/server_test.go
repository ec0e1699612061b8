package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-quote-server/internal/domain"
	"github.com/life-quote-server/internal/eligibility"
	"github.com/life-quote-server/internal/quotes"
	"github.com/life-quote-server/internal/rules"
)

type stubConfigManager struct {
	config *domain.Config
}

func (m *stubConfigManager) GetConfig() *domain.Config                 { return m.config }
func (m *stubConfigManager) GetDatabaseConfig() *domain.DatabaseConfig { return &m.config.Database }
func (m *stubConfigManager) GetServerConfig() *domain.ServerConfig     { return &m.config.Server }
func (m *stubConfigManager) GetRulesConfig() *domain.RulesConfig       { return &m.config.Rules }
func (m *stubConfigManager) GetPreferencesConfig() *domain.PreferencesConfig {
	return &m.config.Preferences
}
func (m *stubConfigManager) Reload() error                       { return nil }
func (m *stubConfigManager) Validate() error                     { return nil }
func (m *stubConfigManager) GetDatabaseConnectionString() string { return "" }
func (m *stubConfigManager) GetRedisConnectionString() string    { return "" }
func (m *stubConfigManager) IsProduction() bool                  { return false }
func (m *stubConfigManager) IsDevelopment() bool                 { return true }

type stubSource struct {
	quotes []domain.Quote
	err    error
}

func (s *stubSource) Quotes(ctx context.Context, req *domain.QuoteRequest) ([]domain.Quote, error) {
	return s.quotes, s.err
}

type memPrefs struct {
	stored map[string]*domain.CarrierPreferences
}

func (p *memPrefs) Get(ctx context.Context, locationID string) (*domain.CarrierPreferences, error) {
	prefs, ok := p.stored[locationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return prefs, nil
}

func (p *memPrefs) Put(ctx context.Context, prefs *domain.CarrierPreferences) error {
	p.stored[prefs.LocationID] = prefs
	return nil
}

func (p *memPrefs) Close() error { return nil }

func testServer(t *testing.T, source domain.QuoteSource, prefs domain.PreferenceStore) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := rules.NewFileRepository(domain.RulesConfig{
		Path:           "testdata/underwriting_rules.json",
		ReloadInterval: time.Minute,
	}, logger)
	traverser := rules.NewTraverser(logger)
	aggregator := eligibility.NewAggregator(eligibility.NewContainmentMatcher(), logger)

	service := quotes.NewService(repo, traverser, aggregator, source, prefs, nil, logger)

	cfg := &domain.Config{
		Logging: domain.LoggingConfig{Level: "info"},
		MCP:     domain.MCPConfig{ServerVersion: "1.0.0"},
	}

	return NewServer(&stubConfigManager{config: cfg}, service, prefs, quotes.NewSessionStore(time.Minute), logger)
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListConditions(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/conditions?type=term", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Conditions []domain.ConditionSummary `json:"conditions"`
		Count      int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "Cancer History", body.Conditions[0].Name)
}

func TestListConditionsInvalidCoverage(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/conditions?type=whole", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrInvalidInput)
}

func TestSearchConditions(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/conditions/search?type=term&q=cancer", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Conditions []domain.ConditionSummary `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Conditions, 2)
	assert.Equal(t, "Cancer History", body.Conditions[0].Name)
	assert.Equal(t, "Past Cancer", body.Conditions[1].Name)
}

func TestQuotesEndpointAnnotatesDeclines(t *testing.T) {
	source := &stubSource{quotes: []domain.Quote{
		{Carrier: "Acme Life", PlanName: "Term 20", MonthlyPremium: 30.10, AnnualPremium: 361.20},
		{Carrier: "Summit Mutual", PlanName: "Term 20", MonthlyPremium: 28.40, AnnualPremium: 340.80},
	}}
	srv := testServer(t, source, nil)

	req := domain.QuoteRequest{
		Coverage:   domain.TERM,
		FaceAmount: 250000,
		Sex:        "male",
		Age:        40,
		TermLength: 20,
		Conditions: []domain.SelectedCondition{
			{Name: "Diabetes", Answers: map[string]string{"q1": "Yes", "q2": "Yes"}},
		},
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/quotes", req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Quotes []domain.Quote `json:"quotes"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)

	// Non-declined carrier sorts first in price order.
	assert.Equal(t, "Summit Mutual", body.Quotes[0].Carrier)
	assert.False(t, body.Quotes[0].Decline)
	assert.Equal(t, "Acme Life", body.Quotes[1].Carrier)
	assert.True(t, body.Quotes[1].Decline)
	assert.Equal(t, "Insulin use with early onset", body.Quotes[1].DeclineReason)
}

func TestQuotesEndpointValidation(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	req := domain.QuoteRequest{Coverage: domain.TERM, Sex: "male", Age: 40, TermLength: 20}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/quotes", req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "faceAmount")
}

func TestQuotesEndpointPricingFailure(t *testing.T) {
	srv := testServer(t, &stubSource{err: context.DeadlineExceeded}, nil)

	req := domain.QuoteRequest{
		Coverage:   domain.TERM,
		FaceAmount: 250000,
		Sex:        "female",
		Age:        35,
		TermLength: 20,
	}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/quotes", req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrPricingError)
}

func TestGetPreferencesDefaultsWhenMissing(t *testing.T) {
	srv := testServer(t, &stubSource{}, &memPrefs{stored: map[string]*domain.CarrierPreferences{}})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/carrier-preferences/loc-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var prefs domain.CarrierPreferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, "loc-1", prefs.LocationID)
	assert.NotEmpty(t, prefs.Term)
	assert.True(t, prefs.Term.Visible("Foresters (Strong Foundation)"))
}

func TestPutThenGetPreferences(t *testing.T) {
	store := &memPrefs{stored: map[string]*domain.CarrierPreferences{}}
	srv := testServer(t, &stubSource{}, store)

	put := domain.CarrierPreferences{
		Term: domain.PreferenceMask{"Kansas City Life": false},
		FEX:  domain.PreferenceMask{},
	}
	rec := doRequest(t, srv, http.MethodPut, "/api/v1/carrier-preferences/loc-7", put)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/carrier-preferences/loc-7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prefs domain.CarrierPreferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, "loc-7", prefs.LocationID)
	assert.False(t, prefs.Term.Visible("Kansas City Life"))
	assert.True(t, prefs.Term.Visible("Americo"))
}

func TestPutPreferencesWithoutStore(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodPut, "/api/v1/carrier-preferences/loc-1", domain.CarrierPreferences{})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCarrierCatalog(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/carriers?type=fex", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Coverage domain.CoverageType `json:"coverage"`
		Groups   []struct {
			Name     string   `json:"name"`
			Carriers []string `json:"carriers"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.FEX, body.Coverage)
	assert.NotEmpty(t, body.Groups)
}

func TestEligibilityWebsocketFlow(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/eligibility/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var resp wsResponse

	// Start a term session.
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "start", Coverage: "term"}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "session", resp.Type)
	require.NotEmpty(t, resp.SessionID)

	// Ask for the first question of Diabetes.
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "answer", Condition: "Diabetes"}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "question", resp.Type)
	require.NotNil(t, resp.Question)
	assert.Equal(t, "q1", resp.Question.ID)

	// Answer q1 and q2; the second answer terminates the walk.
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "answer", Condition: "Diabetes", QuestionID: "q1", Value: "Yes"}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "question", resp.Type)
	require.NotNil(t, resp.Question)
	assert.Equal(t, "q2", resp.Question.ID)

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "answer", Condition: "Diabetes", QuestionID: "q2", Value: "Yes"}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "question", resp.Type)
	assert.True(t, resp.Done)
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, domain.TraversalComplete, resp.Outcomes[0].Status)

	// Screening the whole session reports the same decline.
	require.NoError(t, conn.WriteJSON(wsRequest{Action: "screen"}))
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "outcomes", resp.Type)
	require.Len(t, resp.Outcomes, 1)
	assert.Equal(t, "Final2", resp.Outcomes[0].FinalResultID)
}

func TestEligibilityWebsocketRejectsAnswerWithoutSession(t *testing.T) {
	srv := testServer(t, &stubSource{}, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/eligibility/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsRequest{Action: "answer", Condition: "Diabetes"}))

	var resp wsResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Type)
}
