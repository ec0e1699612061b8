package domain

import (
	"context"
)

// RuleRepository loads and queries the underwriting rule document. An
// unavailable source is reported as an empty rule book, not an error, so
// that quoting degrades to accept-everything rather than failing.
type RuleRepository interface {
	RuleBook(ctx context.Context) (*RuleBook, error)
	Condition(ctx context.Context, coverage CoverageType, name string) (*ConditionTree, error)
	ListConditions(ctx context.Context, coverage CoverageType) ([]ConditionSummary, error)
	SearchConditions(ctx context.Context, coverage CoverageType, query string) ([]ConditionSummary, error)
}

// CarrierMatcher decides whether an underwriting verdict's carrier name
// refers to a priced quote's carrier. Verdict names and rate-table names
// are authored independently, so matching is fuzzy by necessity.
type CarrierMatcher interface {
	Match(verdictCarrier, quoteCarrier string) bool
}

// EligibilityAggregator folds per-condition verdicts into one decision per
// carrier, and applies those decisions plus a preference mask to quotes.
type EligibilityAggregator interface {
	Aggregate(outcomes []TraversalOutcome) map[string]CarrierDecision
	Annotate(quotes []Quote, decisions map[string]CarrierDecision, mask PreferenceMask) []Quote
}

// QuoteSource produces raw priced quotes for an applicant profile, before
// any eligibility annotation.
type QuoteSource interface {
	Quotes(ctx context.Context, req *QuoteRequest) ([]Quote, error)
}

// PreferenceStore persists per-location carrier visibility preferences.
type PreferenceStore interface {
	Get(ctx context.Context, locationID string) (*CarrierPreferences, error)
	Put(ctx context.Context, prefs *CarrierPreferences) error
	Close() error
}

// QuoteCache is a read-through cache over annotated quote runs.
type QuoteCache interface {
	Get(ctx context.Context, key string) ([]Quote, bool)
	Set(ctx context.Context, key string, quotes []Quote) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetRulesConfig() *RulesConfig
	GetPreferencesConfig() *PreferencesConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
