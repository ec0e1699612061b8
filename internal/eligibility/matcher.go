// Package eligibility folds underwriting verdicts into per-carrier
// decisions and applies them to priced quotes.
package eligibility

import (
	"strings"

	"github.com/life-quote-server/internal/domain"
)

// ContainmentMatcher matches carrier names by case-insensitive equality or
// substring containment in either direction. Rule documents say "Foresters"
// where rate tables say "Foresters (PlanRight)", so exact comparison would
// silently drop declines.
type ContainmentMatcher struct{}

// NewContainmentMatcher creates the default carrier matcher.
func NewContainmentMatcher() *ContainmentMatcher {
	return &ContainmentMatcher{}
}

// Match reports whether a verdict's carrier name refers to a quote's
// carrier.
func (m *ContainmentMatcher) Match(verdictCarrier, quoteCarrier string) bool {
	a := domain.NormalizeCarrier(verdictCarrier)
	b := domain.NormalizeCarrier(quoteCarrier)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
