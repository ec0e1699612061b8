package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainmentMatcher_Match(t *testing.T) {
	m := NewContainmentMatcher()

	tests := []struct {
		name     string
		verdict  string
		quote    string
		expected bool
	}{
		{"Exact", "Acme Life", "Acme Life", true},
		{"Case insensitive", "ACME LIFE", "acme life", true},
		{"Verdict contains quote", "Foresters (PlanRight)", "Foresters", true},
		{"Quote contains verdict", "Foresters", "Foresters (PlanRight)", true},
		{"Padded", "  Acme Life ", "Acme Life", true},
		{"Unrelated", "Acme Life", "Summit Mutual", false},
		{"Empty verdict", "", "Acme Life", false},
		{"Both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Match(tt.verdict, tt.quote))
		})
	}
}
