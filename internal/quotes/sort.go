package quotes

import (
	"sort"
	"strings"

	"github.com/life-quote-server/internal/domain"
)

// SortQuotes orders annotated quotes without mutating the input.
//
// Price order puts every non-declined quote before every declined one,
// ascending by monthly premium within each group. Carrier order is
// alphabetical by carrier name regardless of decline status. Both sorts
// are stable so equal keys keep their incoming order.
func SortQuotes(quotes []domain.Quote, mode domain.SortMode) []domain.Quote {
	sorted := make([]domain.Quote, len(quotes))
	copy(sorted, quotes)

	switch mode.Normalize() {
	case domain.SortByCarrier:
		sort.SliceStable(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Carrier) < strings.ToLower(sorted[j].Carrier)
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Decline != sorted[j].Decline {
				return !sorted[i].Decline
			}
			return sorted[i].MonthlyPremium < sorted[j].MonthlyPremium
		})
	}
	return sorted
}
