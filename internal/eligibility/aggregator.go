package eligibility

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
)

// Aggregator folds per-condition traversal outcomes into one decision per
// carrier and stamps those decisions onto quotes.
//
// The fold is decline-dominant: a carrier that declines under any reported
// condition stays declined no matter what later conditions say, and the
// reason recorded is the first declining verdict's. Carriers never named
// by any verdict remain accepted.
type Aggregator struct {
	matcher domain.CarrierMatcher
	logger  *logrus.Logger
}

// NewAggregator creates an aggregator over the given carrier matcher.
func NewAggregator(matcher domain.CarrierMatcher, logger *logrus.Logger) *Aggregator {
	return &Aggregator{matcher: matcher, logger: logger}
}

// Aggregate folds traversal outcomes left to right into per-carrier
// decisions, keyed by normalized carrier name. Outcomes that did not
// complete contribute nothing. Empty input yields an empty map, which
// reads as everything accepted.
func (a *Aggregator) Aggregate(outcomes []domain.TraversalOutcome) map[string]domain.CarrierDecision {
	decisions := make(map[string]domain.CarrierDecision)
	ordinal := 0
	for _, outcome := range outcomes {
		if outcome.Status != domain.TraversalComplete {
			continue
		}
		for _, verdict := range outcome.Verdicts {
			ordinal++
			key := domain.NormalizeCarrier(verdict.Company)
			if key == "" {
				continue
			}
			existing, seen := decisions[key]
			if seen && existing.Declined {
				continue
			}
			decision := domain.CarrierDecision{Carrier: verdict.Company, Ordinal: ordinal}
			if verdict.IsDecline() {
				decision.Declined = true
				decision.Reason = verdict.Reason
				if decision.Reason == "" {
					decision.Reason = "Declined due to " + outcome.ConditionName
				}
				a.logger.WithFields(logrus.Fields{
					"carrier":   verdict.Company,
					"condition": outcome.ConditionName,
					"reason":    decision.Reason,
				}).Debug("Carrier declined by condition verdict")
			}
			decisions[key] = decision
		}
	}
	return decisions
}

// Annotate returns a copy of quotes with eligibility decisions and the
// preference mask applied. Quotes with non-positive monthly premiums are
// dropped, masked-off carriers are dropped, and quotes whose carrier
// matches a declining decision carry the decline and its reason. When
// several declining decisions match one quote carrier, the earliest in
// condition-then-verdict order supplies the reason and the ambiguity is
// logged. The input slice is never mutated, so annotating twice gives the
// same result.
func (a *Aggregator) Annotate(quotes []domain.Quote, decisions map[string]domain.CarrierDecision, mask domain.PreferenceMask) []domain.Quote {
	declining := make([]domain.CarrierDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.Declined {
			declining = append(declining, d)
		}
	}
	sort.Slice(declining, func(i, j int) bool {
		if declining[i].Ordinal != declining[j].Ordinal {
			return declining[i].Ordinal < declining[j].Ordinal
		}
		return declining[i].Carrier < declining[j].Carrier
	})

	annotated := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.MonthlyPremium <= 0 {
			continue
		}
		if !mask.Visible(q.Carrier) {
			continue
		}

		q.Decline = false
		q.DeclineReason = ""
		var matched []string
		for _, d := range declining {
			if !a.matcher.Match(d.Carrier, q.Carrier) {
				continue
			}
			if !q.Decline {
				q.Decline = true
				q.DeclineReason = d.Reason
			}
			matched = append(matched, d.Carrier)
		}
		if len(matched) > 1 {
			a.logger.WithFields(logrus.Fields{
				"carrier": q.Carrier,
				"matches": strings.Join(matched, ", "),
			}).Warn("Quote carrier matched by multiple declining verdicts, first reported wins")
		}
		annotated = append(annotated, q)
	}
	return annotated
}
