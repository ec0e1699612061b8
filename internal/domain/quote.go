package domain

import (
	"fmt"
	"strings"
	"time"
)

// Quote is a priced plan offer for one carrier, annotated with the
// eligibility decision once screening has run.
type Quote struct {
	Carrier        string  `json:"carrier"`
	PlanName       string  `json:"planName"`
	TierName       string  `json:"tierName,omitempty"`
	MonthlyPremium float64 `json:"monthlyPremium"`
	AnnualPremium  float64 `json:"annualPremium"`
	Warnings       string  `json:"warnings,omitempty"`
	LogoURL        string  `json:"logoUrl,omitempty"`
	EApp           string  `json:"eapp,omitempty"`
	Decline        bool    `json:"decline"`
	DeclineReason  string  `json:"declineReason,omitempty"`
}

// QuoteRequest carries the applicant profile and screening inputs for a
// quote run. TermLength applies to Term, UnderwritingClass to FEX.
type QuoteRequest struct {
	Coverage          CoverageType        `json:"coverage"`
	FaceAmount        int                 `json:"faceAmount"`
	Sex               string              `json:"sex"`
	Age               int                 `json:"age"`
	BirthDate         string              `json:"birthDate,omitempty"`
	Tobacco           bool                `json:"tobacco"`
	TermLength        int                 `json:"termLength,omitempty"`
	UnderwritingClass string              `json:"underwritingClass,omitempty"`
	LocationID        string              `json:"locationId,omitempty"`
	Conditions        []SelectedCondition `json:"conditions,omitempty"`
	SortBy            SortMode            `json:"sortBy,omitempty"`
}

// SelectedCondition is one health condition the applicant reported,
// together with the answers given while walking its decision tree.
// Answers are keyed by the question's text as it appears in the rule
// document; question ids are accepted as keys too.
type SelectedCondition struct {
	Name    string            `json:"name"`
	Answers map[string]string `json:"answers"`
}

// TraversalStatus describes how a decision-tree walk ended.
type TraversalStatus string

const (
	TraversalComplete     TraversalStatus = "complete"
	TraversalIncomplete   TraversalStatus = "incomplete"
	TraversalUndetermined TraversalStatus = "undetermined"
)

// TraversalOutcome is the result of walking one condition's tree with a
// set of answers. Verdicts are only populated when Status is complete.
// Warnings record data-integrity problems found along the walk; they never
// abort the run.
type TraversalOutcome struct {
	ConditionName string                `json:"conditionName"`
	Status        TraversalStatus       `json:"status"`
	FinalResultID string                `json:"finalResultId,omitempty"`
	Verdicts      []UnderwritingVerdict `json:"verdicts,omitempty"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// CarrierDecision is a carrier's aggregate standing after folding verdicts
// from every reported condition. Once declined it stays declined; the
// reason is from the first declining verdict. Ordinal records the
// condition-then-verdict position at which the decision was made, so that
// when several declines match one quote carrier the earliest reported
// condition's reason wins.
type CarrierDecision struct {
	Carrier  string `json:"carrier"`
	Declined bool   `json:"declined"`
	Reason   string `json:"reason,omitempty"`
	Ordinal  int    `json:"-"`
}

// PreferenceMask controls which carriers an agent wants shown. Absent
// carriers default to visible; only an explicit false hides one.
type PreferenceMask map[string]bool

// Visible reports whether the carrier should be shown under this mask.
func (m PreferenceMask) Visible(carrier string) bool {
	if m == nil {
		return true
	}
	if v, ok := m[carrier]; ok {
		return v
	}
	return true
}

// CarrierPreferences is the stored per-location preference document, one
// mask per product line.
type CarrierPreferences struct {
	LocationID string         `json:"locationId"`
	Term       PreferenceMask `json:"termPreferences"`
	FEX        PreferenceMask `json:"fexPreferences"`
	UpdatedAt  time.Time      `json:"updatedAt,omitempty"`
}

// MaskFor returns the mask for a coverage line. BOTH has no single mask
// and returns nil, which reads as everything visible.
func (p *CarrierPreferences) MaskFor(coverage CoverageType) PreferenceMask {
	if p == nil {
		return nil
	}
	switch coverage {
	case TERM:
		return p.Term
	case FEX:
		return p.FEX
	default:
		return nil
	}
}

// SortMode selects how annotated quotes are ordered.
type SortMode string

const (
	SortByPrice   SortMode = "price"
	SortByCarrier SortMode = "carrier"
)

// IsValid validates the sort mode.
func (s SortMode) IsValid() bool {
	switch s {
	case SortByPrice, SortByCarrier:
		return true
	default:
		return false
	}
}

// Normalize maps unknown or empty modes to the price default.
func (s SortMode) Normalize() SortMode {
	if !s.IsValid() {
		return SortByPrice
	}
	return s
}

// ConditionSummary is a condition name with the coverage lines it appears
// under, as shown by condition pickers and search results.
type ConditionSummary struct {
	Name     string         `json:"name"`
	Coverage []CoverageType `json:"coverage"`
}

// NormalizeCarrier trims and lowercases a carrier name for comparison.
func NormalizeCarrier(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AgeAt computes whole-year age at a reference date from an ISO birth date
// (YYYY-MM-DD), counting a year only once the birthday has passed.
func AgeAt(birthDate string, at time.Time) (int, error) {
	born, err := time.Parse("2006-01-02", strings.TrimSpace(birthDate))
	if err != nil {
		return 0, fmt.Errorf("parsing birth date: %w", err)
	}
	age := at.Year() - born.Year()
	if at.Month() < born.Month() || (at.Month() == born.Month() && at.Day() < born.Day()) {
		age--
	}
	return age, nil
}
