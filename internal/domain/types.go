// Package domain contains core business entities and types for life insurance
// quoting and health-condition eligibility screening across Term and Final
// Expense (FEX) product lines.
package domain

import (
	"sort"
	"strings"
)

// CoverageType represents the insurance product line a quote or rule set
// belongs to. BOTH is only valid as a query filter, never as a rule set key.
type CoverageType string

const (
	TERM CoverageType = "term"
	FEX  CoverageType = "fex"
	BOTH CoverageType = "both"
)

// IsValid validates the coverage type.
func (c CoverageType) IsValid() bool {
	switch c {
	case TERM, FEX, BOTH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the coverage type.
func (c CoverageType) String() string {
	return string(c)
}

// LogFields returns structured logging fields for request tracing.
func (c CoverageType) LogFields() map[string]any {
	return map[string]any{
		"coverage": string(c),
		"is_valid": c.IsValid(),
	}
}

// declineStatuses are the underwriting decisions treated as a decline.
// Comparison is case-insensitive; everything else counts as an accept.
var declineStatuses = map[string]bool{
	"decline":  true,
	"declined": true,
}

// UnderwritingVerdict is a single carrier's decision attached to a final
// result node of a condition tree.
type UnderwritingVerdict struct {
	Company string `json:"company"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// IsDecline reports whether the verdict's status denotes a decline.
func (v UnderwritingVerdict) IsDecline() bool {
	return declineStatuses[strings.ToLower(strings.TrimSpace(v.Status))]
}

// TargetKind discriminates where an answer leads next.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetFinal    TargetKind = "final"
)

// AnswerTarget is the parsed destination of an answer. The wire format
// overloads nextQuestionId: identifiers beginning with "final" (any casing)
// address a final result, everything else addresses a question. Parsing
// happens once at the boundary so traversal never sniffs prefixes.
type AnswerTarget struct {
	Kind          TargetKind `json:"kind"`
	QuestionID    string     `json:"questionId,omitempty"`
	FinalResultID string     `json:"finalResultId,omitempty"`
}

// ParseAnswerTarget classifies a raw nextQuestionId value.
func ParseAnswerTarget(next string) AnswerTarget {
	if strings.HasPrefix(strings.ToLower(next), "final") {
		return AnswerTarget{Kind: TargetFinal, FinalResultID: next}
	}
	return AnswerTarget{Kind: TargetQuestion, QuestionID: next}
}

// Answer is one selectable option on a question.
type Answer struct {
	Value          string `json:"value"`
	NextQuestionID string `json:"nextQuestionId"`
}

// Target returns the parsed destination for this answer.
func (a Answer) Target() AnswerTarget {
	return ParseAnswerTarget(a.NextQuestionID)
}

// Question is a node in a condition's decision tree.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"questionText"`
	Type    string   `json:"questionType"`
	Answers []Answer `json:"answers"`
}

// AnswerByValue returns the answer option matching the given value, using
// case-insensitive comparison of trimmed values.
func (q Question) AnswerByValue(value string) (Answer, bool) {
	want := strings.ToLower(strings.TrimSpace(value))
	for _, a := range q.Answers {
		if strings.ToLower(strings.TrimSpace(a.Value)) == want {
			return a, true
		}
	}
	return Answer{}, false
}

// FinalResult is a terminal node carrying per-carrier verdicts.
type FinalResult struct {
	ID           string                `json:"id"`
	Underwriting []UnderwritingVerdict `json:"underwriting"`
}

// ConditionTree is the full decision tree for one health condition. The
// condition name lives on the enclosing map key in the wire format and is
// copied here when the rule book is loaded.
type ConditionTree struct {
	Name         string        `json:"-"`
	Questions    []Question    `json:"questions"`
	FinalResults []FinalResult `json:"finalResults"`
}

// FirstQuestion returns the entry question of the tree.
func (t *ConditionTree) FirstQuestion() (Question, bool) {
	if len(t.Questions) == 0 {
		return Question{}, false
	}
	return t.Questions[0], true
}

// QuestionByID looks up a question node by identifier.
func (t *ConditionTree) QuestionByID(id string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// FinalResultByID looks up a terminal node by identifier. Matching is
// case-insensitive because answer targets and result ids are authored by
// hand and casing drifts between them.
func (t *ConditionTree) FinalResultByID(id string) (FinalResult, bool) {
	for _, fr := range t.FinalResults {
		if strings.EqualFold(fr.ID, id) {
			return fr, true
		}
	}
	return FinalResult{}, false
}

// RuleSet is one coverage line's collection of condition trees keyed by
// condition display name.
type RuleSet struct {
	Conditions map[string]*ConditionTree `json:"Conditions"`
}

// Tree returns the condition tree for the named condition, matching the
// key case-insensitively.
func (rs *RuleSet) Tree(name string) (*ConditionTree, bool) {
	if rs == nil {
		return nil, false
	}
	if t, ok := rs.Conditions[name]; ok {
		return t, true
	}
	for k, t := range rs.Conditions {
		if strings.EqualFold(k, name) {
			return t, true
		}
	}
	return nil, false
}

// RuleBook is the complete underwriting rule document covering both
// product lines.
type RuleBook struct {
	Term RuleSet `json:"Term"`
	FEX  RuleSet `json:"FEX"`
}

// RuleSetFor returns the rule set for a coverage line. BOTH has no single
// rule set and returns false.
func (rb *RuleBook) RuleSetFor(coverage CoverageType) (*RuleSet, bool) {
	if rb == nil {
		return nil, false
	}
	switch coverage {
	case TERM:
		return &rb.Term, true
	case FEX:
		return &rb.FEX, true
	default:
		return nil, false
	}
}

// ConditionNames returns the condition names for a coverage line, sorted
// alphabetically without regard to case so listings are deterministic.
// BOTH merges and dedupes the two lines.
func (rb *RuleBook) ConditionNames(coverage CoverageType) []string {
	if rb == nil {
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	collect := func(rs RuleSet) {
		for name := range rs.Conditions {
			key := strings.ToLower(name)
			if !seen[key] {
				seen[key] = true
				names = append(names, name)
			}
		}
	}
	switch coverage {
	case TERM:
		collect(rb.Term)
	case FEX:
		collect(rb.FEX)
	default:
		collect(rb.Term)
		collect(rb.FEX)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}
