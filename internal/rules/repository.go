// Package rules loads the underwriting rule document and walks its
// per-condition decision trees.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
)

// FileRepository serves underwriting rules from a JSON document on disk.
// The document is hand-authored and replaced out of band, so the
// repository rereads it on an interval rather than watching it.
//
// A missing or unparseable document is not an error: the repository serves
// an empty rule book, which downstream reads as "no conditions to screen"
// and every carrier stays accepted.
type FileRepository struct {
	path           string
	reloadInterval time.Duration
	logger         *logrus.Logger

	mu       sync.RWMutex
	book     *domain.RuleBook
	loadedAt time.Time
}

// NewFileRepository creates a repository over the configured rule document
// and performs the initial load.
func NewFileRepository(cfg domain.RulesConfig, logger *logrus.Logger) *FileRepository {
	r := &FileRepository{
		path:           cfg.Path,
		reloadInterval: cfg.ReloadInterval,
		logger:         logger,
	}
	r.reload()
	return r
}

// reload reads and parses the rule document, swapping in an empty book on
// any failure.
func (r *FileRepository) reload() {
	book := &domain.RuleBook{
		Term: domain.RuleSet{Conditions: map[string]*domain.ConditionTree{}},
		FEX:  domain.RuleSet{Conditions: map[string]*domain.ConditionTree{}},
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"path":  r.path,
			"error": err.Error(),
		}).Warn("Rule document unavailable, serving empty rule book")
	} else if err := json.Unmarshal(data, book); err != nil {
		r.logger.WithFields(logrus.Fields{
			"path":  r.path,
			"error": err.Error(),
		}).Warn("Rule document unparseable, serving empty rule book")
		book = &domain.RuleBook{
			Term: domain.RuleSet{Conditions: map[string]*domain.ConditionTree{}},
			FEX:  domain.RuleSet{Conditions: map[string]*domain.ConditionTree{}},
		}
	}

	// Condition names live on the map keys in the wire format.
	for name, tree := range book.Term.Conditions {
		if tree != nil {
			tree.Name = name
		}
	}
	for name, tree := range book.FEX.Conditions {
		if tree != nil {
			tree.Name = name
		}
	}

	r.mu.Lock()
	r.book = book
	r.loadedAt = time.Now()
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"term_conditions": len(book.Term.Conditions),
		"fex_conditions":  len(book.FEX.Conditions),
	}).Info("Underwriting rules loaded")
}

// current returns the rule book, rereading the document when the reload
// interval has elapsed.
func (r *FileRepository) current() *domain.RuleBook {
	r.mu.RLock()
	book, loadedAt := r.book, r.loadedAt
	r.mu.RUnlock()

	if r.reloadInterval > 0 && time.Since(loadedAt) > r.reloadInterval {
		r.reload()
		r.mu.RLock()
		book = r.book
		r.mu.RUnlock()
	}
	return book
}

// RuleBook returns the currently loaded rule document.
func (r *FileRepository) RuleBook(ctx context.Context) (*domain.RuleBook, error) {
	return r.current(), nil
}

// Condition returns the decision tree for the named condition under a
// coverage line. BOTH checks Term first, then FEX.
func (r *FileRepository) Condition(ctx context.Context, coverage domain.CoverageType, name string) (*domain.ConditionTree, error) {
	if !coverage.IsValid() {
		return nil, fmt.Errorf("condition lookup: %w: %s", domain.ErrInvalidCoverage, coverage)
	}

	book := r.current()
	sets := []*domain.RuleSet{}
	switch coverage {
	case domain.TERM:
		sets = append(sets, &book.Term)
	case domain.FEX:
		sets = append(sets, &book.FEX)
	case domain.BOTH:
		sets = append(sets, &book.Term, &book.FEX)
	}

	for _, rs := range sets {
		if tree, ok := rs.Tree(name); ok {
			return tree, nil
		}
	}
	return nil, fmt.Errorf("condition %q: %w", name, domain.ErrConditionNotFound)
}

// ListConditions returns summaries for every condition under a coverage
// line, sorted alphabetically.
func (r *FileRepository) ListConditions(ctx context.Context, coverage domain.CoverageType) ([]domain.ConditionSummary, error) {
	if !coverage.IsValid() {
		return nil, fmt.Errorf("condition listing: %w: %s", domain.ErrInvalidCoverage, coverage)
	}

	book := r.current()
	summaries := make([]domain.ConditionSummary, 0)
	for _, name := range book.ConditionNames(coverage) {
		var lines []domain.CoverageType
		if _, ok := book.Term.Tree(name); ok {
			lines = append(lines, domain.TERM)
		}
		if _, ok := book.FEX.Tree(name); ok {
			lines = append(lines, domain.FEX)
		}
		summaries = append(summaries, domain.ConditionSummary{Name: name, Coverage: lines})
	}
	return summaries, nil
}

// SearchConditions ranks conditions against a query in three tiers: exact
// name match, then names with a word starting with the query, then names
// containing the query anywhere. All matching is case-insensitive; within
// a tier the alphabetical listing order is preserved, and a name appears
// only once in its best tier.
func (r *FileRepository) SearchConditions(ctx context.Context, coverage domain.CoverageType, query string) ([]domain.ConditionSummary, error) {
	all, err := r.ListConditions(ctx, coverage)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var exact, wordPrefix, substring []domain.ConditionSummary
	for _, s := range all {
		lower := strings.ToLower(s.Name)
		switch {
		case lower == q:
			exact = append(exact, s)
		case hasWordPrefix(lower, q):
			wordPrefix = append(wordPrefix, s)
		case strings.Contains(lower, q):
			substring = append(substring, s)
		}
	}

	results := make([]domain.ConditionSummary, 0, len(exact)+len(wordPrefix)+len(substring))
	results = append(results, exact...)
	results = append(results, wordPrefix...)
	results = append(results, substring...)
	return results, nil
}

// hasWordPrefix reports whether any whitespace-separated word of name
// starts with the query. Both arguments must already be lowercased.
func hasWordPrefix(name, query string) bool {
	for _, w := range strings.Fields(name) {
		if strings.HasPrefix(w, query) {
			return true
		}
	}
	return false
}
