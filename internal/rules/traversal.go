package rules

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/life-quote-server/internal/domain"
)

// Traverser walks a condition's decision tree with a set of answers and
// reports where the walk ended. It never returns an error: malformed rule
// data produces integrity warnings on the outcome, and missing answers
// simply leave the walk incomplete.
type Traverser struct {
	logger *logrus.Logger
}

// NewTraverser creates a decision-tree traverser.
func NewTraverser(logger *logrus.Logger) *Traverser {
	return &Traverser{logger: logger}
}

// answerFor finds the supplied answer for a question. Answers are keyed
// by the question's text as authored in the rule document; question ids
// are accepted too, since interactive clients address questions by id.
func answerFor(question domain.Question, answers map[string]string) (string, bool) {
	if value, ok := answers[question.Text]; ok {
		return value, true
	}
	value, ok := answers[question.ID]
	return value, ok
}

// Walk starts at the tree's first question and follows the supplied
// answer for each question until it reaches a final result, runs out of
// answers, or hits something the rule data cannot resolve.
//
//   - No answer for the current question: the walk is incomplete and the
//     caller should ask that question next.
//   - An answer value the question does not offer: the walk is
//     undetermined and yields no verdicts.
//   - A reference to a question or final result that does not exist: the
//     walk stops with an integrity warning instead of failing.
//
// A step budget bounds the walk so a cyclic tree cannot hang quoting.
func (t *Traverser) Walk(tree *domain.ConditionTree, answers map[string]string) domain.TraversalOutcome {
	outcome := domain.TraversalOutcome{Status: domain.TraversalIncomplete}
	if tree == nil {
		outcome.Status = domain.TraversalUndetermined
		return outcome
	}
	outcome.ConditionName = tree.Name

	question, ok := tree.FirstQuestion()
	if !ok {
		warning := &domain.IntegrityWarning{ConditionName: tree.Name, Detail: "tree has no questions"}
		t.warn(warning)
		outcome.Status = domain.TraversalUndetermined
		outcome.Warnings = append(outcome.Warnings, warning.Error())
		return outcome
	}

	maxSteps := len(tree.Questions) + 1
	for step := 0; step < maxSteps; step++ {
		value, answered := answerFor(question, answers)
		if !answered {
			outcome.Status = domain.TraversalIncomplete
			return outcome
		}

		answer, matched := question.AnswerByValue(value)
		if !matched {
			t.logger.WithFields(logrus.Fields{
				"condition": tree.Name,
				"question":  question.ID,
				"value":     value,
			}).Debug("Answer value not offered by question, eligibility undetermined")
			outcome.Status = domain.TraversalUndetermined
			return outcome
		}

		target := answer.Target()
		if target.Kind == domain.TargetFinal {
			final, found := tree.FinalResultByID(target.FinalResultID)
			if !found {
				warning := &domain.IntegrityWarning{
					ConditionName: tree.Name,
					QuestionID:    question.ID,
					Detail:        fmt.Sprintf("answer %q points at missing final result %q", answer.Value, target.FinalResultID),
				}
				t.warn(warning)
				outcome.Status = domain.TraversalUndetermined
				outcome.Warnings = append(outcome.Warnings, warning.Error())
				return outcome
			}
			outcome.Status = domain.TraversalComplete
			outcome.FinalResultID = final.ID
			outcome.Verdicts = final.Underwriting
			return outcome
		}

		next, found := tree.QuestionByID(target.QuestionID)
		if !found {
			warning := &domain.IntegrityWarning{
				ConditionName: tree.Name,
				QuestionID:    question.ID,
				Detail:        fmt.Sprintf("answer %q points at missing question %q", answer.Value, target.QuestionID),
			}
			t.warn(warning)
			outcome.Status = domain.TraversalIncomplete
			outcome.Warnings = append(outcome.Warnings, warning.Error())
			return outcome
		}
		question = next
	}

	warning := &domain.IntegrityWarning{ConditionName: tree.Name, Detail: "traversal exceeded question count, tree likely cyclic"}
	t.warn(warning)
	outcome.Status = domain.TraversalUndetermined
	outcome.Warnings = append(outcome.Warnings, warning.Error())
	return outcome
}

// NextQuestion returns the question an incomplete walk stopped at, so
// interactive flows know what to ask next. The second return is false when
// the walk is already terminal or the tree is unresolvable.
func (t *Traverser) NextQuestion(tree *domain.ConditionTree, answers map[string]string) (domain.Question, bool) {
	if tree == nil {
		return domain.Question{}, false
	}

	question, ok := tree.FirstQuestion()
	if !ok {
		return domain.Question{}, false
	}

	maxSteps := len(tree.Questions) + 1
	for step := 0; step < maxSteps; step++ {
		value, answered := answerFor(question, answers)
		if !answered {
			return question, true
		}
		answer, matched := question.AnswerByValue(value)
		if !matched {
			return domain.Question{}, false
		}
		target := answer.Target()
		if target.Kind == domain.TargetFinal {
			return domain.Question{}, false
		}
		next, found := tree.QuestionByID(target.QuestionID)
		if !found {
			return domain.Question{}, false
		}
		question = next
	}
	return domain.Question{}, false
}

func (t *Traverser) warn(w *domain.IntegrityWarning) {
	t.logger.WithFields(logrus.Fields{
		"condition": w.ConditionName,
		"question":  w.QuestionID,
		"detail":    w.Detail,
	}).Warn("Rule data integrity problem")
}
