package domain

import (
	"strings"
	"testing"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(ErrInvalidInput, "faceAmount is required", "", "req-123")

	if err.Code != ErrInvalidInput {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidInput)
	}
	if err.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if !strings.Contains(err.Error(), "faceAmount is required") {
		t.Errorf("Error() = %q, want message included", err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("coverage", "must be term, fex, or both", "whole")

	if !strings.Contains(err.Error(), "coverage") {
		t.Errorf("Error() = %q, want field name included", err.Error())
	}
	if err.Value != "whole" {
		t.Errorf("Value = %v, want offending value retained", err.Value)
	}
}

func TestIntegrityWarning(t *testing.T) {
	w := &IntegrityWarning{ConditionName: "Diabetes", QuestionID: "q7", Detail: "answer points at missing question"}
	msg := w.Error()
	if !strings.Contains(msg, "Diabetes") || !strings.Contains(msg, "q7") {
		t.Errorf("Error() = %q, want condition and question named", msg)
	}

	noQ := &IntegrityWarning{ConditionName: "Stroke", Detail: "tree has no questions"}
	if strings.Contains(noQ.Error(), `""`) {
		t.Errorf("Error() = %q, should omit empty question id", noQ.Error())
	}
}
