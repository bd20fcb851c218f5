package model

import (
	"errors"
	"testing"
)

func sampleExam() *Exam {
	return &Exam{Questions: []Question{
		{
			ID:        "q1",
			Domain:    "Cloud Concepts",
			Stem:      "Which model splits security duties between provider and customer?",
			Choices:   []string{"A) Private cloud", "B) Shared responsibility model", "C) On-premises", "D) Hybrid DNS"},
			AnswerKey: 1,
		},
		{
			ID:        "q2",
			Domain:    "Azure Architecture",
			Stem:      "What do Availability Zones provide?",
			Choices:   []string{"A) Lower cost", "B) High availability within a region", "C) Encryption", "D) DNS"},
			AnswerKey: 1,
		},
	}}
}

func TestValidateExam_OK(t *testing.T) {
	if err := ValidateExam(sampleExam()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateExam_DuplicateID(t *testing.T) {
	exam := sampleExam()
	exam.Questions[1].ID = "q1"
	err := ValidateExam(exam)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestValidateExam_AnswerKeyOutOfRange(t *testing.T) {
	exam := sampleExam()
	exam.Questions[0].AnswerKey = 4
	if err := ValidateExam(exam); err == nil {
		t.Fatal("expected error for out-of-range answer key")
	}
}

func TestValidateExam_Empty(t *testing.T) {
	if err := ValidateExam(&Exam{}); err == nil {
		t.Fatal("expected error for empty exam")
	}
}

func TestValidateSubmission_UnknownQuestion(t *testing.T) {
	answers := &AnswerSheet{Answers: map[string]int{"q9": 0}}
	err := ValidateSubmission(sampleExam(), answers)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %v", err)
	}
}

func TestValidateSubmission_ChoiceOutOfRange(t *testing.T) {
	answers := &AnswerSheet{Answers: map[string]int{"q1": 7}}
	if err := ValidateSubmission(sampleExam(), answers); err == nil {
		t.Fatal("expected error for out-of-range choice")
	}
}

func TestValidateSubmission_UnansweredAllowed(t *testing.T) {
	answers := &AnswerSheet{Answers: map[string]int{"q1": 1}}
	if err := ValidateSubmission(sampleExam(), answers); err != nil {
		t.Fatalf("partial answer sheets must be legal, got: %v", err)
	}
}
