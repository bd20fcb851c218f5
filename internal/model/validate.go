package model

import "fmt"

// ValidationError reports caller-supplied payloads inconsistent with the
// issued exam. It is fatal to the request: nothing is graded and no state
// is persisted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Msg)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

const (
	minChoices = 2
	maxChoices = 6
)

// ValidateExam checks structural integrity of an exam: at least one
// question, unique ids, sane choice counts, answer keys in range.
func ValidateExam(exam *Exam) error {
	if exam == nil || len(exam.Questions) == 0 {
		return &ValidationError{Field: "exam", Msg: "must contain at least one question"}
	}

	seen := make(map[string]struct{}, len(exam.Questions))
	for i, q := range exam.Questions {
		if q.ID == "" {
			return &ValidationError{
				Field: fmt.Sprintf("exam.questions[%d].id", i),
				Msg:   "must not be empty",
			}
		}
		if _, dup := seen[q.ID]; dup {
			return &ValidationError{
				Field: fmt.Sprintf("exam.questions[%d].id", i),
				Msg:   fmt.Sprintf("duplicate question id %q", q.ID),
			}
		}
		seen[q.ID] = struct{}{}

		if len(q.Choices) < minChoices || len(q.Choices) > maxChoices {
			return &ValidationError{
				Field: fmt.Sprintf("exam.questions[%d].choices", i),
				Msg:   fmt.Sprintf("must have %d-%d choices, got %d", minChoices, maxChoices, len(q.Choices)),
			}
		}
		if q.AnswerKey < 0 || q.AnswerKey >= len(q.Choices) {
			return &ValidationError{
				Field: fmt.Sprintf("exam.questions[%d].answer_key", i),
				Msg:   fmt.Sprintf("index %d out of range for %d choices", q.AnswerKey, len(q.Choices)),
			}
		}
	}
	return nil
}

// ValidateSubmission checks an answer sheet against the exam it claims to
// answer: no unknown question ids, no out-of-range choice indices.
// Unanswered questions are legal (absent from the map).
func ValidateSubmission(exam *Exam, answers *AnswerSheet) error {
	if err := ValidateExam(exam); err != nil {
		return err
	}
	if answers == nil {
		return &ValidationError{Field: "answers", Msg: "must not be nil"}
	}

	byID := make(map[string]*Question, len(exam.Questions))
	for i := range exam.Questions {
		byID[exam.Questions[i].ID] = &exam.Questions[i]
	}

	for qid, choice := range answers.Answers {
		q, ok := byID[qid]
		if !ok {
			return &ValidationError{
				Field: "answers",
				Msg:   fmt.Sprintf("unknown question id %q", qid),
			}
		}
		if choice < 0 || choice >= len(q.Choices) {
			return &ValidationError{
				Field: "answers",
				Msg:   fmt.Sprintf("choice %d out of range for question %q", choice, qid),
			}
		}
	}
	return nil
}
