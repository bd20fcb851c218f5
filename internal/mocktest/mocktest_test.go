package mocktest

import (
	"strconv"
	"testing"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

func TestQuestionBankShape(t *testing.T) {
	if len(questionBank) != 2*len(cards) {
		t.Fatalf("bank size = %d, want %d", len(questionBank), 2*len(cards))
	}
	if len(questionBank) < MaxQuestions {
		t.Fatalf("bank size %d cannot cover maximum sample %d", len(questionBank), MaxQuestions)
	}
	if err := model.ValidateExam(&model.Exam{Questions: questionBank}); err != nil {
		t.Fatalf("bank fails exam validation: %v", err)
	}
}

func TestDistractorsNeverRepeatTheAnswer(t *testing.T) {
	for _, q := range questionBank {
		seen := make(map[string]bool, len(q.Choices))
		for _, choice := range q.Choices {
			if seen[choice] {
				t.Fatalf("question %s repeats choice %q", q.ID, choice)
			}
			seen[choice] = true
		}
	}
}

func TestBuildSessionBounds(t *testing.T) {
	for range 20 {
		plan, exam := BuildSession()

		n := len(exam.Questions)
		if n < MinQuestions || n > MaxQuestions {
			t.Fatalf("session size = %d, want within [%d,%d]", n, MinQuestions, MaxQuestions)
		}
		if plan.TargetQuestions != n {
			t.Fatalf("plan target = %d, exam has %d", plan.TargetQuestions, n)
		}
		if err := model.ValidateExam(exam); err != nil {
			t.Fatalf("sampled exam invalid: %v", err)
		}
	}
}

func TestBuildSessionRenumbersIDs(t *testing.T) {
	_, exam := BuildSession()
	for i, q := range exam.Questions {
		if q.ID != strconv.Itoa(i+1) {
			t.Fatalf("question %d has id %q", i, q.ID)
		}
	}
}

func TestBuildSessionPlanConsistency(t *testing.T) {
	plan, exam := BuildSession()

	counts := make(map[string]int)
	for _, q := range exam.Questions {
		counts[q.Domain]++
	}
	if len(plan.Domains) != len(counts) {
		t.Fatalf("plan lists %d domains, exam covers %d", len(plan.Domains), len(counts))
	}
	for i := 1; i < len(plan.Domains); i++ {
		if counts[plan.Domains[i-1]] < counts[plan.Domains[i]] {
			t.Fatalf("plan domains not ordered by count: %v (counts %v)", plan.Domains, counts)
		}
	}

	var sum float64
	for _, w := range plan.Weights {
		sum += w
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("weights sum to %v", sum)
	}

	if len(plan.NextFocus) == 0 || len(plan.NextFocus) > 3 {
		t.Fatalf("next focus length = %d", len(plan.NextFocus))
	}
	for _, mid := range plan.NextFocus {
		if !model.ValidMisconception(model.MisconceptionID(mid)) {
			t.Fatalf("next focus %q is not a taxonomy id", mid)
		}
	}
}
