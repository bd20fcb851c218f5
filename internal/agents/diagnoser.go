package agents

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
)

const diagnoserSystem = `You are the MisconceptionAgent for an AZ-900 tutor.
Compare the student's answers against the answer key and diagnose misconceptions.
Use ONLY these misconception IDs: SRM, IDAM, REGION, PRICING, GOV, SEC,
SERVICE_SCOPE, TERMS.
Return ONLY a JSON object with a "results" array (one entry per question with
"id", "correct", "misconception_id" for wrong answers, a brief "why" and a
"confidence" between 0 and 1) and a "top_misconceptions" array.`

// The diagnosis schema is deliberately loose: only question ids are
// required. Everything else the model emits gets rebuilt server-side in
// normalize, so a sloppy but parseable response never wastes a repair
// turn.
var diagnosisSchema = &llm.Schema{
	Name:        "diagnosis",
	Description: "Per-question grading with misconception classification",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"results"},
		"properties": map[string]any{
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id"},
					"properties": map[string]any{
						"id": map[string]any{"type": "string"},
					},
				},
			},
			"top_misconceptions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
}

type rawDiagnosis struct {
	Results []rawDiagnosisEntry `json:"results"`
}

// Field types are deliberately loose; normalize coerces them.
type rawDiagnosisEntry struct {
	ID              string `json:"id"`
	Correct         any    `json:"correct"`
	MisconceptionID any    `json:"misconception_id"`
	Why             any    `json:"why"`
	Confidence      any    `json:"confidence"`
}

// Diagnoser grades a submission and classifies errors into the
// misconception taxonomy. Correctness is always computed server-side
// from the answer key; the model only contributes reasoning.
type Diagnoser struct {
	Provider llm.Provider
}

func (d *Diagnoser) Run(ctx context.Context, exam *model.Exam, answers *model.AnswerSheet) (*model.Diagnosis, error) {
	ctx = llm.WithStage(ctx, "diagnoser")

	prompt := fmt.Sprintf("Exam:\n%s\n\nStudent answers:\n%s", mustJSON(exam), mustJSON(answers))
	var raw rawDiagnosis
	req := llm.Request{
		System:    diagnoserSystem,
		Messages:  userMessage(prompt),
		Schema:    diagnosisSchema,
		MaxTokens: defaultMaxTokens,
	}
	if err := GenerateObject(ctx, d.Provider, req, &raw, nil); err != nil {
		return nil, err
	}
	return normalize(exam, answers, &raw), nil
}

// Grade is the deterministic diagnosis: answers compared to the answer
// key, wrong answers tagged with the domain's default misconception.
// It serves as the offline stub and as the mock-test grading path.
func Grade(exam *model.Exam, answers *model.AnswerSheet) *model.Diagnosis {
	results := make([]model.DiagnosisEntry, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		got, answered := answers.Answers[q.ID]
		correct := answered && got == q.AnswerKey

		entry := model.DiagnosisEntry{ID: q.ID, Correct: correct}
		if correct {
			entry.Why = "Correct answer."
			entry.Confidence = 0.9
		} else {
			entry.MisconceptionID = model.DefaultMisconceptionForDomain(q.Domain)
			entry.Why = q.RationaleDraft
			entry.Confidence = 0.75
		}
		results = append(results, entry)
	}
	return &model.Diagnosis{Results: results, TopMisconceptions: rankTopMisconceptions(results)}
}

// normalize rebuilds the diagnosis from the exam and answer sheet. The
// model's verdict is never trusted for correctness; its "why" and
// confidence are kept only when its verdict agrees with ours.
func normalize(exam *model.Exam, answers *model.AnswerSheet, raw *rawDiagnosis) *model.Diagnosis {
	byID := make(map[string]*rawDiagnosisEntry, len(raw.Results))
	for i := range raw.Results {
		if raw.Results[i].ID != "" {
			byID[raw.Results[i].ID] = &raw.Results[i]
		}
	}

	results := make([]model.DiagnosisEntry, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		got, answered := answers.Answers[q.ID]
		correct := answered && got == q.AnswerKey

		defaultConfidence := 0.75
		if correct {
			defaultConfidence = 0.9
		}

		var mr rawDiagnosisEntry
		if e, ok := byID[q.ID]; ok {
			mr = *e
		}

		modelCorrect, hasVerdict := mr.Correct.(bool)
		trust := !hasVerdict || modelCorrect == correct

		entry := model.DiagnosisEntry{ID: q.ID, Correct: correct}

		why, _ := mr.Why.(string)
		why = strings.TrimSpace(why)
		if !trust || why == "" {
			why = defaultWhy(q, got, answered, correct)
		}
		entry.Why = why

		if !correct {
			mid, _ := mr.MisconceptionID.(string)
			entry.MisconceptionID = normalizeMisconception(model.MisconceptionID(mid), q.Domain)
		}

		if trust {
			entry.Confidence = coerceConfidence(mr.Confidence, defaultConfidence)
		} else {
			entry.Confidence = defaultConfidence
		}
		results = append(results, entry)
	}

	return &model.Diagnosis{Results: results, TopMisconceptions: rankTopMisconceptions(results)}
}

func defaultWhy(q model.Question, got int, answered, correct bool) string {
	if correct {
		return "Correct answer selected."
	}
	if !answered {
		return fmt.Sprintf("No answer provided. Correct answer is choice %d.", q.AnswerKey+1)
	}
	return fmt.Sprintf("Selected choice %d; correct is choice %d.", got+1, q.AnswerKey+1)
}

func normalizeMisconception(id model.MisconceptionID, domain string) model.MisconceptionID {
	if model.ValidMisconception(id) {
		return id
	}
	return model.DefaultMisconceptionForDomain(domain)
}

func coerceConfidence(v any, fallback float64) float64 {
	var c float64
	switch val := v.(type) {
	case float64:
		c = val
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fallback
		}
		c = parsed
	default:
		return fallback
	}
	return min(max(c, 0), 1)
}

// rankTopMisconceptions orders misconceptions by occurrence count, ties
// broken by first appearance in the results.
func rankTopMisconceptions(results []model.DiagnosisEntry) []model.MisconceptionID {
	counts := make(map[model.MisconceptionID]int)
	firstSeen := make(map[model.MisconceptionID]int)
	order := make([]model.MisconceptionID, 0)
	for i, r := range results {
		if r.Correct || r.MisconceptionID == "" {
			continue
		}
		if _, seen := counts[r.MisconceptionID]; !seen {
			firstSeen[r.MisconceptionID] = i
			order = append(order, r.MisconceptionID)
		}
		counts[r.MisconceptionID]++
	}
	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return firstSeen[order[a]] < firstSeen[order[b]]
	})
	return order
}
