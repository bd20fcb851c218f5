// Package model defines the typed contracts flowing between pipeline
// stages: plans, exams, answer sheets, diagnoses, grounded explanations
// and coaching, plus the persistent student state.
package model

// Mode selects the session variant. Immutable for a session's lifetime.
type Mode string

const (
	// ModeAdaptive runs the full five-stage pipeline.
	ModeAdaptive Mode = "adaptive"

	// ModeMockTest is the fast path: a large randomized exam, graded
	// deterministically, skipping grounding and coaching.
	ModeMockTest Mode = "mock_test"
)

// ValidMode reports whether m is a known session mode.
func ValidMode(m Mode) bool {
	return m == ModeAdaptive || m == ModeMockTest
}

// Plan is the study plan produced once per session, immutable afterward.
type Plan struct {
	Domains         []string           `json:"domains"`
	Weights         map[string]float64 `json:"weights"`
	TargetQuestions int                `json:"target_questions"`
	NextFocus       []string           `json:"next_focus"`
}

// Question is one multiple-choice item. AnswerKey is a 0-based index
// into Choices.
type Question struct {
	ID             string   `json:"id"`
	Domain         string   `json:"domain"`
	Stem           string   `json:"stem"`
	Choices        []string `json:"choices"`
	AnswerKey      int      `json:"answer_key"`
	RationaleDraft string   `json:"rationale_draft"`
}

// Exam is an ordered question sequence. Immutable once issued; callers
// echo it back verbatim on submission.
type Exam struct {
	Questions []Question `json:"questions"`
}

// AnswerSheet maps question id to the selected 0-based choice index.
// Unanswered questions are absent from the map.
type AnswerSheet struct {
	Answers map[string]int `json:"answers"`
}

// DiagnosisEntry is the per-question grading result. MisconceptionID is
// empty exactly when Correct is true.
type DiagnosisEntry struct {
	ID              string          `json:"id"`
	Correct         bool            `json:"correct"`
	MisconceptionID MisconceptionID `json:"misconception_id,omitempty"`
	Why             string          `json:"why"`
	Confidence      float64         `json:"confidence"`
}

// Diagnosis aggregates per-question results with a ranked misconception
// list (by frequency, ties broken by first occurrence).
type Diagnosis struct {
	Results           []DiagnosisEntry  `json:"results"`
	TopMisconceptions []MisconceptionID `json:"top_misconceptions"`
}

// MaxSnippetWords caps citation snippet length.
const MaxSnippetWords = 20

// Citation points at an approved reference document.
type Citation struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// InsufficientEvidence is the literal explanation text used when no
// citation survived validation. An explanation is never returned with
// zero citations unless it carries exactly this marker.
const InsufficientEvidence = "Insufficient evidence"

// GroundedExplanation is a per-question explanation whose every claim is
// backed by the listed citations.
type GroundedExplanation struct {
	QuestionID  string     `json:"question_id"`
	Explanation string     `json:"explanation"`
	Citations   []Citation `json:"citations"`
}

// Grounded reports whether the explanation carries at least one citation.
func (g GroundedExplanation) Grounded() bool {
	return len(g.Citations) > 0
}

// MicroDrill is a set of practice prompts for one misconception.
type MicroDrill struct {
	MisconceptionID MisconceptionID `json:"misconception_id"`
	Questions       []string        `json:"questions"`
}

// Coaching is the final remediation output.
type Coaching struct {
	LessonPoints []string     `json:"lesson_points"`
	MicroDrills  []MicroDrill `json:"micro_drills"`
}
