// Package pipeline sequences the tutoring stages: plan, examine,
// diagnose, ground, coach. It owns per-stage fallback policy (one
// parsed-and-repaired model attempt, then a deterministic stub plus a
// warning), dispatches on session mode, and performs the single state
// write at session end. A session never fails because a model
// misbehaved; it fails only on invalid caller input or a dead store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudtutor/cloudtutor/internal/agents"
	"github.com/cloudtutor/cloudtutor/internal/grounding"
	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/mocktest"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/state"
)

// Config wires an Orchestrator.
type Config struct {
	Provider llm.Provider
	Verifier *grounding.Verifier
	Store    state.Store

	// Offline substitutes every stage with its deterministic stub and
	// bypasses the tool gate and document cache entirely. State
	// transitions are identical to online mode.
	Offline bool

	Logger *slog.Logger
}

// Orchestrator runs sessions. One instance serves all users; it holds
// no per-session state.
type Orchestrator struct {
	planner   *agents.Planner
	examiner  *agents.Examiner
	diagnoser *agents.Diagnoser
	coach     *agents.Coach
	verifier  *grounding.Verifier
	store     state.Store
	offline   bool
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		planner:   &agents.Planner{Provider: cfg.Provider},
		examiner:  &agents.Examiner{Provider: cfg.Provider},
		diagnoser: &agents.Diagnoser{Provider: cfg.Provider},
		coach:     &agents.Coach{Provider: cfg.Provider},
		verifier:  cfg.Verifier,
		store:     cfg.Store,
		offline:   cfg.Offline,
		logger:    logger,
		now:       time.Now,
	}
}

// StartResult is the first half of a session: the issued exam and the
// plan behind it. No state has been written when this returns.
type StartResult struct {
	UserID   string              `json:"user_id"`
	Mode     model.Mode          `json:"mode"`
	Warnings []string            `json:"warnings"`
	Plan     *model.Plan         `json:"plan"`
	Exam     *model.Exam         `json:"exam"`
	State    *model.StudentState `json:"state"`
}

// SubmitResult is the second half: diagnosis, grounded explanations,
// coaching, and the state as persisted.
type SubmitResult struct {
	UserID    string                      `json:"user_id"`
	Warnings  []string                    `json:"warnings"`
	Diagnosis *model.Diagnosis            `json:"diagnosis"`
	Grounded  []model.GroundedExplanation `json:"grounded"`
	Coaching  *model.Coaching             `json:"coaching"`
	State     *model.StudentState         `json:"state"`
}

// Start loads the user's state and produces a plan and exam. Nothing is
// persisted; aborting before Submit leaves no trace.
func (o *Orchestrator) Start(ctx context.Context, userID string, mode model.Mode, focus []string, minutes int) (*StartResult, error) {
	if !model.ValidMode(mode) {
		return nil, &model.ValidationError{Field: "mode", Msg: fmt.Sprintf("unknown session mode %q", mode)}
	}

	st, err := o.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if minutes > 0 {
		st.PreferredMinutes = minutes
	}

	res := &StartResult{
		UserID:   userID,
		Mode:     mode,
		Warnings: []string{},
		State:    st,
	}

	if mode == model.ModeMockTest {
		if len(focus) > 0 {
			res.Warnings = append(res.Warnings, "Focus topics are ignored in mock_test mode.")
		}
		res.Plan, res.Exam = mocktest.BuildSession()
		return res, nil
	}

	res.Plan = runStage(o, "Planner", &res.Warnings,
		func() (*model.Plan, error) { return o.planner.Run(ctx, st, focus) },
		agents.StubPlan,
	)
	res.Exam = runStage(o, "Examiner", &res.Warnings,
		func() (*model.Exam, error) { return o.examiner.Run(ctx, res.Plan) },
		agents.StubExam,
	)
	return res, nil
}

// Submit grades the echoed exam, grounds and coaches in adaptive mode,
// and commits the single state write. Caller-input validation failures
// and store failures are the only errors; everything inside the stages
// degrades to stubs.
func (o *Orchestrator) Submit(ctx context.Context, userID string, exam *model.Exam, answers *model.AnswerSheet, mode model.Mode) (*SubmitResult, error) {
	if !model.ValidMode(mode) {
		return nil, &model.ValidationError{Field: "mode", Msg: fmt.Sprintf("unknown session mode %q", mode)}
	}
	// ValidateSubmission covers exam structure too; a tampered echo or a
	// sheet referencing unknown questions is fatal before any grading.
	if err := model.ValidateSubmission(exam, answers); err != nil {
		return nil, err
	}

	st, err := o.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &SubmitResult{
		UserID:   userID,
		Warnings: []string{},
		Grounded: []model.GroundedExplanation{},
		State:    st,
	}

	if mode == model.ModeMockTest {
		// Fast path: deterministic grading only, straight to summarizing.
		res.Diagnosis = agents.Grade(exam, answers)
		res.Coaching = &model.Coaching{LessonPoints: []string{}, MicroDrills: []model.MicroDrill{}}
	} else {
		res.Diagnosis = runStage(o, "Diagnoser", &res.Warnings,
			func() (*model.Diagnosis, error) { return o.diagnoser.Run(ctx, exam, answers) },
			func() *model.Diagnosis { return agents.Grade(exam, answers) },
		)
		res.Grounded = o.groundWrongAnswers(ctx, exam, res.Diagnosis, &res.Warnings)
		res.Coaching = runStage(o, "Coach", &res.Warnings,
			func() (*model.Coaching, error) { return o.coach.Run(ctx, res.Diagnosis, res.Grounded) },
			func() *model.Coaching { return agents.StubCoaching(res.Diagnosis) },
		)
	}

	domainOf := make(map[string]string, len(exam.Questions))
	for _, q := range exam.Questions {
		domainOf[q.ID] = q.Domain
	}
	st.ApplyDiagnosis(res.Diagnosis, domainOf, o.now())

	// The one and only state write of the session.
	if err := o.store.Save(ctx, userID, st); err != nil {
		return nil, err
	}
	return res, nil
}

// groundWrongAnswers produces one GroundedExplanation per wrong answer,
// in diagnosis order. Items are independent and run concurrently; a
// failed verification degrades to the stub for that question only.
func (o *Orchestrator) groundWrongAnswers(ctx context.Context, exam *model.Exam, diag *model.Diagnosis, warnings *[]string) []model.GroundedExplanation {
	byID := make(map[string]model.Question, len(exam.Questions))
	for _, q := range exam.Questions {
		byID[q.ID] = q
	}

	type wrongItem struct {
		question model.Question
		entry    model.DiagnosisEntry
	}
	wrong := make([]wrongItem, 0, len(diag.Results))
	for _, r := range diag.Results {
		if r.Correct {
			continue
		}
		if q, ok := byID[r.ID]; ok {
			wrong = append(wrong, wrongItem{question: q, entry: r})
		}
	}
	if len(wrong) == 0 {
		return []model.GroundedExplanation{}
	}

	grounded := make([]model.GroundedExplanation, len(wrong))
	itemWarnings := make([]string, len(wrong))

	if o.offline || o.verifier == nil {
		for i, w := range wrong {
			grounded[i] = *grounding.Stub(w.question)
		}
		return grounded
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range wrong {
		g.Go(func() error {
			item, err := o.verifier.Verify(gctx, w.question, w.entry)
			if err != nil {
				o.logger.Warn("grounding failed, using fallback",
					"question_id", w.question.ID, "error", err)
				itemWarnings[i] = fmt.Sprintf(
					"Grounding Q%s failed; used deterministic fallback. (%s)",
					w.question.ID, summarize(err))
				item = grounding.Stub(w.question)
			}
			grounded[i] = *item
			return nil
		})
	}
	// Goroutines only write their own slot and never return an error.
	_ = g.Wait()

	for _, w := range itemWarnings {
		if w != "" {
			*warnings = append(*warnings, w)
		}
	}
	return grounded
}

// runStage executes one model-backed stage with the fallback policy:
// offline goes straight to the stub; online failure (the agent already
// spent its repair attempt) logs, warns and stubs.
func runStage[T any](o *Orchestrator, stage string, warnings *[]string, online func() (T, error), stub func() T) T {
	if o.offline {
		return stub()
	}
	v, err := online()
	if err == nil {
		return v
	}
	o.logger.Warn("stage failed, using fallback", "stage", stage, "error", err)
	*warnings = append(*warnings, fmt.Sprintf(
		"%s failed; used deterministic fallback. (%s)", stage, summarize(err)))
	return stub()
}

// summarize collapses an error to one bounded line fit for a warning.
func summarize(err error) string {
	raw := strings.Join(strings.Fields(err.Error()), " ")
	if len(raw) > 240 {
		return strings.TrimSpace(raw[:237]) + "..."
	}
	return raw
}
