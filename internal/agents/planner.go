package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
)

const plannerSystem = `You are the PlannerAgent for an AZ-900 certification tutor.
Given the student's current state and optional focus topics, produce a study plan.
Return ONLY a JSON object with "domains", "weights", "target_questions" (8-12)
and "next_focus". Domains must be from: Cloud Concepts, Azure Architecture,
Azure Services, Security, Identity, Governance, Cost Management, SLAs.`

var planSchema = &llm.Schema{
	Name:        "study-plan",
	Description: "Study plan with domain weights and next focus areas",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"domains", "weights", "target_questions", "next_focus"},
		"properties": map[string]any{
			"domains": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
			"weights": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "number"},
			},
			"target_questions": map[string]any{
				"type":    "integer",
				"minimum": 8,
				"maximum": 12,
			},
			"next_focus": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
}

// Planner chooses the domains and question mix for a session from the
// student's accumulated state.
type Planner struct {
	Provider llm.Provider
}

func (p *Planner) Run(ctx context.Context, state *model.StudentState, focus []string) (*model.Plan, error) {
	ctx = llm.WithStage(ctx, "planner")

	var plan model.Plan
	req := llm.Request{
		System:    plannerSystem,
		Messages:  userMessage(plannerPrompt(state, focus)),
		Schema:    planSchema,
		MaxTokens: defaultMaxTokens,
	}
	if err := GenerateObject(ctx, p.Provider, req, &plan, nil); err != nil {
		return nil, err
	}
	return &plan, nil
}

func plannerPrompt(state *model.StudentState, focus []string) string {
	var b strings.Builder
	b.WriteString("Student state:\n")

	if len(state.DomainStats) > 0 {
		scores := make(map[string]float64, len(state.DomainStats))
		for domain, stat := range state.DomainStats {
			scores[domain] = stat.Score
		}
		enc, _ := json.Marshal(scores)
		fmt.Fprintf(&b, "Domain scores: %s\n", enc)
	}
	if len(state.Misconceptions) > 0 {
		ids := make([]string, 0, len(state.Misconceptions))
		for _, m := range state.Misconceptions {
			ids = append(ids, string(m.MisconceptionID))
		}
		fmt.Fprintf(&b, "Past misconceptions: %s\n", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&b, "Preferred daily minutes: %d\n", state.PreferredMinutes)

	if len(focus) > 0 {
		fmt.Fprintf(&b, "Focus topics requested: %s", strings.Join(focus, ", "))
	} else {
		b.WriteString("No specific focus requested, balance across domains.")
	}
	return b.String()
}

// StubPlan is the deterministic plan used offline and when the model's
// output could not be repaired.
func StubPlan() *model.Plan {
	return &model.Plan{
		Domains: []string{"Cloud Concepts", "Azure Architecture", "Security"},
		Weights: map[string]float64{
			"Cloud Concepts":     0.4,
			"Azure Architecture": 0.35,
			"Security":           0.25,
		},
		TargetQuestions: 8,
		NextFocus:       []string{"Shared Responsibility Model", "Availability Zones"},
	}
}
