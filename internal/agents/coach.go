package agents

import (
	"context"
	"fmt"

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
)

const coachSystem = `You are the CoachAgent for an AZ-900 tutor.
Given a diagnosis and grounded explanations, produce lesson points and micro-drills.
Return ONLY a JSON object with "lesson_points" (concise, 1-2 sentences each) and
"micro_drills" (2-3 drill questions per misconception). Focus on the top
misconceptions from the diagnosis.`

var coachingSchema = &llm.Schema{
	Name:        "coaching",
	Description: "Lesson points and micro-drills targeting diagnosed misconceptions",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"lesson_points", "micro_drills"},
		"properties": map[string]any{
			"lesson_points": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"micro_drills": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"misconception_id", "questions"},
					"properties": map[string]any{
						"misconception_id": map[string]any{"type": "string"},
						"questions": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	},
}

// Coach turns a diagnosis plus grounded explanations into remediation.
type Coach struct {
	Provider llm.Provider
}

func (c *Coach) Run(ctx context.Context, diag *model.Diagnosis, grounded []model.GroundedExplanation) (*model.Coaching, error) {
	ctx = llm.WithStage(ctx, "coach")

	prompt := fmt.Sprintf(
		"Diagnosis:\n%s\n\nGrounded explanations:\n%s",
		mustJSON(diag), mustJSON(grounded),
	)
	var coaching model.Coaching
	req := llm.Request{
		System:    coachSystem,
		Messages:  userMessage(prompt),
		Schema:    coachingSchema,
		MaxTokens: defaultMaxTokens,
	}
	if err := GenerateObject(ctx, c.Provider, req, &coaching, nil); err != nil {
		return nil, err
	}
	return &coaching, nil
}

// StubCoaching builds deterministic remediation from the diagnosis alone:
// fixed lesson points plus two drills for each top misconception.
func StubCoaching(diag *model.Diagnosis) *model.Coaching {
	points := []string{
		"Review the shared responsibility model: the customer always owns the data.",
		"Availability Zones provide high availability within a single region, not across regions.",
		"Microsoft Entra ID is the central identity service (formerly Azure AD).",
	}

	top := diag.TopMisconceptions
	if len(top) > 3 {
		top = top[:3]
	}
	drills := make([]model.MicroDrill, 0, len(top))
	for _, mid := range top {
		drills = append(drills, model.MicroDrill{
			MisconceptionID: mid,
			Questions: []string{
				fmt.Sprintf("Explain the concept related to %s in your own words.", mid),
				fmt.Sprintf("Give a real-world example where %s confusion could cause issues.", mid),
			},
		})
	}
	return &model.Coaching{LessonPoints: points, MicroDrills: drills}
}
