package agents

import (
	"context"
	"fmt"

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
)

const examinerSystem = `You are the ExaminerAgent for an AZ-900 certification tutor.
Given a study plan, generate a multiple-choice quiz of 8 to 12 questions.
Return ONLY a JSON object with a "questions" array. Each question has a unique
string "id", a "domain", a "stem", 2 to 6 "choices", a 0-based "answer_key"
pointing at the correct choice, and a brief "rationale_draft".
Cover domains according to the plan weights.`

var examSchema = &llm.Schema{
	Name:        "exam",
	Description: "Multiple-choice quiz generated from a study plan",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "domain", "stem", "choices", "answer_key"},
					"properties": map[string]any{
						"id":     map[string]any{"type": "string"},
						"domain": map[string]any{"type": "string"},
						"stem":   map[string]any{"type": "string"},
						"choices": map[string]any{
							"type":     "array",
							"minItems": 2,
							"maxItems": 6,
							"items":    map[string]any{"type": "string"},
						},
						"answer_key":      map[string]any{"type": "integer", "minimum": 0},
						"rationale_draft": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// Examiner generates the session's exam from a study plan.
type Examiner struct {
	Provider llm.Provider
}

func (e *Examiner) Run(ctx context.Context, plan *model.Plan) (*model.Exam, error) {
	ctx = llm.WithStage(ctx, "examiner")

	var exam model.Exam
	req := llm.Request{
		System:    examinerSystem,
		Messages:  userMessage(fmt.Sprintf("Study plan:\n%s", mustJSON(plan))),
		Schema:    examSchema,
		MaxTokens: defaultMaxTokens * 2,
	}
	// Structural checks the JSON Schema cannot express (unique ids, answer
	// key in range) ride the same repair path as parse failures.
	if err := GenerateObject(ctx, e.Provider, req, &exam, func() error {
		return model.ValidateExam(&exam)
	}); err != nil {
		return nil, err
	}
	return &exam, nil
}

// StubExam is the fixed eight-question fallback exam.
func StubExam() *model.Exam {
	return &model.Exam{Questions: []model.Question{
		{
			ID:     "1",
			Domain: "Cloud Concepts",
			Stem:   "Which cloud model allows organizations to share responsibility for security with the cloud provider?",
			Choices: []string{
				"A) Private cloud only",
				"B) Shared responsibility model",
				"C) On-premises model",
				"D) Hybrid DNS model",
			},
			AnswerKey:      1,
			RationaleDraft: "The shared responsibility model divides security tasks between provider and customer.",
		},
		{
			ID:     "2",
			Domain: "Azure Architecture",
			Stem:   "What is the primary purpose of Azure Availability Zones?",
			Choices: []string{
				"A) Reduce subscription costs",
				"B) Provide high availability within a region",
				"C) Replace Azure regions entirely",
				"D) Encrypt data at rest",
			},
			AnswerKey:      1,
			RationaleDraft: "Availability Zones are physically separate locations within a region for HA.",
		},
		{
			ID:     "3",
			Domain: "Security",
			Stem:   "Which Azure service provides centralized identity management?",
			Choices: []string{
				"A) Azure Firewall",
				"B) Microsoft Entra ID",
				"C) Azure Key Vault",
				"D) Azure Monitor",
			},
			AnswerKey:      1,
			RationaleDraft: "Microsoft Entra ID (formerly Azure AD) is the identity service.",
		},
		{
			ID:     "4",
			Domain: "Cloud Concepts",
			Stem:   "In the shared responsibility model, who is always responsible for the data?",
			Choices: []string{
				"A) Microsoft",
				"B) The customer",
				"C) Both equally",
				"D) Neither, it is automated",
			},
			AnswerKey:      1,
			RationaleDraft: "The customer is always responsible for their data, regardless of cloud model.",
		},
		{
			ID:     "5",
			Domain: "Azure Architecture",
			Stem:   "What is a 'region pair' in Azure?",
			Choices: []string{
				"A) Two VMs in the same availability set",
				"B) Two geographically close regions for disaster recovery",
				"C) A primary and secondary database",
				"D) Two network interfaces on one VM",
			},
			AnswerKey:      1,
			RationaleDraft: "Region pairs are two regions within the same geography for DR.",
		},
		{
			ID:     "6",
			Domain: "Cloud Concepts",
			Stem:   "Which cloud service model provides the most control over the underlying infrastructure?",
			Choices: []string{
				"A) SaaS",
				"B) PaaS",
				"C) IaaS",
				"D) FaaS",
			},
			AnswerKey:      2,
			RationaleDraft: "IaaS gives the most control over VMs, networking, storage.",
		},
		{
			ID:     "7",
			Domain: "Security",
			Stem:   "What does Azure RBAC stand for?",
			Choices: []string{
				"A) Resource-Based Access Control",
				"B) Role-Based Access Control",
				"C) Region-Based Access Configuration",
				"D) Risk-Based Authentication Check",
			},
			AnswerKey:      1,
			RationaleDraft: "Azure RBAC = Role-Based Access Control.",
		},
		{
			ID:     "8",
			Domain: "Azure Architecture",
			Stem:   "Which component is NOT part of Azure's global infrastructure?",
			Choices: []string{
				"A) Regions",
				"B) Availability Zones",
				"C) Edge Locations",
				"D) Subscriptions",
			},
			AnswerKey:      3,
			RationaleDraft: "Subscriptions are a billing/management construct, not physical infrastructure.",
		},
	}}
}
