package grounding

import (
	"fmt"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

var stubCitations = map[string]model.Citation{
	"Cloud Concepts": {
		Title:   "Shared responsibility in the cloud",
		URL:     "https://learn.microsoft.com/en-us/azure/security/fundamentals/shared-responsibility",
		Snippet: "Responsibilities vary by service type: SaaS, PaaS, IaaS.",
	},
	"Azure Architecture": {
		Title:   "Azure regions and availability zones",
		URL:     "https://learn.microsoft.com/en-us/azure/reliability/availability-zones-overview",
		Snippet: "Availability Zones are unique physical locations within a region.",
	},
	"Security": {
		Title:   "What is Microsoft Entra ID?",
		URL:     "https://learn.microsoft.com/en-us/entra/fundamentals/whatis",
		Snippet: "Cloud-based identity and access management service.",
	},
}

// Stub is the deterministic grounded explanation used offline and when
// the live verifier fails: the question's own rationale plus one fixed
// citation matched to its domain.
func Stub(q model.Question) *model.GroundedExplanation {
	cite, ok := stubCitations[q.Domain]
	if !ok {
		cite = stubCitations["Cloud Concepts"]
	}
	return &model.GroundedExplanation{
		QuestionID: q.ID,
		Explanation: fmt.Sprintf(
			"The correct answer is choice %d. %s",
			q.AnswerKey+1, q.RationaleDraft,
		),
		Citations: []model.Citation{cite},
	}
}
