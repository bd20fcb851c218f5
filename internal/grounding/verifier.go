package grounding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/agents"
	"github.com/cloudtutor/cloudtutor/internal/doccache"
	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/toolpolicy"
)

// candidateLimit bounds how many documents one question may pull in.
const candidateLimit = 3

// excerptLen is how much of a cached document the draft prompt sees.
const excerptLen = 400

const querySystem = `You are preparing a documentation search for an AZ-900 tutor.
Given a question the student got wrong and the diagnosed misconception, return
ONLY a JSON object with a short "query" for Microsoft Learn search.`

var querySchema = &llm.Schema{
	Name:        "search-query",
	Description: "Documentation search query for a missed question",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"query"},
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "minLength": 1},
		},
	},
}

const draftSystem = `You are the GroundingVerifierAgent for an AZ-900 tutor.
For a question the student got wrong, produce a grounded explanation.
CRITICAL RULES:
- Cite ONLY the candidate documents you are given; never invent URLs.
- Every citation needs a non-empty "title", the candidate "url" and a
  "snippet" of at most 20 words taken from that document.
- Return ONLY a JSON object with "question_id", "explanation" and "citations".`

var groundedSchema = &llm.Schema{
	Name:        "grounded-explanation",
	Description: "Explanation with citations from approved documentation",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"question_id", "explanation", "citations"},
		"properties": map[string]any{
			"question_id": map[string]any{"type": "string"},
			"explanation": map[string]any{"type": "string"},
			"citations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"title", "url", "snippet"},
					"properties": map[string]any{
						"title":   map[string]any{"type": "string"},
						"url":     map[string]any{"type": "string"},
						"snippet": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

// Verifier grounds one wrongly answered question at a time. Every
// external step goes through the policy gate and the document cache;
// anything that cannot be verified collapses to the insufficient
// evidence result instead of an uncited explanation.
type Verifier struct {
	Provider llm.Provider
	Gate     *toolpolicy.Gate
	Cache    *doccache.Cache
	Searcher Searcher
	Logger   *slog.Logger
}

type candidate struct {
	Title   string
	URL     string
	Excerpt string
}

// Verify produces exactly one GroundedExplanation for the question. It
// returns an error only when a model call fails outright; evidence
// problems (denied tools, empty search, dead links, invalid citations)
// degrade to the insufficient-evidence result.
func (v *Verifier) Verify(ctx context.Context, q model.Question, entry model.DiagnosisEntry) (*model.GroundedExplanation, error) {
	ctx = llm.WithStage(ctx, "grounding")
	log := v.log().With("question_id", q.ID)

	query, err := v.searchQuery(ctx, q, entry)
	if err != nil {
		return nil, err
	}

	if d := v.Gate.Authorize(toolpolicy.ToolDocSearch, map[string]any{"query": query}); !d.Allowed {
		log.Warn("document search denied", "error", &toolpolicy.ToolDenied{Tool: d.Tool, Reason: d.Reason})
		return Insufficient(q.ID), nil
	}

	results, err := v.Searcher.Search(ctx, query, candidateLimit)
	if err != nil {
		log.Warn("document search failed", "query", query, "error", err)
		return Insufficient(q.ID), nil
	}

	candidates := v.fetchCandidates(ctx, log, results)
	if len(candidates) == 0 {
		log.Info("no candidate documents", "query", query)
		return Insufficient(q.ID), nil
	}

	drafted, err := v.draft(ctx, q, entry, candidates)
	if err != nil {
		return nil, err
	}

	kept := keepValidCitations(drafted.Citations, candidates)
	if len(kept) == 0 || strings.TrimSpace(drafted.Explanation) == "" {
		log.Info("no citation survived validation", "offered", len(drafted.Citations))
		return Insufficient(q.ID), nil
	}

	return &model.GroundedExplanation{
		QuestionID:  q.ID,
		Explanation: drafted.Explanation,
		Citations:   kept,
	}, nil
}

func (v *Verifier) searchQuery(ctx context.Context, q model.Question, entry model.DiagnosisEntry) (string, error) {
	prompt := fmt.Sprintf(
		"Question (%s): %s\nDiagnosed misconception: %s\nWhy: %s",
		q.Domain, q.Stem, entry.MisconceptionID, entry.Why,
	)
	var out struct {
		Query string `json:"query"`
	}
	req := llm.Request{
		System:    querySystem,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:    querySchema,
		MaxTokens: 256,
	}
	if err := agents.GenerateObject(ctx, v.Provider, req, &out, nil); err != nil {
		return "", err
	}
	return out.Query, nil
}

// fetchCandidates resolves search results into cached documents. A fetch
// failure skips that candidate only.
func (v *Verifier) fetchCandidates(ctx context.Context, log *slog.Logger, results []SearchResult) []candidate {
	candidates := make([]candidate, 0, len(results))
	for _, r := range results {
		if d := v.Gate.Authorize(toolpolicy.ToolDocFetch, map[string]any{"url": r.URL}); !d.Allowed {
			log.Warn("document fetch denied", "url", r.URL, "error", &toolpolicy.ToolDenied{Tool: d.Tool, Reason: d.Reason})
			continue
		}
		doc, err := v.Cache.GetOrFetch(ctx, r.URL)
		if err != nil {
			log.Warn("candidate fetch failed", "url", r.URL, "error", err)
			continue
		}
		candidates = append(candidates, candidate{
			Title:   r.Title,
			URL:     r.URL,
			Excerpt: excerpt(doc.Content),
		})
	}
	return candidates
}

func (v *Verifier) draft(ctx context.Context, q model.Question, entry model.DiagnosisEntry, candidates []candidate) (*model.GroundedExplanation, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question (%s): %s\n", q.Domain, q.Stem)
	fmt.Fprintf(&b, "Correct answer: choice %d\n", q.AnswerKey+1)
	fmt.Fprintf(&b, "Diagnosis: %s (%s)\n\nCandidate documents:\n", entry.Why, entry.MisconceptionID)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, c.Title, c.URL, c.Excerpt)
	}

	var out model.GroundedExplanation
	req := llm.Request{
		System:    draftSystem,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Schema:    groundedSchema,
		MaxTokens: 1024,
	}
	if err := agents.GenerateObject(ctx, v.Provider, req, &out, nil); err != nil {
		return nil, err
	}
	// The model's echo of the id is not trusted.
	out.QuestionID = q.ID
	return &out, nil
}

// keepValidCitations drops citations that fail validation or reference
// URLs outside the candidate set.
func keepValidCitations(citations []model.Citation, candidates []candidate) []model.Citation {
	allowed := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		allowed[c.URL] = struct{}{}
	}

	kept := make([]model.Citation, 0, len(citations))
	for _, c := range citations {
		if _, ok := allowed[c.URL]; !ok {
			continue
		}
		if err := ValidateCitation(c); err != nil {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Insufficient is the zero-citation result: marker text, no citations.
func Insufficient(questionID string) *model.GroundedExplanation {
	return &model.GroundedExplanation{
		QuestionID:  questionID,
		Explanation: model.InsufficientEvidence,
	}
}

func excerpt(content string) string {
	if len(content) <= excerptLen {
		return content
	}
	return content[:excerptLen]
}

func (v *Verifier) log() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}
