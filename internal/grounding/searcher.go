package grounding

import (
	"context"
	"strings"
)

// SearchResult is one candidate document returned by a search.
type SearchResult struct {
	Title string
	URL   string
}

// Searcher finds candidate documents for a query. Implementations must
// only ever return URLs on the approved host; the verifier validates
// them again regardless.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// IndexSearcher searches a fixed in-process index of curated pages by
// naive keyword match. It is the default wiring; a remote documentation
// search service can replace it without touching the verifier.
type IndexSearcher struct {
	Entries []IndexEntry
}

// IndexEntry is one curated page plus the keywords that surface it.
type IndexEntry struct {
	Title    string
	URL      string
	Keywords []string
}

// DefaultIndex covers the certification topics the tutor examines most.
func DefaultIndex() *IndexSearcher {
	return &IndexSearcher{Entries: []IndexEntry{
		{
			Title:    "Shared responsibility in the cloud",
			URL:      "https://learn.microsoft.com/en-us/azure/security/fundamentals/shared-responsibility",
			Keywords: []string{"shared", "responsibility", "security", "saas", "paas", "iaas"},
		},
		{
			Title:    "Azure regions and availability zones",
			URL:      "https://learn.microsoft.com/en-us/azure/reliability/availability-zones-overview",
			Keywords: []string{"region", "availability", "zone", "resiliency", "datacenter"},
		},
		{
			Title:    "What is Microsoft Entra ID?",
			URL:      "https://learn.microsoft.com/en-us/entra/fundamentals/whatis",
			Keywords: []string{"identity", "entra", "authentication", "directory", "access"},
		},
		{
			Title:    "What is Azure Policy?",
			URL:      "https://learn.microsoft.com/en-us/azure/governance/policy/overview",
			Keywords: []string{"policy", "governance", "compliance", "audit"},
		},
		{
			Title:    "What is Azure Cost Management?",
			URL:      "https://learn.microsoft.com/en-us/azure/cost-management-billing/costs/overview-cost-management",
			Keywords: []string{"cost", "billing", "budget", "pricing", "spend"},
		},
		{
			Title:    "Describe cloud service types",
			URL:      "https://learn.microsoft.com/en-us/training/modules/describe-cloud-service-types/",
			Keywords: []string{"iaas", "paas", "saas", "service", "model", "cloud"},
		},
	}}
}

// Search scores entries by keyword overlap with the query and returns
// the best matches, capped at limit. A query matching nothing returns an
// empty slice, never an error.
func (s *IndexSearcher) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	words := strings.Fields(strings.ToLower(query))

	type scored struct {
		result SearchResult
		score  int
	}
	candidates := make([]scored, 0, len(s.Entries))
	for _, e := range s.Entries {
		score := 0
		for _, kw := range e.Keywords {
			for _, w := range words {
				if strings.Contains(w, kw) || strings.Contains(kw, w) {
					score++
				}
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{SearchResult{Title: e.Title, URL: e.URL}, score})
		}
	}

	// Insertion sort by score, stable on index order. The index is tiny.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
	}
	return results, nil
}
