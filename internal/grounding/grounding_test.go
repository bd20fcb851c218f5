package grounding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudtutor/cloudtutor/internal/doccache"
	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/toolpolicy"
)

func TestValidateCitation(t *testing.T) {
	cases := []struct {
		name     string
		citation model.Citation
		wantErr  bool
	}{
		{
			name: "valid",
			citation: model.Citation{
				Title:   "Shared responsibility in the cloud",
				URL:     "https://learn.microsoft.com/en-us/azure/security/fundamentals/shared-responsibility",
				Snippet: "Responsibilities vary by service type.",
			},
		},
		{
			name: "subdomain allowed",
			citation: model.Citation{
				Title:   "Doc",
				URL:     "https://docs.learn.microsoft.com/page",
				Snippet: "snippet",
			},
		},
		{
			name: "http rejected",
			citation: model.Citation{
				Title:   "Doc",
				URL:     "http://learn.microsoft.com/page",
				Snippet: "snippet",
			},
			wantErr: true,
		},
		{
			name: "wrong host rejected",
			citation: model.Citation{
				Title:   "Doc",
				URL:     "https://example.com/page",
				Snippet: "snippet",
			},
			wantErr: true,
		},
		{
			name: "lookalike host rejected",
			citation: model.Citation{
				Title:   "Doc",
				URL:     "https://notlearn.microsoft.com/page",
				Snippet: "snippet",
			},
			wantErr: true,
		},
		{
			name: "empty title rejected",
			citation: model.Citation{
				Title:   "  ",
				URL:     "https://learn.microsoft.com/page",
				Snippet: "snippet",
			},
			wantErr: true,
		},
		{
			name: "long snippet rejected",
			citation: model.Citation{
				Title:   "Doc",
				URL:     "https://learn.microsoft.com/page",
				Snippet: "one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twentyone",
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCitation(tc.citation)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

type fakeSearcher struct {
	results []SearchResult
	err     error
}

func (f fakeSearcher) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	return f.results, f.err
}

const docURL = "https://learn.microsoft.com/en-us/azure/security/fundamentals/shared-responsibility"

func wrongQuestion() model.Question {
	return model.Question{
		ID:             "q1",
		Domain:         "Cloud Concepts",
		Stem:           "Who owns the data in SaaS?",
		Choices:        []string{"a", "b"},
		AnswerKey:      1,
		RationaleDraft: "The customer always owns the data.",
	}
}

func wrongEntry() model.DiagnosisEntry {
	return model.DiagnosisEntry{
		ID:              "q1",
		Correct:         false,
		MisconceptionID: model.MisconceptionSRM,
		Why:             "Selected choice 1; correct is choice 2.",
		Confidence:      0.75,
	}
}

func newVerifier(provider llm.Provider, searcher Searcher, fetch doccache.Fetcher) *Verifier {
	return &Verifier{
		Provider: provider,
		Gate:     toolpolicy.NewGate(),
		Cache:    doccache.New(doccache.NewMemoryBackend(), fetch),
		Searcher: searcher,
	}
}

func TestVerifyProducesCitedExplanation(t *testing.T) {
	queryResp := `{"query": "shared responsibility model"}`
	draftResp := `{
		"question_id": "ignored-by-server",
		"explanation": "The customer retains ownership of data in every service model.",
		"citations": [{
			"title": "Shared responsibility in the cloud",
			"url": "` + docURL + `",
			"snippet": "You always retain responsibility for your data."
		}]
	}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(queryResp)},
		llm.MockResponse{Content: json.RawMessage(draftResp)},
	)
	v := newVerifier(mock,
		fakeSearcher{results: []SearchResult{{Title: "Shared responsibility in the cloud", URL: docURL}}},
		func(context.Context, string) (string, error) { return "doc body", nil },
	)

	g, err := v.Verify(context.Background(), wrongQuestion(), wrongEntry())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !g.Grounded() {
		t.Fatal("expected a grounded explanation")
	}
	if g.QuestionID != "q1" {
		t.Fatalf("question id = %q, model's echo must be overridden", g.QuestionID)
	}
	if g.Explanation == model.InsufficientEvidence {
		t.Fatal("unexpected insufficient evidence")
	}
	if len(g.Citations) != 1 || g.Citations[0].URL != docURL {
		t.Fatalf("citations = %+v", g.Citations)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("model calls = %d, want 2 (query + draft)", mock.CallCount())
	}
}

func TestVerifyDropsInventedCitations(t *testing.T) {
	queryResp := `{"query": "shared responsibility model"}`
	draftResp := `{
		"question_id": "q1",
		"explanation": "Some explanation.",
		"citations": [{
			"title": "Made up",
			"url": "https://learn.microsoft.com/not-a-candidate",
			"snippet": "fabricated"
		}]
	}`
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(queryResp)},
		llm.MockResponse{Content: json.RawMessage(draftResp)},
	)
	v := newVerifier(mock,
		fakeSearcher{results: []SearchResult{{Title: "Real doc", URL: docURL}}},
		func(context.Context, string) (string, error) { return "doc body", nil },
	)

	g, err := v.Verify(context.Background(), wrongQuestion(), wrongEntry())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if g.Grounded() {
		t.Fatalf("invented citation must not survive: %+v", g.Citations)
	}
	if g.Explanation != model.InsufficientEvidence {
		t.Fatalf("explanation = %q, want insufficient-evidence marker", g.Explanation)
	}
}

func TestVerifyEmptySearchShortCircuits(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"query": "anything"}`)},
	)
	v := newVerifier(mock, fakeSearcher{}, func(context.Context, string) (string, error) {
		t.Fatal("fetch must not run without candidates")
		return "", nil
	})

	g, err := v.Verify(context.Background(), wrongQuestion(), wrongEntry())
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if g.Explanation != model.InsufficientEvidence || g.Grounded() {
		t.Fatalf("unexpected result: %+v", g)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("model calls = %d, draft must be skipped", mock.CallCount())
	}
}

func TestVerifyFetchFailureSkipsCandidate(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"query": "anything"}`)},
	)
	v := newVerifier(mock,
		fakeSearcher{results: []SearchResult{{Title: "Dead link", URL: docURL}}},
		func(context.Context, string) (string, error) { return "", errors.New("404") },
	)

	g, err := v.Verify(context.Background(), wrongQuestion(), wrongEntry())
	if err != nil {
		t.Fatalf("fetch failure must not fail verification: %v", err)
	}
	if g.Explanation != model.InsufficientEvidence {
		t.Fatalf("explanation = %q, want insufficient-evidence marker", g.Explanation)
	}
}

func TestStubMatchesDomain(t *testing.T) {
	g := Stub(wrongQuestion())
	if !g.Grounded() {
		t.Fatal("stub must carry a citation")
	}
	if err := ValidateCitation(g.Citations[0]); err != nil {
		t.Fatalf("stub citation invalid: %v", err)
	}
	if g.QuestionID != "q1" {
		t.Fatalf("question id = %q", g.QuestionID)
	}

	unknown := wrongQuestion()
	unknown.Domain = "SLAs"
	if got := Stub(unknown); !got.Grounded() {
		t.Fatal("unknown domain must still get the fallback citation")
	}
}

func TestIndexSearcher(t *testing.T) {
	s := DefaultIndex()
	results, err := s.Search(context.Background(), "shared responsibility security", 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) == 0 || len(results) > 2 {
		t.Fatalf("results = %d, want 1-2", len(results))
	}
	if results[0].URL != docURL {
		t.Fatalf("top result = %q", results[0].URL)
	}

	none, err := s.Search(context.Background(), "zzzz qqqq", 3)
	if err != nil || len(none) != 0 {
		t.Fatalf("unmatched query: results=%v err=%v", none, err)
	}
}
