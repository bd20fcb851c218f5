package parse

import (
	"errors"
	"strings"
	"testing"

	"github.com/cloudtutor/cloudtutor/internal/llm"
)

var planSchema = &llm.Schema{
	Name: "test-plan",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"domains":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"target_questions": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []any{"domains", "target_questions"},
	},
}

func TestExtract_PlainObject(t *testing.T) {
	obj, err := Extract(`{"domains":["Security"],"target_questions":8}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(obj) != `{"domains":["Security"],"target_questions":8}` {
		t.Fatalf("unexpected object: %s", obj)
	}
}

func TestExtract_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"domains\":[\"Security\"],\"target_questions\":8}\n```"
	if _, err := Extract(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtract_LeadingProse(t *testing.T) {
	raw := "Sure, here is your plan:\n{\"domains\":[\"Security\"],\"target_questions\":8}\nHope that helps!"
	if _, err := Extract(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtract_NoJSON(t *testing.T) {
	_, err := Extract("I could not produce a plan, sorry.")
	var malformed *MalformedOutput
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOutput, got: %v", err)
	}
}

func TestObject_SchemaRejects(t *testing.T) {
	raw := `{"domains":["Security"]}`
	_, err := Object(raw, planSchema)
	var malformed *MalformedOutput
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOutput for missing required field, got: %v", err)
	}
}

func TestInto_Valid(t *testing.T) {
	var out struct {
		Domains         []string `json:"domains"`
		TargetQuestions int      `json:"target_questions"`
	}
	raw := "prose before ```json\n{\"domains\":[\"Identity\",\"SLAs\"],\"target_questions\":10}``` prose after"
	if err := Into(raw, planSchema, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Domains) != 2 || out.TargetQuestions != 10 {
		t.Fatalf("unexpected decode: %+v", out)
	}
}

func TestInto_NeverPartial(t *testing.T) {
	var out struct {
		Domains         []string `json:"domains"`
		TargetQuestions int      `json:"target_questions"`
	}
	if err := Into(`{"domains": "not-an-array"`, planSchema, &out); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if out.Domains != nil {
		t.Fatalf("output must stay zeroed on failure, got: %+v", out)
	}
}

func TestRepairPrompt_NamesSchema(t *testing.T) {
	p := RepairPrompt(planSchema)
	if !strings.Contains(p, `"test-plan"`) {
		t.Fatalf("repair prompt %q does not name schema", p)
	}
}
