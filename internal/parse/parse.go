// Package parse extracts one well-formed JSON object from raw model text.
//
// Model output arrives wrapped in markdown fences, prefixed with prose, or
// occasionally not as JSON at all. This package is the single defensive
// boundary: downstream stages only ever see objects that passed both JSON
// parsing and schema validation.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/llm"
)

// MalformedOutput reports model text from which no schema-valid JSON
// object could be extracted. The pipeline resolves it with one repair
// attempt, then a stub fallback; it never surfaces as a session failure.
type MalformedOutput struct {
	Raw string
	Err error
}

func (e *MalformedOutput) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutput) Unwrap() error { return e.Err }

var (
	fenceRe  = regexp.MustCompile("```(?:json)?")
	objectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Extract returns the first JSON object found in raw, stripping markdown
// code fences and surrounding prose. Pure transform, no side effects.
func Extract(raw string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	// The whole string first.
	if looksLikeObject(cleaned) && json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), nil
	}

	// Then the widest { ... } span.
	if match := objectRe.FindString(cleaned); match != "" && json.Valid([]byte(match)) {
		return json.RawMessage(match), nil
	}

	return nil, &MalformedOutput{
		Raw: raw,
		Err: fmt.Errorf("no JSON object found"),
	}
}

// Object extracts a JSON object from raw and validates it against schema.
// A nil schema skips validation.
func Object(raw string, schema *llm.Schema) (json.RawMessage, error) {
	obj, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	if schema != nil {
		if err := schema.Validate(obj); err != nil {
			return nil, &MalformedOutput{Raw: raw, Err: err}
		}
	}
	return obj, nil
}

// Into extracts, validates and unmarshals raw into out. out must be a
// pointer. Decoding failure after schema validation still counts as
// malformed output: the caller never sees a partially populated value.
func Into(raw string, schema *llm.Schema, out any) error {
	obj, err := Object(raw, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return &MalformedOutput{Raw: raw, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// RepairPrompt builds the one-shot correction message the pipeline sends
// when a stage's first response failed to parse.
func RepairPrompt(schema *llm.Schema) string {
	name := "the requested schema"
	if schema != nil {
		name = fmt.Sprintf("the %q schema", schema.Name)
	}
	return fmt.Sprintf(
		"Your previous output was invalid. Return ONLY a single JSON object matching %s. No markdown fences, no prose.",
		name,
	)
}

func looksLikeObject(s string) bool {
	return strings.HasPrefix(s, "{")
}
