package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-object",
		Description: "A test object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"domain": map[string]any{"type": "string"},
				"count":  map[string]any{"type": "integer", "minimum": 0},
				"mode":   map[string]any{"type": "string", "enum": []any{"adaptive", "mock_test"}},
			},
			"required": []any{"domain", "count"},
		},
	}
}

func TestValidateResponse_Valid(t *testing.T) {
	raw := json.RawMessage(`{"domain":"Security","count":8,"mode":"adaptive"}`)
	if err := validateResponse(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateResponse_ValidWithoutOptional(t *testing.T) {
	raw := json.RawMessage(`{"domain":"Identity","count":10}`)
	if err := validateResponse(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateResponse_MissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"domain":"Governance"}`)
	err := validateResponse(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateResponse_WrongType(t *testing.T) {
	raw := json.RawMessage(`{"domain":"SLAs","count":"eight"}`)
	err := validateResponse(testSchema(), raw)
	if err == nil {
		t.Fatal("expected error for wrong type")
	}
}

func TestValidateResponse_NotJSON(t *testing.T) {
	raw := json.RawMessage(`Sure! Here is the JSON you asked for`)
	err := validateResponse(testSchema(), raw)
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %v", err)
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Fatalf("nil schema must skip validation, got: %v", err)
	}
}
