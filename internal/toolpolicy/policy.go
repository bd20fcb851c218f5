// Package toolpolicy gates every external tool invocation behind a fixed
// allow-list. Only read-only reference tools are permitted; the gate is
// consulted before each call and nothing bypasses it, including tool
// results the model merely claims to have obtained.
package toolpolicy

import (
	"fmt"
	"strings"
)

// Allow-listed tool names.
const (
	ToolDocSearch        = "document-search"
	ToolDocFetch         = "document-fetch"
	ToolCodeSampleSearch = "code-sample-search"
)

// DenyReason is the fixed reason attached to every rejection.
const DenyReason = "tool not permitted"

var allowed = map[string]struct{}{
	ToolDocSearch:        {},
	ToolDocFetch:         {},
	ToolCodeSampleSearch: {},
}

// Decision is the outcome of an authorization check. Denial is a value,
// not an error: callers branch, they don't recover.
type Decision struct {
	Allowed bool
	Tool    string // normalized tool name
	Reason  string // empty when allowed
}

// ToolDenied adapts a deny decision into the error domain for callers
// that need to wrap it (the grounding verifier's short-circuit path).
type ToolDenied struct {
	Tool   string
	Reason string
}

func (e *ToolDenied) Error() string {
	return fmt.Sprintf("tool %q denied: %s", e.Tool, e.Reason)
}

// Gate validates tool invocations against the allow-list.
type Gate struct{}

// NewGate returns the policy gate. The allow-list is fixed at compile
// time; there is deliberately no way to extend it at runtime.
func NewGate() *Gate {
	return &Gate{}
}

// Authorize checks one tool invocation. The name is normalized (trimmed,
// case-folded) before comparison; anything not exactly matching an
// allow-listed entry afterwards is denied. Deterministic and
// side-effect-free.
func (g *Gate) Authorize(toolName string, _ map[string]any) Decision {
	normalized := Normalize(toolName)
	if _, ok := allowed[normalized]; ok {
		return Decision{Allowed: true, Tool: normalized}
	}
	return Decision{Allowed: false, Tool: normalized, Reason: DenyReason}
}

// Normalize trims surrounding whitespace and case-folds a tool name.
func Normalize(toolName string) string {
	return strings.ToLower(strings.TrimSpace(toolName))
}

// AllowedTools returns the allow-list in stable order, for logs and
// error messages.
func AllowedTools() []string {
	return []string{ToolDocSearch, ToolDocFetch, ToolCodeSampleSearch}
}
