package toolpolicy

import "testing"

func TestAuthorize_AllowListed(t *testing.T) {
	gate := NewGate()
	for _, tool := range AllowedTools() {
		d := gate.Authorize(tool, nil)
		if !d.Allowed {
			t.Errorf("Authorize(%q) denied, want allowed", tool)
		}
		if d.Reason != "" {
			t.Errorf("Authorize(%q) reason = %q, want empty", tool, d.Reason)
		}
	}
}

func TestAuthorize_Normalization(t *testing.T) {
	gate := NewGate()
	cases := []string{
		"  document-search  ",
		"Document-Search",
		"DOCUMENT-FETCH",
		"\tcode-sample-search\n",
	}
	for _, tool := range cases {
		if d := gate.Authorize(tool, nil); !d.Allowed {
			t.Errorf("Authorize(%q) denied, want allowed after normalization", tool)
		}
	}
}

func TestAuthorize_DeniedWithFixedReason(t *testing.T) {
	gate := NewGate()
	cases := []string{
		"",
		"shell-exec",
		"document_search", // underscore, not hyphen
		"document-search-v2",
		"fetch",
	}
	for _, tool := range cases {
		d := gate.Authorize(tool, nil)
		if d.Allowed {
			t.Errorf("Authorize(%q) allowed, want denied", tool)
		}
		if d.Reason != DenyReason {
			t.Errorf("Authorize(%q) reason = %q, want %q", tool, d.Reason, DenyReason)
		}
	}
}

func TestAuthorize_Deterministic(t *testing.T) {
	gate := NewGate()
	first := gate.Authorize("rm-rf", nil)
	for range 10 {
		if got := gate.Authorize("rm-rf", nil); got != first {
			t.Fatal("Authorize must be deterministic")
		}
	}
}

func TestToolDeniedAdaptsDecision(t *testing.T) {
	gate := NewGate()
	d := gate.Authorize("shell-exec", nil)
	if d.Allowed {
		t.Fatal("shell-exec must be denied")
	}

	err := &ToolDenied{Tool: d.Tool, Reason: d.Reason}
	want := `tool "shell-exec" denied: tool not permitted`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
