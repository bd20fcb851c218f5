// Package grounding produces citation-backed explanations for wrongly
// answered questions. Its one invariant: an explanation either carries
// at least one validated citation from the approved documentation host,
// or it is the literal insufficient-evidence marker. Nothing uncited
// reaches the learner.
package grounding

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cloudtutor/cloudtutor/internal/model"
)

// AllowedHost is the only host citations may point at. Subdomains of it
// are accepted, nothing else is.
const AllowedHost = "learn.microsoft.com"

// ValidateCitation checks one citation against the trust rules: https
// scheme, allow-listed host, non-empty title, snippet within the word
// cap. Invalid citations are dropped, never repaired.
func ValidateCitation(c model.Citation) error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("citation title is empty")
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("citation url: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("citation url scheme %q, must be https", u.Scheme)
	}
	if !allowedHost(u.Hostname()) {
		return fmt.Errorf("citation host %q is not %s", u.Hostname(), AllowedHost)
	}

	if n := len(strings.Fields(c.Snippet)); n > model.MaxSnippetWords {
		return fmt.Errorf("citation snippet has %d words, cap is %d", n, model.MaxSnippetWords)
	}
	return nil
}

func allowedHost(host string) bool {
	host = strings.ToLower(host)
	return host == AllowedHost || strings.HasSuffix(host, "."+AllowedHost)
}
