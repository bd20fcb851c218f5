package doccache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// maxDocumentBytes caps a fetched page. Reference articles are text;
	// anything larger is truncated rather than rejected.
	maxDocumentBytes = 2 << 20

	defaultFetchTimeout = 15 * time.Second
)

// HTTPFetcher returns a Fetcher that retrieves documents over HTTP.
// A nil client gets a default with a bounded timeout.
func HTTPFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return func(ctx context.Context, url string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Accept", "text/html,text/plain")

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
}
