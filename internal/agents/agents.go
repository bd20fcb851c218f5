// Package agents implements the model-backed pipeline stages: planner,
// examiner, diagnoser and coach. Each agent owns its system prompt, its
// output schema and a deterministic stub; the pipeline decides when a
// stub replaces live output.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudtutor/cloudtutor/internal/llm"
	"github.com/cloudtutor/cloudtutor/internal/parse"
)

const defaultMaxTokens = 4096

// GenerateObject runs one model call and decodes the response into out.
// When the first response fails to parse, validate or pass check, the
// model gets exactly one repair turn showing its own invalid output.
// check, when non-nil, runs after a successful decode; its failure counts
// as malformed output and is repairable the same way.
func GenerateObject(ctx context.Context, provider llm.Provider, req llm.Request, out any, check func() error) error {
	decode := func(content string) error {
		if err := parse.Into(content, req.Schema, out); err != nil {
			return err
		}
		if check != nil {
			if err := check(); err != nil {
				return &parse.MalformedOutput{Raw: content, Err: err}
			}
		}
		return nil
	}

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return err
	}
	firstErr := decode(string(resp.Content))
	if firstErr == nil {
		return nil
	}
	var malformed *parse.MalformedOutput
	if !errors.As(firstErr, &malformed) {
		return firstErr
	}

	req.Messages = append(req.Messages,
		llm.Message{Role: llm.RoleAssistant, Content: malformed.Raw},
		llm.Message{Role: llm.RoleUser, Content: parse.RepairPrompt(req.Schema)},
	)
	resp, err = provider.Generate(ctx, req)
	if err != nil {
		return err
	}
	return decode(string(resp.Content))
}

func userMessage(content string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: content}}
}

func mustJSON(v any) string {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(enc)
}
