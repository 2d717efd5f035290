// Package generate turns free-form model output into the validated
// structured result consumed by the PR and commit flows: one combined
// router call over all change groups, tolerant JSON extraction, strict
// schema validation. Either a fully valid Output comes back or a
// specific failure reason; never a partial result.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sweetpotato0/gitwit/commit"
	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/prompt"
)

// CallError wraps a failed router call. No retry happens at this
// layer; retry already happened inside the router for the backends
// where it helps.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NoJSONError reports that no JSON object candidate was found. Raw
// carries the full response for diagnostics.
type NoJSONError struct {
	Raw string
}

func (e *NoJSONError) Error() string {
	return "no JSON object found in the model response"
}

// JSONError reports an unparseable candidate. Block carries the
// offending extracted block, not the full response, to keep
// diagnostics focused.
type JSONError struct {
	Block string
	Err   error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("model response contained invalid JSON: %v", e.Err)
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// Extractor generates a PR description plus one commit message per
// change group in a single call.
type Extractor struct {
	completer llm.Completer
}

// NewExtractor constructs an Extractor on top of the router.
func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{completer: completer}
}

// PRAndCommits runs the combined generation for the given groups with
// optional free-text guidance appended verbatim to the prompt.
func (e *Extractor) PRAndCommits(ctx context.Context, groups []*commit.Group, guidance string) (*Output, error) {
	if len(groups) == 0 {
		return nil, errors.New("generate: no change groups to describe")
	}

	payload, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("generate: encode change groups: %w", err)
	}

	p, err := prompt.PRAndCommits(string(payload), guidance)
	if err != nil {
		return nil, fmt.Errorf("generate: render prompt: %w", err)
	}

	raw, err := e.completer.Complete(ctx, llm.NewRequest(p))
	if err != nil {
		return nil, &CallError{Err: err}
	}

	return Parse(raw, groupIDs(groups))
}

// Parse extracts, decodes and validates the model response against the
// submitted group ids.
func Parse(raw string, groupIDs []string) (*Output, error) {
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil, &NoJSONError{Raw: raw}
	}

	var out Output
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return nil, &JSONError{Block: block, Err: err}
	}

	if err := out.Validate(groupIDs); err != nil {
		return nil, err
	}
	return &out, nil
}

func groupIDs(groups []*commit.Group) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}
