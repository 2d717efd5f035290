package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PRInfo is the generated pull request title and Markdown body.
type PRInfo struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CommitMessage pairs one generated commit message with the change
// group it belongs to.
type CommitMessage struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

// Output is the root schema for the combined PR and commit message
// generation. The model is expected to return a JSON object conforming
// to this structure; "pullRequest" is accepted as an alias for
// "pull_request" since model output commonly uses camelCase.
type Output struct {
	PullRequest *PRInfo         `json:"pull_request"`
	Commits     []CommitMessage `json:"commits"`
}

// UnmarshalJSON resolves the pullRequest alias.
func (o *Output) UnmarshalJSON(data []byte) error {
	type plain struct {
		PullRequest *PRInfo         `json:"pull_request"`
		Alias       *PRInfo         `json:"pullRequest"`
		Commits     []CommitMessage `json:"commits"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	o.PullRequest = p.PullRequest
	if o.PullRequest == nil {
		o.PullRequest = p.Alias
	}
	o.Commits = p.Commits
	return nil
}

// SchemaError reports which fields of the output failed validation.
type SchemaError struct {
	Fields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("generated output did not match the required schema: %s",
		strings.Join(e.Fields, "; "))
}

// Validate checks the structural contract against the submitted group
// ids: a present pull request with title and body, and exactly one
// commit message per group id with no unknown or duplicate ids. A
// violation returns a *SchemaError naming every failed field.
func (o *Output) Validate(groupIDs []string) error {
	var fields []string

	switch {
	case o.PullRequest == nil:
		fields = append(fields, "pull_request: required")
	default:
		if strings.TrimSpace(o.PullRequest.Title) == "" {
			fields = append(fields, "pull_request.title: required")
		}
		if strings.TrimSpace(o.PullRequest.Body) == "" {
			fields = append(fields, "pull_request.body: required")
		}
	}

	if len(o.Commits) != len(groupIDs) {
		fields = append(fields, fmt.Sprintf("commits: expected %d entries, got %d", len(groupIDs), len(o.Commits)))
	}

	known := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		known[id] = true
	}
	seen := make(map[string]bool, len(o.Commits))
	for i, c := range o.Commits {
		if !known[c.GroupID] {
			fields = append(fields, fmt.Sprintf("commits[%d].group_id: unknown id %q", i, c.GroupID))
			continue
		}
		if seen[c.GroupID] {
			fields = append(fields, fmt.Sprintf("commits[%d].group_id: duplicate id %q", i, c.GroupID))
		}
		seen[c.GroupID] = true
		if strings.TrimSpace(c.Message) == "" {
			fields = append(fields, fmt.Sprintf("commits[%d].message: required", i))
		}
	}

	if len(fields) > 0 {
		return &SchemaError{Fields: fields}
	}
	return nil
}
