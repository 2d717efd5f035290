package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/sweetpotato0/gitwit/commit"
	"github.com/sweetpotato0/gitwit/llm"
)

const validResponse = `Here you go:
` + "```json" + `
{
  "pull_request": {"title": "Add widget support", "body": "This PR adds widgets."},
  "commits": [
    {"group_id": "group-1", "message": "feat: add widget"},
    {"group_id": "group-2", "message": "docs: document widget"}
  ]
}
` + "```"

type stubCompleter struct {
	out    string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(ctx context.Context, req *llm.Request) (string, error) {
	s.prompt = req.Prompt
	return s.out, s.err
}

func testGroups() []*commit.Group {
	return []*commit.Group{
		{ID: "group-1", Files: []string{"widget.go"}, Type: "feat", Description: "add widget", Diff: "diff-1"},
		{ID: "group-2", Files: []string{"README.md"}, Type: "docs", Description: "document widget", Diff: "diff-2"},
	}
}

func TestPRAndCommitsSuccess(t *testing.T) {
	completer := &stubCompleter{out: validResponse}
	out, err := NewExtractor(completer).PRAndCommits(context.Background(), testGroups(), "keep it short")
	if err != nil {
		t.Fatalf("PRAndCommits: %v", err)
	}
	if out.PullRequest.Title != "Add widget support" {
		t.Errorf("title = %q", out.PullRequest.Title)
	}
	if len(out.Commits) != 2 || out.Commits[0].GroupID != "group-1" || out.Commits[1].GroupID != "group-2" {
		t.Errorf("commits = %+v", out.Commits)
	}
	if !strings.Contains(completer.prompt, "group-1") || !strings.Contains(completer.prompt, "widget.go") {
		t.Errorf("prompt should embed the serialized groups")
	}
	if !strings.Contains(completer.prompt, "keep it short") {
		t.Errorf("prompt should carry the guidance verbatim")
	}
}

func TestPRAndCommitsCallFailure(t *testing.T) {
	cause := errors.New("all backends exhausted")
	completer := &stubCompleter{err: cause}
	_, err := NewExtractor(completer).PRAndCommits(context.Background(), testGroups(), "")
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("err = %T, want *CallError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestPRAndCommitsNoGroups(t *testing.T) {
	if _, err := NewExtractor(&stubCompleter{}).PRAndCommits(context.Background(), nil, ""); err == nil {
		t.Fatal("expected an error for empty group list")
	}
}

func TestParseNoJSON(t *testing.T) {
	_, err := Parse("sorry, I cannot help with that", []string{"group-1"})
	var noJSON *NoJSONError
	if !errors.As(err, &noJSON) {
		t.Fatalf("err = %T, want *NoJSONError", err)
	}
	if noJSON.Raw == "" {
		t.Error("raw response should be preserved for diagnostics")
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse("```json\n{\"pull_request\": \n```", []string{"group-1"})
	var jsonErr *JSONError
	if !errors.As(err, &jsonErr) {
		t.Fatalf("err = %T %v, want *JSONError", err, err)
	}
}

func TestParseFencedAndBareEquivalent(t *testing.T) {
	body := `{"pull_request": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "feat: x"}]}`
	fenced, err := Parse("```json\n"+body+"\n```", []string{"group-1"})
	if err != nil {
		t.Fatalf("fenced: %v", err)
	}
	bare, err := Parse("prefix "+body+" suffix", []string{"group-1"})
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	if *fenced.PullRequest != *bare.PullRequest || fenced.Commits[0] != bare.Commits[0] {
		t.Fatalf("fenced and bare parses differ: %+v vs %+v", fenced, bare)
	}
}

func TestParsePullRequestAlias(t *testing.T) {
	body := `{"pullRequest": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "feat: x"}]}`
	out, err := Parse(body, []string{"group-1"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.PullRequest == nil || out.PullRequest.Title != "T" {
		t.Fatalf("alias not resolved: %+v", out)
	}
}

// echoingCompleter builds a valid response on the fly, echoing every
// group id found in the serialized groups in order of appearance.
type echoingCompleter struct{}

var groupIDRe = regexp.MustCompile(`"group_id":\s*"([^"]+)"`)

func (echoingCompleter) Complete(ctx context.Context, req *llm.Request) (string, error) {
	var commits []string
	for _, m := range groupIDRe.FindAllStringSubmatch(req.Prompt, -1) {
		commits = append(commits, fmt.Sprintf(`{"group_id": %q, "message": "chore: touch %s"}`, m[1], m[1]))
	}
	return fmt.Sprintf(`{"pull_request": {"title": "T", "body": "B"}, "commits": [%s]}`,
		strings.Join(commits, ", ")), nil
}

func TestRoundTripPreservesGroupOrder(t *testing.T) {
	groups := []*commit.Group{
		{ID: "group-1", Files: []string{"a.go"}, Type: "feat", Description: "a", Diff: "d1"},
		{ID: "group-2", Files: []string{"b.go"}, Type: "fix", Description: "b", Diff: "d2"},
		{ID: "group-3", Files: []string{"c.go"}, Type: "docs", Description: "c", Diff: "d3"},
	}
	out, err := NewExtractor(echoingCompleter{}).PRAndCommits(context.Background(), groups, "")
	if err != nil {
		t.Fatalf("PRAndCommits: %v", err)
	}
	if len(out.Commits) != len(groups) {
		t.Fatalf("commits = %d, want %d", len(out.Commits), len(groups))
	}
	for i, g := range groups {
		if out.Commits[i].GroupID != g.ID {
			t.Errorf("commits[%d].GroupID = %q, want %q", i, out.Commits[i].GroupID, g.ID)
		}
	}
}

func TestValidateFailures(t *testing.T) {
	groupIDs := []string{"group-1", "group-2"}
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"missing pull request",
			`{"commits": [{"group_id": "group-1", "message": "a"}, {"group_id": "group-2", "message": "b"}]}`,
			"pull_request: required",
		},
		{
			"empty title",
			`{"pull_request": {"title": " ", "body": "B"}, "commits": [{"group_id": "group-1", "message": "a"}, {"group_id": "group-2", "message": "b"}]}`,
			"pull_request.title: required",
		},
		{
			"wrong commit count",
			`{"pull_request": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "a"}]}`,
			"expected 2 entries",
		},
		{
			"unknown group id",
			`{"pull_request": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "a"}, {"group_id": "group-9", "message": "b"}]}`,
			`unknown id "group-9"`,
		},
		{
			"duplicate group id",
			`{"pull_request": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "a"}, {"group_id": "group-1", "message": "b"}]}`,
			`duplicate id "group-1"`,
		},
		{
			"empty message",
			`{"pull_request": {"title": "T", "body": "B"}, "commits": [{"group_id": "group-1", "message": "a"}, {"group_id": "group-2", "message": "  "}]}`,
			"commits[1].message: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse(tt.body, groupIDs)
			if out != nil {
				t.Fatal("a schema violation must not yield a partial result")
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("err = %T %v, want *SchemaError", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateNamesEveryFailedField(t *testing.T) {
	var out Output
	body := `{"pull_request": {"title": "", "body": ""}, "commits": []}`
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatal(err)
	}
	err := out.Validate([]string{"group-1"})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %T", err)
	}
	if len(schemaErr.Fields) != 3 {
		t.Fatalf("fields = %v, want title, body and commit count", schemaErr.Fields)
	}
}
