package commit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/pkg/logging"
	"github.com/sweetpotato0/gitwit/prompt"
)

// DiffProvider supplies isolated staged diffs, one path at a time.
type DiffProvider interface {
	StagedFileDiff(ctx context.Context, path string) (string, error)
}

// Group is a cluster of staged files treated as one logical unit of
// work. Files is non-empty and unique; Diff is the newline-joined
// concatenation of the member diffs in absorption order.
type Group struct {
	ID          string   `json:"group_id"`
	Files       []string `json:"files"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Diff        string   `json:"diff"`
}

// Suggested returns the one-line commit suggestion for the group.
func (g *Group) Suggested() string {
	return g.Type + ": " + g.Description
}

// Grouper partitions staged files into commit groups by summarizing
// each file's diff through the router and clustering equal
// (type, description) pairs.
type Grouper struct {
	diffs     DiffProvider
	completer llm.Completer
	logger    *slog.Logger
}

// NewGrouper constructs a Grouper.
func NewGrouper(diffs DiffProvider, completer llm.Completer) *Grouper {
	return &Grouper{
		diffs:     diffs,
		completer: completer,
		logger:    logging.WithComponent("commit.grouper"),
	}
}

// fileSummary is one staged file with its per-file suggestion.
type fileSummary struct {
	path        string
	diff        string
	typ         string
	description string
}

// Group computes the commit groups for the given staged paths. Files
// whose diff or summary cannot be obtained are skipped with a warning;
// when every file fails the result is empty, not an error. Group
// membership partitions the surviving input set.
func (g *Grouper) Group(ctx context.Context, paths []string) ([]*Group, error) {
	summaries := make([]fileSummary, 0, len(paths))
	for _, path := range paths {
		diff, err := g.diffs.StagedFileDiff(ctx, path)
		if err != nil {
			g.logger.Warn("skipping file, diff unavailable", "path", path, "error", err)
			continue
		}
		if strings.TrimSpace(diff) == "" {
			g.logger.Warn("skipping file, empty staged diff", "path", path)
			continue
		}

		suggestion, err := g.summarize(ctx, diff)
		if err != nil {
			g.logger.Warn("skipping file, summary failed", "path", path, "error", err)
			continue
		}

		typ, description := ParseSuggestion(suggestion)
		summaries = append(summaries, fileSummary{
			path:        path,
			diff:        diff,
			typ:         typ,
			description: description,
		})
	}

	return cluster(summaries), nil
}

func (g *Grouper) summarize(ctx context.Context, diff string) (string, error) {
	p, err := prompt.CommitMessage(diff, "Reply with a single line in the form \"type: description\".")
	if err != nil {
		return "", err
	}
	out, err := g.completer.Complete(ctx, llm.NewRequest(p))
	if err != nil {
		return "", err
	}
	return out, nil
}

// cluster greedily merges summaries with equal group keys. Iteration
// follows input order; the earliest unclustered file seeds each group
// and absorbs every later match in a single pass, so ties resolve to
// the first-seen group and output order is first-seen order.
func cluster(summaries []fileSummary) []*Group {
	groups := make([]*Group, 0, len(summaries))
	clustered := make([]bool, len(summaries))

	for i, seed := range summaries {
		if clustered[i] {
			continue
		}
		clustered[i] = true
		group := &Group{
			Files:       []string{seed.path},
			Type:        seed.typ,
			Description: seed.description,
			Diff:        seed.diff,
		}
		key := GroupKey(seed.typ, seed.description)

		for j := i + 1; j < len(summaries); j++ {
			if clustered[j] {
				continue
			}
			if GroupKey(summaries[j].typ, summaries[j].description) != key {
				continue
			}
			clustered[j] = true
			group.Files = append(group.Files, summaries[j].path)
			group.Diff += "\n" + summaries[j].diff
		}

		group.ID = fmt.Sprintf("group-%d", len(groups)+1)
		groups = append(groups, group)
	}
	return groups
}

// ParseSuggestion splits a one-line "type: description" suggestion.
// The type token is normalized to lower case, so model replies that
// capitalize the conventional type ("Feat:") parse to the same type. A
// suggestion without a colon yields type "chore" with the entire
// suggestion as the description.
func ParseSuggestion(suggestion string) (typ, description string) {
	line := strings.TrimSpace(suggestion)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	before, after, ok := strings.Cut(line, ":")
	if !ok {
		return "chore", line
	}
	typ = strings.ToLower(strings.TrimSpace(before))
	description = strings.TrimSpace(after)
	if typ == "" {
		typ = "chore"
	}
	return typ, description
}

// GroupKey is the similarity rule: types must match exactly and
// descriptions match case-insensitively. Exact type comparison is over
// the normalized token ParseSuggestion emits; raw types that differ
// only in case have already collapsed to one token by the time they
// reach the key.
func GroupKey(typ, description string) string {
	return typ + "\x00" + strings.ToLower(strings.TrimSpace(description))
}
