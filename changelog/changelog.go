// Package changelog generates a categorized changelog section from the
// commits since the last tag.
package changelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/gitwit/git"
	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/prompt"
)

// Feature drives changelog generation.
type Feature struct {
	git       *git.Client
	completer llm.Completer
}

// NewFeature constructs the changelog feature.
func NewFeature(g *git.Client, completer llm.Completer) *Feature {
	return &Feature{git: g, completer: completer}
}

// Generate returns the changelog section text for the commits since
// the latest tag, or since the beginning of history when the
// repository has no tags.
func (f *Feature) Generate(ctx context.Context, guidance string) (string, error) {
	tag := f.git.LatestTag(ctx)
	commits, err := f.git.CommitsSince(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("changelog: list commits: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("changelog: no commits found since %q", tag)
	}

	var lines []string
	for _, c := range commits {
		lines = append(lines, "- "+c.Subject)
	}

	p, err := prompt.Changelog(f.git.RepoName(ctx), strings.Join(lines, "\n"), guidance)
	if err != nil {
		return "", fmt.Errorf("changelog: render prompt: %w", err)
	}
	out, err := f.completer.Complete(ctx, llm.NewRequest(p))
	if err != nil {
		return "", fmt.Errorf("changelog: generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}
