// Package pr builds pull requests from branch history or from the
// structured generation output, creating them through the gh CLI.
package pr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sweetpotato0/gitwit/generate"
	"github.com/sweetpotato0/gitwit/git"
	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/prompt"
	"github.com/sweetpotato0/gitwit/ui"
)

// Feature drives the PR flow.
type Feature struct {
	git       *git.Client
	completer llm.Completer
	console   *ui.Console
}

// NewFeature constructs the PR feature.
func NewFeature(g *git.Client, completer llm.Completer, console *ui.Console) *Feature {
	if console == nil {
		console = ui.NewConsole()
	}
	return &Feature{git: g, completer: completer, console: console}
}

// Run generates a PR title and body from the commits unique to the
// current branch, confirms, and creates the PR.
func (f *Feature) Run(ctx context.Context, guidance string, autoConfirm bool) error {
	base := f.git.DefaultRemoteBranch(ctx)

	mergeBase, err := f.git.MergeBase(ctx, "origin/"+base, "HEAD")
	if err != nil {
		return fmt.Errorf("pr: resolve merge base against origin/%s: %w", base, err)
	}
	commits, err := f.git.CommitsBetween(ctx, mergeBase, "HEAD")
	if err != nil {
		return fmt.Errorf("pr: list branch commits: %w", err)
	}
	if len(commits) == 0 {
		f.console.Warning("No new commits found to create a PR for.")
		return nil
	}

	title := TitleFromCommits(commits)
	body, err := f.describe(ctx, commits, guidance)
	if err != nil {
		return err
	}

	return f.create(ctx, title, body, base, autoConfirm)
}

// CreateFromOutput creates a PR from a validated generation result.
func (f *Feature) CreateFromOutput(ctx context.Context, out *generate.Output, autoConfirm bool) error {
	base := f.git.DefaultRemoteBranch(ctx)
	return f.create(ctx, out.PullRequest.Title, out.PullRequest.Body, base, autoConfirm)
}

func (f *Feature) describe(ctx context.Context, commits []git.CommitInfo, guidance string) (string, error) {
	var lines []string
	for _, c := range commits {
		lines = append(lines, "- "+c.Subject)
	}
	p, err := prompt.PRDescription(strings.Join(lines, "\n"), guidance)
	if err != nil {
		return "", fmt.Errorf("pr: render prompt: %w", err)
	}
	body, err := f.completer.Complete(ctx, llm.NewRequest(p))
	if err != nil {
		return "", fmt.Errorf("pr: generate description: %w", err)
	}
	return strings.TrimSpace(body), nil
}

func (f *Feature) create(ctx context.Context, title, body, base string, autoConfirm bool) error {
	f.console.Section("Pull Request")
	f.console.Print("Title: %s", title)
	f.console.Print("%s", body)
	if !autoConfirm && !f.console.Confirm("Create this PR?", true) {
		f.console.Warning("PR creation cancelled.")
		return nil
	}

	cmd := exec.CommandContext(ctx, "gh", "pr", "create",
		"--title", title, "--body", body, "--base", base)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return fmt.Errorf("pr: gh pr create: %v: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fmt.Errorf("pr: gh pr create: %w", err)
	}
	f.console.Success("Pull request created: %s", strings.TrimSpace(string(out)))
	return nil
}

// TitleFromCommits derives a PR title from the first commit subject.
// Conventional subjects contribute their description part; multiple
// commits get a count suffix.
func TitleFromCommits(commits []git.CommitInfo) string {
	if len(commits) == 0 {
		return "New Pull Request"
	}
	title := commits[0].Subject
	if _, after, ok := strings.Cut(title, ":"); ok {
		title = strings.TrimSpace(after)
	}
	if len(commits) > 1 {
		title = fmt.Sprintf("%s (+%d more commits)", title, len(commits)-1)
	}
	return title
}
