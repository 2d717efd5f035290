// Package commit holds the change-grouping engine and the commit flow
// built on it.
package commit

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/prompt"
	"github.com/sweetpotato0/gitwit/ui"
)

// GitService is the git surface the commit flow needs.
type GitService interface {
	StagedFiles(ctx context.Context) ([]string, error)
	StagedDiff(ctx context.Context) (string, error)
	StagedFileDiff(ctx context.Context, path string) (string, error)
	Commit(ctx context.Context, message string) error
	CommitPaths(ctx context.Context, message string, paths []string) error
}

// Options controls one run of the commit flow.
type Options struct {
	// Group clusters the staged files into change groups and creates
	// one commit per group.
	Group bool

	// AutoConfirm skips the interactive confirmation.
	AutoConfirm bool

	// Guidance is free text forwarded to the prompt.
	Guidance string
}

// Feature drives the commit flow: generate a message for the staged
// changes, confirm, commit.
type Feature struct {
	git       GitService
	completer llm.Completer
	console   *ui.Console
}

// NewFeature constructs the commit feature.
func NewFeature(git GitService, completer llm.Completer, console *ui.Console) *Feature {
	if console == nil {
		console = ui.NewConsole()
	}
	return &Feature{git: git, completer: completer, console: console}
}

// Run executes the flow.
func (f *Feature) Run(ctx context.Context, opts Options) error {
	staged, err := f.git.StagedFiles(ctx)
	if err != nil {
		return fmt.Errorf("commit: list staged files: %w", err)
	}
	if len(staged) == 0 {
		f.console.Warning("No files staged for commit.")
		return nil
	}

	if opts.Group {
		return f.runGrouped(ctx, staged, opts)
	}
	return f.runSingle(ctx, opts)
}

func (f *Feature) runSingle(ctx context.Context, opts Options) error {
	diff, err := f.git.StagedDiff(ctx)
	if err != nil {
		return fmt.Errorf("commit: staged diff: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		f.console.Warning("Nothing staged to commit.")
		return nil
	}

	message, err := f.Message(ctx, diff, opts.Guidance)
	if err != nil {
		return err
	}

	f.console.Section("Suggested Commit Message")
	f.console.Info("%s", message)
	if !opts.AutoConfirm && !f.console.Confirm("Use this commit message?", true) {
		f.console.Warning("Commit cancelled.")
		return nil
	}

	if err := f.git.Commit(ctx, message); err != nil {
		return fmt.Errorf("commit: create commit: %w", err)
	}
	f.console.Success("Commit created.")
	return nil
}

func (f *Feature) runGrouped(ctx context.Context, staged []string, opts Options) error {
	grouper := NewGrouper(f.git, f.completer)
	groups, err := grouper.Group(ctx, staged)
	if err != nil {
		return fmt.Errorf("commit: group staged files: %w", err)
	}
	if len(groups) == 0 {
		f.console.Warning("No usable staged changes to group.")
		return nil
	}

	for _, group := range groups {
		message, err := f.Message(ctx, group.Diff, opts.Guidance)
		if err != nil {
			return err
		}

		f.console.Section("Group %s (%s)", group.ID, strings.Join(group.Files, ", "))
		f.console.Info("%s", message)
		if !opts.AutoConfirm && !f.console.Confirm("Commit this group?", true) {
			f.console.Warning("Skipped %s.", group.ID)
			continue
		}
		if err := f.git.CommitPaths(ctx, message, group.Files); err != nil {
			return fmt.Errorf("commit: commit group %s: %w", group.ID, err)
		}
		f.console.Success("Committed %s.", group.ID)
	}
	return nil
}

// Message generates a commit message for one diff.
func (f *Feature) Message(ctx context.Context, diff, guidance string) (string, error) {
	p, err := prompt.CommitMessage(diff, guidance)
	if err != nil {
		return "", fmt.Errorf("commit: render prompt: %w", err)
	}
	out, err := f.completer.Complete(ctx, llm.NewRequest(p))
	if err != nil {
		return "", fmt.Errorf("commit: generate message: %w", err)
	}
	return strings.TrimSpace(out), nil
}
