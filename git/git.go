// Package git wraps the git binary for the operations gitwit needs:
// staged file listing, staged diffs (whole set or one path), commits
// and branch/history queries. It shells out rather than linking a git
// implementation; the tool runs where git already runs.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client executes git commands inside one repository.
type Client struct {
	// RepoPath is the working tree root; empty means the current
	// directory.
	RepoPath string
}

// New creates a client for the repository at path.
func New(path string) *Client {
	return &Client{RepoPath: path}
}

// IsRepository checks if the given path is a git repository
func IsRepository(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", orDot(path), "rev-parse", "--is-inside-work-tree")
	return cmd.Run() == nil
}

// StagedFiles returns the paths of all files with staged changes, in
// git's reported order.
func (c *Client) StagedFiles(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// StagedDiff returns the unified diff of the whole staged set, or the
// empty string when nothing is staged.
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	return c.output(ctx, "diff", "--cached")
}

// StagedFileDiff returns the staged diff for one path only.
func (c *Client) StagedFileDiff(ctx context.Context, path string) (string, error) {
	return c.output(ctx, "diff", "--cached", "--", path)
}

// UnstagedFiles returns paths with unstaged modifications, including
// untracked files.
func (c *Client) UnstagedFiles(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		// Worktree-side status lives in the second column.
		if line[1] != ' ' {
			files = append(files, strings.TrimSpace(line[3:]))
		}
	}
	return files, nil
}

// StageAll stages every change in the working tree.
func (c *Client) StageAll(ctx context.Context) error {
	return c.run(ctx, "add", "-A")
}

// StageFiles stages the given paths.
func (c *Client) StageFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return c.run(ctx, append([]string{"add", "--"}, paths...)...)
}

// Commit records the staged changes with the given message.
func (c *Client) Commit(ctx context.Context, message string) error {
	return c.run(ctx, "commit", "-m", message)
}

// CommitPaths records only the given paths with the message, leaving
// the rest of the staged set intact for the next group's commit.
func (c *Client) CommitPaths(ctx context.Context, message string, paths []string) error {
	args := append([]string{"commit", "-m", message, "--only", "--"}, paths...)
	return c.run(ctx, args...)
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// DefaultRemoteBranch resolves the remote HEAD branch name (usually
// main or master), falling back to "main" when origin has no HEAD ref.
func (c *Client) DefaultRemoteBranch(ctx context.Context) string {
	out, err := c.output(ctx, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil || out == "" {
		return "main"
	}
	return strings.TrimPrefix(out, "refs/remotes/origin/")
}

// MergeBase returns the merge base of two revisions.
func (c *Client) MergeBase(ctx context.Context, a, b string) (string, error) {
	return c.output(ctx, "merge-base", a, b)
}

// CommitInfo is one commit in a history query.
type CommitInfo struct {
	Hash    string
	Subject string
}

// CommitsBetween lists commits in (from, to], newest last.
func (c *Client) CommitsBetween(ctx context.Context, from, to string) ([]CommitInfo, error) {
	out, err := c.output(ctx, "log", "--reverse", "--format=%H%x09%s", from+".."+to)
	if err != nil {
		return nil, err
	}
	return parseCommitLines(out), nil
}

// CommitsSince lists the commits after the given tag, or the whole
// history when the tag is empty.
func (c *Client) CommitsSince(ctx context.Context, tag string) ([]CommitInfo, error) {
	args := []string{"log", "--reverse", "--format=%H%x09%s"}
	if tag != "" {
		args = append(args, tag+"..HEAD")
	}
	out, err := c.output(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseCommitLines(out), nil
}

// LatestTag returns the most recent reachable tag, or the empty string
// when the repository has no tags.
func (c *Client) LatestTag(ctx context.Context) string {
	out, err := c.output(ctx, "describe", "--tags", "--abbrev=0")
	if err != nil {
		return ""
	}
	return out
}

// Push pushes the current branch, setting upstream on first push.
func (c *Client) Push(ctx context.Context) error {
	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	return c.run(ctx, "push", "--set-upstream", "origin", branch)
}

// RepoName derives a short repository name from the top-level directory.
func (c *Client) RepoName(ctx context.Context) string {
	out, err := c.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil || out == "" {
		return "this repository"
	}
	if i := strings.LastIndexByte(out, '/'); i >= 0 {
		return out[i+1:]
	}
	return out
}

func parseCommitLines(out string) []CommitInfo {
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	commits := make([]CommitInfo, 0, len(lines))
	for _, line := range lines {
		hash, subject, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		commits = append(commits, CommitInfo{Hash: hash, Subject: subject})
	}
	return commits
}

func (c *Client) run(ctx context.Context, args ...string) error {
	_, err := c.output(ctx, args...)
	return err
}

func (c *Client) output(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", orDot(c.RepoPath)}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %v: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func orDot(path string) string {
	if path == "" {
		return "."
	}
	return path
}
