package changelog

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sweetpotato0/gitwit/git"
	"github.com/sweetpotato0/gitwit/llm"
)

type echoCompleter struct {
	out    string
	prompt string
}

func (e *echoCompleter) Complete(ctx context.Context, req *llm.Request) (string, error) {
	e.prompt = req.Prompt
	return e.out, nil
}

func initRepo(t *testing.T) *git.Client {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init", "-b", "main")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	gitRun(t, dir, "config", "user.name", "Test User")
	return git.New(dir)
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func commitFile(t *testing.T, c *git.Client, name, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(c.RepoPath, name), []byte(name+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitRun(t, c.RepoPath, "add", "-A")
	gitRun(t, c.RepoPath, "commit", "-m", message)
}

func TestGenerateUsesCommitsSinceTag(t *testing.T) {
	c := initRepo(t)
	commitFile(t, c, "a.txt", "feat: before tag")
	gitRun(t, c.RepoPath, "tag", "v1.0.0")
	commitFile(t, c, "b.txt", "fix: after tag")

	completer := &echoCompleter{out: "### Bug Fixes\n- after tag"}
	section, err := NewFeature(c, completer).Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if section != "### Bug Fixes\n- after tag" {
		t.Fatalf("section = %q", section)
	}
	if !strings.Contains(completer.prompt, "- fix: after tag") {
		t.Error("prompt should include the post-tag commit")
	}
	if strings.Contains(completer.prompt, "feat: before tag") {
		t.Error("prompt should not include commits before the tag")
	}
}

func TestGenerateWholeHistoryWithoutTags(t *testing.T) {
	c := initRepo(t)
	commitFile(t, c, "a.txt", "feat: first")
	commitFile(t, c, "b.txt", "feat: second")

	completer := &echoCompleter{out: "### Features\n- everything"}
	if _, err := NewFeature(c, completer).Generate(context.Background(), ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{"- feat: first", "- feat: second"} {
		if !strings.Contains(completer.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateEmptyRepository(t *testing.T) {
	c := initRepo(t)
	if _, err := NewFeature(c, &echoCompleter{}).Generate(context.Background(), ""); err == nil {
		t.Fatal("expected an error for a repository with no commits")
	}
}
