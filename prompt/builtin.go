package prompt

import "sync"

// Built-in template names.
const (
	NameCommitMessage = "commit-message"
	NamePRAndCommits  = "pr-and-commits"
	NamePRDescription = "pr-description"
	NameChangelog     = "changelog"
)

const commitMessageTemplate = `Write a Git commit message for the following diff.

Rules:
- The first line (subject) must be <=50 characters, imperative, capitalized, and have no period.
- Add a blank line after the subject.
- The body (if needed) should explain what and why, wrapped at 72 characters.
- Do not describe how (the diff shows that).
- If there are breaking changes, add a 'BREAKING CHANGE:' section.
- Output only the commit message, no preamble or explanation.

Diff:
{{.Diff}}
{{.Guidance}}`

const prAndCommitsTemplate = `You are generating a pull request and commit messages for a set of grouped code changes.

Return a single JSON object, and nothing else, with this exact shape:
{
  "pull_request": {
    "title": "<PR title>",
    "body": "<PR body in Markdown>"
  },
  "commits": [
    {"group_id": "<id from the input>", "message": "<full commit message>"}
  ]
}

Rules:
- Produce exactly one commits entry per change group, keyed by its group_id.
- Commit subjects follow the conventional commit style, <=50 characters.
- The PR body uses Markdown with a one-line summary followed by a bulleted list of changes.
- Do not wrap the JSON in prose.

Change groups:
{{.ChangeGroupsJSON}}

{{.Guidance}}`

const prDescriptionTemplate = `Write a GitHub Pull Request description for the following commits.

Rules:
- Use Markdown.
- Start with a one-line summary.
- Add sections: Motivation, Changes (bulleted), Breaking Changes (if any), Testing.
- Be concise but clear.
- Do not include conversational text or preambles.

Commits:
{{.Commits}}

{{.Guidance}}`

const changelogTemplate = `You are a technical writer creating a changelog section for {{.RepoName}}.
Based on the provided commits, create clear, concise, and user-friendly changelog entries.

Rules:
- Group related changes under appropriate categories (e.g., ### Features, ### Bug Fixes, ### Documentation, ### Maintenance).
- Use clear, non-technical language where possible.
- List individual changes as bullet points under their respective categories.
- Do not include a version header; it is added externally.
- Focus only on the changes from the provided commits.

{{.Guidance}}Here are the commits to include:

{{.Commits}}`

var (
	builtinOnce sync.Once
	builtin     *Manager
)

// Builtin returns the shared manager pre-loaded with the gitwit templates.
func Builtin() *Manager {
	builtinOnce.Do(func() {
		builtin = newBuiltin()
	})
	return builtin
}

func newBuiltin() *Manager {
	m := NewManager()
	for name, content := range map[string]string{
		NameCommitMessage: commitMessageTemplate,
		NamePRAndCommits:  prAndCommitsTemplate,
		NamePRDescription: prDescriptionTemplate,
		NameChangelog:     changelogTemplate,
	} {
		if err := m.RegisterString(name, content); err != nil {
			// Built-in templates are compile-time constants; a parse
			// failure is a programming error.
			panic(err)
		}
	}
	return m
}

// CommitMessage renders the commit-message prompt.
func CommitMessage(diff, guidance string) (string, error) {
	return Builtin().Render(NameCommitMessage, map[string]interface{}{
		"Diff":     diff,
		"Guidance": guidance,
	})
}

// PRAndCommits renders the combined PR+commits prompt. The change
// groups arrive already serialized as JSON and are substituted
// verbatim.
func PRAndCommits(changeGroupsJSON, guidance string) (string, error) {
	return Builtin().Render(NamePRAndCommits, map[string]interface{}{
		"ChangeGroupsJSON": changeGroupsJSON,
		"Guidance":         guidance,
	})
}

// PRDescription renders the PR description prompt.
func PRDescription(commits, guidance string) (string, error) {
	return Builtin().Render(NamePRDescription, map[string]interface{}{
		"Commits":  commits,
		"Guidance": guidance,
	})
}

// Changelog renders the changelog prompt.
func Changelog(repoName, commits, guidance string) (string, error) {
	if guidance != "" {
		guidance += "\n\n"
	}
	return Builtin().Render(NameChangelog, map[string]interface{}{
		"RepoName": repoName,
		"Commits":  commits,
		"Guidance": guidance,
	})
}
