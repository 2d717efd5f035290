package commit

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Types maps the known conventional commit types to their meaning.
var Types = map[string]string{
	"feat":     "A new feature",
	"fix":      "A bug fix",
	"docs":     "Documentation only changes",
	"style":    "Changes that do not affect the meaning of the code",
	"refactor": "A code change that neither fixes a bug nor adds a feature",
	"perf":     "A code change that improves performance",
	"test":     "Adding missing tests or correcting existing tests",
	"chore":    "Changes to the build process or auxiliary tools",
	"ci":       "Changes to CI configuration files and scripts",
	"build":    "Changes that affect the build system or external dependencies",
	"revert":   "Reverts a previous commit",
}

var subjectRe = regexp.MustCompile(`^(\w+)(\([^)]+\))?!?: .+`)

// ValidSubject reports whether the first line of a message follows the
// conventional commit form "type(scope)!: description" with a known type.
func ValidSubject(message string) bool {
	subject := message
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = subject[:i]
	}
	m := subjectRe.FindStringSubmatch(subject)
	if m == nil {
		return false
	}
	_, known := Types[m[1]]
	return known
}

// SuggestScope proposes a scope from the most common directory among
// the changed files; ties resolve to the first directory seen.
func SuggestScope(files []string) string {
	counts := make(map[string]int)
	var best string
	for _, file := range files {
		dir := filepath.Dir(file)
		if dir == "." || dir == "" {
			continue
		}
		counts[dir]++
		if best == "" || counts[dir] > counts[best] {
			best = dir
		}
	}
	return best
}
