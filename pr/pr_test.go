package pr

import (
	"testing"

	"github.com/sweetpotato0/gitwit/git"
)

func TestTitleFromCommits(t *testing.T) {
	tests := []struct {
		name    string
		commits []git.CommitInfo
		want    string
	}{
		{
			"single conventional commit",
			[]git.CommitInfo{{Subject: "feat: add user login"}},
			"add user login",
		},
		{
			"multiple commits get a count suffix",
			[]git.CommitInfo{
				{Subject: "feat: add user login"},
				{Subject: "fix: handle empty password"},
				{Subject: "docs: document auth flow"},
			},
			"add user login (+2 more commits)",
		},
		{
			"plain subject kept verbatim",
			[]git.CommitInfo{{Subject: "Initial import"}},
			"Initial import",
		},
		{
			"no commits",
			nil,
			"New Pull Request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromCommits(tt.commits); got != tt.want {
				t.Errorf("TitleFromCommits = %q, want %q", got, tt.want)
			}
		})
	}
}
