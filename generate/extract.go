package generate

import (
	"regexp"
	"strings"
)

// fencedRe finds a JSON object inside a markdown code fence, with or
// without the json language tag. Non-greedy so trailing prose after
// the fence does not leak into the candidate.
var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONBlock finds the first JSON object candidate in free-form
// model output. It prefers a fenced block; failing that it falls back
// to the span between the first '{' and the last '}'. The boolean is
// false when neither stage yields a candidate.
func ExtractJSONBlock(text string) (string, bool) {
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first >= 0 && last > first {
		return text[first : last+1], true
	}
	return "", false
}
