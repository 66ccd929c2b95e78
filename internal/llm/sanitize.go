package llm

import (
	"regexp"
	"strings"
)

// fenceMarker matches a ``` marker plus an optional language tag and the
// whitespace that follows it. A tag starts with a letter and only counts
// when it is followed by whitespace or the end of the text, except "json"
// which always counts.
var fenceMarker = regexp.MustCompile("```(?:([A-Za-z][A-Za-z0-9_+.#-]*)(?:\\s+|$)|json\\s*|\\s*)")

// jsonLiterals look like language tags but are documents.
var jsonLiterals = map[string]bool{"true": true, "false": true, "null": true}

// StripCodeFences removes every markdown code fence marker from s, wherever
// it appears, and trims the result.
func StripCodeFences(s string) string {
	out := fenceMarker.ReplaceAllStringFunc(s, func(marker string) string {
		if m := fenceMarker.FindStringSubmatch(marker); m != nil && jsonLiterals[m[1]] {
			return strings.TrimPrefix(marker, "```")
		}
		return ""
	})
	return strings.TrimSpace(out)
}
