package extract

import (
	"regexp"
	"strings"
)

type anchor struct {
	padded  string
	pattern *regexp.Regexp
}

// locationAnchors are checked in order; " in " wins over " at " whenever
// both occur.
var locationAnchors = []anchor{
	{" in ", regexp.MustCompile(`(?i)\sin\s`)},
	{" at ", regexp.MustCompile(`(?i)\sat\s`)},
}

// connectives introduce a time phrase inside a location candidate and are
// dropped together with it ("the lobby at 3pm", "the hall on monday").
var connectives = map[string]bool{
	"at": true,
	"on": true,
	"by": true,
}

// ExtractLocation returns the place phrase after the first " in " (or,
// failing that, " at ") with every time token removed. It returns "" when
// there is no anchor or nothing but time tokens follows it.
func ExtractLocation(lower, original string) string {
	for _, a := range locationAnchors {
		if !strings.Contains(lower, a.padded) {
			continue
		}
		loc := a.pattern.FindStringIndex(original)
		if loc == nil {
			continue
		}
		return stripTimeTokens(original[loc[1]:])
	}
	return ""
}

func stripTimeTokens(phrase string) string {
	toks := strings.Fields(phrase)
	clean := make([]string, len(toks))
	drop := make([]bool, len(toks))
	for i, t := range toks {
		clean[i] = strings.ToLower(strings.Trim(t, tokenTrimSet))
	}
	for i, w := range clean {
		switch {
		case isTimeMarker(w):
			drop[i] = true
		case isDigits(w) && i > 0 && clean[i-1] == "at":
			drop[i] = true
		}
	}
	// Walk backwards so chained connectives ("on next monday") fall too.
	for i := len(toks) - 2; i >= 0; i-- {
		if !drop[i] && drop[i+1] && connectives[clean[i]] {
			drop[i] = true
		}
	}

	kept := make([]string, 0, len(toks))
	for i, t := range toks {
		if !drop[i] {
			kept = append(kept, t)
		}
	}
	return strings.TrimRight(strings.Join(kept, " "), ",.;:!?")
}
