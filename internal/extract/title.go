package extract

import (
	"regexp"
	"strings"
)

// titleKeywords are tried in this order; the first one present ends the
// title, regardless of where it sits in the sentence.
var titleKeywords = []string{
	"tomorrow", "today", "next", "at", "on",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var titlePatterns = compileWordPatterns(titleKeywords)

func compileWordPatterns(kws []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(kws))
	for i, kw := range kws {
		out[i] = wordPattern(kw)
	}
	return out
}

// ExtractTitle returns the text before the first listed keyword found in
// the sentence, or the whole sentence when that prefix is empty or no
// keyword is present. Interior whitespace is collapsed.
func ExtractTitle(original, lower string) string {
	ws := words(lower)
	for i, kw := range titleKeywords {
		if !containsWord(ws, kw) {
			continue
		}
		if loc := titlePatterns[i].FindStringIndex(original); loc != nil {
			prefix := collapseSpaces(strings.TrimRight(original[:loc[0]], " \t,;:-"))
			if prefix != "" {
				return prefix
			}
		}
		break
	}
	return collapseSpaces(original)
}
