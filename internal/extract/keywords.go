package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// TimeKeyword is one of the relative date words the heuristic tier
// understands.
type TimeKeyword int

const (
	KeywordNone TimeKeyword = iota
	KeywordToday
	KeywordTomorrow
	KeywordNextWeek
	KeywordNext
	KeywordMonday
	KeywordTuesday
	KeywordWednesday
	KeywordThursday
	KeywordFriday
	KeywordSaturday
	KeywordSunday
)

var keywordNames = map[TimeKeyword]string{
	KeywordNone:      "none",
	KeywordToday:     "today",
	KeywordTomorrow:  "tomorrow",
	KeywordNextWeek:  "next-week",
	KeywordNext:      "next",
	KeywordMonday:    "monday",
	KeywordTuesday:   "tuesday",
	KeywordWednesday: "wednesday",
	KeywordThursday:  "thursday",
	KeywordFriday:    "friday",
	KeywordSaturday:  "saturday",
	KeywordSunday:    "sunday",
}

func (k TimeKeyword) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return "unknown"
}

type weekdayName struct {
	name    string
	keyword TimeKeyword
	rrule   rrule.Weekday
}

// weekdays in calendar order starting Monday; rule evaluation follows it.
var weekdays = []weekdayName{
	{"monday", KeywordMonday, rrule.MO},
	{"tuesday", KeywordTuesday, rrule.TU},
	{"wednesday", KeywordWednesday, rrule.WE},
	{"thursday", KeywordThursday, rrule.TH},
	{"friday", KeywordFriday, rrule.FR},
	{"saturday", KeywordSaturday, rrule.SA},
	{"sunday", KeywordSunday, rrule.SU},
}

// dateWords are tokens that only ever carry date meaning.
var dateWords = map[string]bool{
	"today":    true,
	"tomorrow": true,
	"next":     true,
	"week":     true,
}

func init() {
	for _, wd := range weekdays {
		dateWords[wd.name] = true
	}
}

// defaultHour is the anchor used whenever a phrase names a day but no time.
const defaultHour = 9

const tokenTrimSet = ",.;!?()[]{}\"'"

var (
	clockWithMeridiem = regexp.MustCompile(`^\d{1,2}(:\d{2})?(am|pm)$`)
	clock24           = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// words splits lowercased text on whitespace and trims surrounding
// punctuation from each token.
func words(lower string) []string {
	raw := strings.Fields(lower)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.Trim(w, tokenTrimSet)
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func containsWord(ws []string, target string) bool {
	for _, w := range ws {
		if w == target {
			return true
		}
	}
	return false
}

func containsPhrase(ws []string, first, second string) bool {
	for i := 0; i+1 < len(ws); i++ {
		if ws[i] == first && ws[i+1] == second {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isMeridiem(s string) bool {
	return s == "am" || s == "pm"
}

// isTimeMarker reports whether a cleaned, lowercased token carries time or
// date meaning rather than place meaning.
func isTimeMarker(w string) bool {
	switch {
	case isMeridiem(w):
		return true
	case clockWithMeridiem.MatchString(w), clock24.MatchString(w):
		return true
	case isDateWord(w):
		return true
	}
	return false
}

// isDateWord matches date keywords including their possessive and plural
// forms ("tomorrow's", "mondays").
func isDateWord(w string) bool {
	if dateWords[w] {
		return true
	}
	for _, suffix := range []string{"'s", "’s", "s"} {
		if base, ok := strings.CutSuffix(w, suffix); ok && dateWords[base] {
			return true
		}
	}
	return false
}

// anchorAt returns the calendar day of t at hour:00 in t's location.
func anchorAt(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// wordPattern matches kw as a whole word, case-insensitively.
func wordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
