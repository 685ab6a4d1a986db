package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Resolution is the result of resolving the date phrase in a sentence.
//
// KeywordMatched reports that a date rule recognized its keyword. HasDate
// is false only when that rule then failed to produce a date; callers must
// ask for clarification instead of guessing. Text without any date keyword
// always resolves to the next day at 09:00.
type Resolution struct {
	Date           time.Time
	HasDate        bool
	Keyword        TimeKeyword
	KeywordMatched bool
}

// ruleMatch is the result of a single rule. matched without ok means the
// rule recognized its keyword but failed to produce a date.
type ruleMatch struct {
	matched bool
	ok      bool
	date    time.Time
}

type timeRule struct {
	keyword TimeKeyword
	apply   func(ws []string, now time.Time) ruleMatch
}

// timeRules is evaluated top to bottom; the first match wins.
var timeRules = buildTimeRules()

func buildTimeRules() []timeRule {
	rules := []timeRule{
		{KeywordToday, whenWord("today", resolveToday)},
		{KeywordTomorrow, whenWord("tomorrow", func(now time.Time) (time.Time, error) {
			return anchorAt(now.AddDate(0, 0, 1), defaultHour), nil
		})},
		{KeywordNextWeek, func(ws []string, now time.Time) ruleMatch {
			if !containsPhrase(ws, "next", "week") {
				return ruleMatch{}
			}
			return ruleMatch{matched: true, ok: true, date: nextWeek(now)}
		}},
	}
	for _, wd := range weekdays {
		target := wd.rrule
		rules = append(rules, timeRule{wd.keyword, whenWord(wd.name, func(now time.Time) (time.Time, error) {
			return nextWeekday(now, target)
		})})
	}
	rules = append(rules, timeRule{KeywordNext, whenWord("next", func(now time.Time) (time.Time, error) {
		return nextWeek(now), nil
	})})
	return rules
}

func whenWord(word string, resolve func(now time.Time) (time.Time, error)) func([]string, time.Time) ruleMatch {
	return func(ws []string, now time.Time) ruleMatch {
		if !containsWord(ws, word) {
			return ruleMatch{}
		}
		d, err := resolve(now)
		if err != nil {
			return ruleMatch{matched: true}
		}
		return ruleMatch{matched: true, ok: true, date: d}
	}
}

// resolveToday anchors at 09:00, or at the top of the next hour once 09:00
// has passed. From 23:00 on that is midnight of the following day.
func resolveToday(now time.Time) (time.Time, error) {
	nine := anchorAt(now, defaultHour)
	if now.After(nine) {
		return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location()), nil
	}
	return nine, nil
}

func nextWeek(now time.Time) time.Time {
	return anchorAt(now.AddDate(0, 0, 7), defaultHour)
}

// nextWeekday returns the first occurrence of wd strictly after now's
// calendar day, at 09:00. The same weekday as today resolves a week out.
func nextWeekday(now time.Time, wd rrule.Weekday) (time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{wd},
		Dtstart:   anchorAt(now.AddDate(0, 0, 1), defaultHour),
		Count:     1,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("weekday rule: %w", err)
	}
	occ := r.All()
	if len(occ) == 0 {
		return time.Time{}, errors.New("weekday rule produced no occurrence")
	}
	return occ[0].In(now.Location()), nil
}

// ResolveTime converts the date phrase in lowercased text into an absolute
// time relative to now, then applies any time of day found in the text.
func ResolveTime(lower string, now time.Time) Resolution {
	ws := words(lower)
	for _, rule := range timeRules {
		m := rule.apply(ws, now)
		if !m.matched {
			continue
		}
		if !m.ok {
			return Resolution{Keyword: rule.keyword, KeywordMatched: true}
		}
		return Resolution{
			Date:           applyTimeOfDay(ws, m.date),
			HasDate:        true,
			Keyword:        rule.keyword,
			KeywordMatched: true,
		}
	}

	return Resolution{
		Date:    applyTimeOfDay(ws, anchorAt(now.AddDate(0, 0, 1), defaultHour)),
		HasDate: true,
	}
}

// applyTimeOfDay overlays the first parsable clock token onto base. Tokens
// that fail to parse are skipped; with none left, base is returned as-is.
func applyTimeOfDay(ws []string, base time.Time) time.Time {
	for _, tok := range clockCandidates(ws) {
		hour, minute, err := parseClock(tok)
		if err != nil {
			continue
		}
		return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location())
	}
	return base
}

// clockCandidates lists the token right after the first "at", followed by
// every token carrying an am/pm suffix. "3 pm" is joined into "3pm".
func clockCandidates(ws []string) []string {
	var out []string
	for i, w := range ws {
		if w != "at" || i+1 >= len(ws) {
			continue
		}
		out = append(out, joinMeridiem(ws, i+1))
		break
	}
	for i, w := range ws {
		if clockWithMeridiem.MatchString(w) {
			out = append(out, w)
			continue
		}
		if isDigits(w) || clock24.MatchString(w) {
			if i+1 < len(ws) && isMeridiem(ws[i+1]) {
				out = append(out, w+ws[i+1])
			}
		}
	}
	return out
}

func joinMeridiem(ws []string, i int) string {
	tok := ws[i]
	if i+1 < len(ws) && isMeridiem(ws[i+1]) && (isDigits(tok) || clock24.MatchString(tok)) {
		return tok + ws[i+1]
	}
	return tok
}

// parseClock reads "3pm", "1:30pm", "12am", "14:30" or a bare "2".
// Bare numbers from 1 to 11 are taken as afternoon hours.
func parseClock(tok string) (hour, minute int, err error) {
	switch {
	case strings.HasSuffix(tok, "pm"):
		hour, minute, err = parseHourMinute(strings.TrimSuffix(tok, "pm"), 12)
		if err != nil {
			return 0, 0, err
		}
		if hour != 12 {
			hour += 12
		}
	case strings.HasSuffix(tok, "am"):
		hour, minute, err = parseHourMinute(strings.TrimSuffix(tok, "am"), 12)
		if err != nil {
			return 0, 0, err
		}
		if hour == 12 {
			hour = 0
		}
	case strings.Contains(tok, ":"):
		hour, minute, err = parseHourMinute(tok, 23)
		if err != nil {
			return 0, 0, err
		}
	default:
		if !isDigits(tok) {
			return 0, 0, fmt.Errorf("not a clock time: %q", tok)
		}
		hour, err = strconv.Atoi(tok)
		if err != nil {
			return 0, 0, err
		}
		if hour > 23 {
			return 0, 0, fmt.Errorf("hour out of range: %d", hour)
		}
		if hour >= 1 && hour <= 11 {
			hour += 12
		}
	}
	return hour, minute, nil
}

// parseHourMinute parses "H" or "H:MM". With maxHour 12 the hour must be in
// 1..12 (meridiem clock), otherwise in 0..maxHour.
func parseHourMinute(s string, maxHour int) (int, int, error) {
	hourPart, minutePart, hasMinutes := strings.Cut(s, ":")
	if !isDigits(hourPart) || len(hourPart) > 2 {
		return 0, 0, fmt.Errorf("bad hour: %q", s)
	}
	hour, _ := strconv.Atoi(hourPart)
	minHour := 0
	if maxHour == 12 {
		minHour = 1
	}
	if hour < minHour || hour > maxHour {
		return 0, 0, fmt.Errorf("hour out of range: %d", hour)
	}
	minute := 0
	if hasMinutes {
		if !isDigits(minutePart) || len(minutePart) != 2 {
			return 0, 0, fmt.Errorf("bad minutes: %q", s)
		}
		minute, _ = strconv.Atoi(minutePart)
		if minute > 59 {
			return 0, 0, fmt.Errorf("minute out of range: %d", minute)
		}
	}
	return hour, minute, nil
}
