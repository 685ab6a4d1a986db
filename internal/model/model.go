package model

import (
	"errors"
	"strings"
	"time"
)

// Status is the attendance state of an event.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusAttending Status = "attending"
	StatusMaybe     Status = "maybe"
	StatusDeclined  Status = "declined"
)

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUpcoming, StatusAttending, StatusMaybe, StatusDeclined:
		return true
	}
	return false
}

// Request is a single extraction input. Now is the reference instant used
// to resolve relative phrases; callers supply it so resolution does not
// depend on the wall clock.
type Request struct {
	Text string
	Now  time.Time
}

// ExtractedEvent is the structured event produced from free text.
//
// Empty Description or Location means the value is absent. Date carries
// the location of the request's reference time; no conversion is applied.
type ExtractedEvent struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Status      Status
}

// FormattedDate renders the date as "January 02, 2006 at 03:04 PM".
func (e ExtractedEvent) FormattedDate() string {
	if e.Date.IsZero() {
		return "No date set"
	}
	return e.Date.Format("January 02, 2006 at 03:04 PM")
}

// ShortDate renders the date as "01/02/2006 03:04 PM".
func (e ExtractedEvent) ShortDate() string {
	if e.Date.IsZero() {
		return "No date"
	}
	return e.Date.Format("01/02/2006 03:04 PM")
}

// IsPast reports whether the event starts before now.
func (e ExtractedEvent) IsPast(now time.Time) bool {
	if e.Date.IsZero() {
		return false
	}
	return e.Date.Before(now)
}

// Validate checks the invariants every successful extraction must hold.
func (e ExtractedEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Title) != e.Title {
		return errors.New("title must be non-empty and trimmed")
	}
	if e.Date.IsZero() {
		return errors.New("date is required")
	}
	if !ValidStatus(e.Status) {
		return errors.New("unknown status " + string(e.Status))
	}
	return nil
}
