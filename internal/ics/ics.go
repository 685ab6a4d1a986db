// Package ics renders extracted events as iCalendar documents and reads
// them back.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "nlevent/internal/log"
	"nlevent/internal/model"
)

const (
	ProductID = "-//nlevent//EN"

	// DefaultDuration is used when the caller does not supply one; extracted
	// events carry only a start time.
	DefaultDuration = time.Hour

	// statusProperty keeps the exact model status, which STATUS cannot
	// express for "upcoming" and "attending".
	statusProperty = ical.ComponentProperty("X-NLEVENT-STATUS")
)

// Export renders ev as a single-VEVENT calendar. An empty uid gets a random
// one; a non-positive duration becomes DefaultDuration.
func Export(ev model.ExtractedEvent, uid string, duration time.Duration, now time.Time) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}
	if uid == "" {
		uid = uuid.NewString() + "@nlevent"
	}
	if duration <= 0 {
		duration = DefaultDuration
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(now)
	ve.SetStartAt(ev.Date)
	ve.SetEndAt(ev.Date.Add(duration))
	ve.SetSummary(ev.Title)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	ve.SetStatus(objectStatus(ev.Status))
	ve.SetProperty(statusProperty, string(ev.Status))

	return cal.Serialize(), nil
}

func objectStatus(s model.Status) ical.ObjectStatus {
	switch s {
	case model.StatusMaybe:
		return ical.ObjectStatusTentative
	case model.StatusDeclined:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusConfirmed
	}
}

// Decode parses an iCalendar payload back into events. VEVENTs without a
// summary or start are logged and skipped.
func Decode(body []byte) ([]model.ExtractedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]model.ExtractedEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := decodeVEvent(ve)
		if perr != nil {
			appLog.Error("ics vevent decode failed", perr, "uid", ve.Id())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (model.ExtractedEvent, error) {
	var out model.ExtractedEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if out.Title == "" {
		return out, errors.New("missing SUMMARY")
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.Date = start

	out.Status = model.StatusUpcoming
	if p := ve.GetProperty(statusProperty); p != nil && model.ValidStatus(model.Status(p.Value)) {
		out.Status = model.Status(p.Value)
	} else if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		switch ical.ObjectStatus(strings.ToUpper(p.Value)) {
		case ical.ObjectStatusTentative:
			out.Status = model.StatusMaybe
		case ical.ObjectStatusCancelled:
			out.Status = model.StatusDeclined
		}
	}
	return out, nil
}
