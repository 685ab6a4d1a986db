package extract

import (
	"context"
	"strings"
	"time"

	"nlevent/internal/model"
)

const (
	emptyInputMessage = "Please describe the event, for example \"team lunch tomorrow at 1pm in the cafeteria\"."
	noDateMessage     = "Please specify when this event should happen, for example \"tomorrow at 3pm\", \"next week\" or \"friday at 10am\"."
)

// Extractor turns a free-text request into an extraction outcome.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req model.Request) model.Outcome
}

// Heuristic is the deterministic, rule-based tier. It never returns a
// Failure outcome.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Extract(_ context.Context, req model.Request) model.Outcome {
	return ParseHeuristic(req.Text, req.Now)
}

// ParseHeuristic extracts title, date and location from text using keyword
// rules only, resolving relative phrases against now.
func ParseHeuristic(text string, now time.Time) model.Outcome {
	original := strings.TrimSpace(text)
	if original == "" {
		return model.NeedsClarification(emptyInputMessage)
	}
	lower := strings.ToLower(original)

	title := ExtractTitle(original, lower)
	res := ResolveTime(lower, now)
	if !res.HasDate {
		return model.NeedsClarification(noDateMessage)
	}

	return model.Success(model.ExtractedEvent{
		Title:       title,
		Description: "Event: " + title,
		Date:        res.Date,
		Location:    ExtractLocation(lower, original),
		Status:      model.StatusUpcoming,
	})
}
