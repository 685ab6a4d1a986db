package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"nlevent/internal/llm"
	"nlevent/internal/model"
)

// RemoteDateLayout is the exact date format the model must return.
const RemoteDateLayout = "2006-01-02 15:04"

const (
	missingTitleMessage  = "Please provide a clear event title."
	badDateMessage       = "Please provide a valid date and time."
	remoteClarifyDefault = "Please specify when this event should happen."
)

const systemPromptTemplate = `You are an event parser. Extract event information from the user's sentence and return structured JSON.

Current date and time: %s

Extract:
- title: event title (required)
- description: brief description, or null
- date: "YYYY-MM-DD HH:MM"; resolve relative dates such as "tomorrow" or "next week" from the current date
- location: location if mentioned, or null
- status: always "upcoming"

Rules:
- If no time is mentioned, use 09:00.
- If no date can be determined, set needs_clarification to true and explain what is missing in clarification_message.

Return ONLY a JSON object, with no surrounding text, in exactly this shape:
{"title": "string", "description": "string or null", "date": "YYYY-MM-DD HH:MM", "location": "string or null", "status": "upcoming", "needs_clarification": false, "clarification_message": "string or null"}`

// structuredEvent mirrors the JSON schema demanded from the model.
type structuredEvent struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	Date                 *string `json:"date"`
	Location             *string `json:"location"`
	Status               *string `json:"status"`
	NeedsClarification   bool    `json:"needs_clarification"`
	ClarificationMessage *string `json:"clarification_message"`
}

// Remote is the structured-extraction tier backed by a hosted model.
type Remote struct {
	client  llm.Completer
	timeout time.Duration
}

// NewRemote wraps client; every Extract call is bounded by timeout
// (llm.DefaultTimeout when zero).
func NewRemote(client llm.Completer, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	return &Remote{client: client, timeout: timeout}
}

func (r *Remote) Name() string { return "remote" }

// Extract makes exactly one model call. Transport, status and decode
// problems become Failure; ambiguous or incomplete answers become
// NeedsClarification.
func (r *Remote) Extract(ctx context.Context, req model.Request) model.Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	content, err := r.client.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt(req.Now)},
			{Role: "user", Content: req.Text},
		},
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err != nil {
		return model.Failure(fmt.Errorf("structured extraction: %w", err))
	}
	return DecodeStructured(content, req.Now)
}

// SystemPrompt renders the instruction that pins the reference time.
func SystemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.Format(RemoteDateLayout))
}

// DecodeStructured interprets a model reply. The reply must be a single
// JSON object; dates are read in now's location.
func DecodeStructured(content string, now time.Time) model.Outcome {
	payload, err := decodeObject(content)
	if err != nil {
		return model.Failure(fmt.Errorf("decode model response: %w", err))
	}

	if payload.NeedsClarification {
		msg := strings.TrimSpace(deref(payload.ClarificationMessage))
		if msg == "" {
			msg = remoteClarifyDefault
		}
		return model.NeedsClarification(msg)
	}

	title := collapseSpaces(deref(payload.Title))
	if title == "" {
		return model.NeedsClarification(missingTitleMessage)
	}

	date, err := time.ParseInLocation(RemoteDateLayout, strings.TrimSpace(deref(payload.Date)), now.Location())
	if err != nil {
		return model.NeedsClarification(badDateMessage)
	}

	return model.Success(model.ExtractedEvent{
		Title:       title,
		Description: strings.TrimSpace(deref(payload.Description)),
		Date:        date,
		Location:    strings.TrimSpace(deref(payload.Location)),
		Status:      model.StatusUpcoming,
	})
}

func decodeObject(content string) (structuredEvent, error) {
	var payload structuredEvent
	trimmed := bytes.TrimSpace([]byte(content))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return payload, errors.New("reply is not a JSON object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&payload); err != nil {
		return payload, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return payload, errors.New("unexpected data after JSON object")
	}
	return payload, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
