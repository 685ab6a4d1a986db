package model

import "errors"

// Kind identifies which variant of an Outcome is populated.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindNeedsClarification
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNeedsClarification:
		return "needs_clarification"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one extraction attempt. Exactly one variant is
// populated; use the accessors, which report ok=false for the wrong one.
type Outcome struct {
	kind    Kind
	event   ExtractedEvent
	message string
	err     error
}

// Success wraps a fully extracted event.
func Success(ev ExtractedEvent) Outcome {
	return Outcome{kind: KindSuccess, event: ev}
}

// NeedsClarification reports input too ambiguous to produce an event.
func NeedsClarification(message string) Outcome {
	return Outcome{kind: KindNeedsClarification, message: message}
}

// Failure reports a system or environment fault. A nil err is replaced by
// a generic error so Err never returns nil for this variant.
func Failure(err error) Outcome {
	if err == nil {
		err = errors.New("extraction failed")
	}
	return Outcome{kind: KindFailure, err: err}
}

func (o Outcome) Kind() Kind { return o.kind }

func (o Outcome) Event() (ExtractedEvent, bool) {
	if o.kind != KindSuccess {
		return ExtractedEvent{}, false
	}
	return o.event, true
}

func (o Outcome) Clarification() (string, bool) {
	if o.kind != KindNeedsClarification {
		return "", false
	}
	return o.message, true
}

// Err returns the failure cause, or nil for the other variants.
func (o Outcome) Err() error {
	if o.kind != KindFailure {
		return nil
	}
	return o.err
}
