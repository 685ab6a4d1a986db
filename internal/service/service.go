// Package service is the public entry point for turning free text into
// events. It picks the remote or heuristic tier per call and absorbs remote
// failures by re-running the heuristic tier.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nlevent/internal/config"
	"nlevent/internal/extract"
	"nlevent/internal/llm"
	appLog "nlevent/internal/log"
	"nlevent/internal/model"
)

const descriptionSystemPrompt = "You are a helpful assistant that creates brief, professional event descriptions."

// Recorder receives observations about extraction activity. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveExtraction(tier string, kind model.Kind)
	ObserveFallback(cause error)
	ObserveRemoteLatency(d time.Duration)
	ObserveDescription(source string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveExtraction(string, model.Kind) {}
func (nopRecorder) ObserveFallback(error)                {}
func (nopRecorder) ObserveRemoteLatency(time.Duration)   {}
func (nopRecorder) ObserveDescription(string)            {}

type Options struct {
	// Completer talks to the hosted model. Nil means no credential is
	// configured and no remote call is ever attempted.
	Completer llm.Completer
	// Timeout bounds each remote call; llm.DefaultTimeout when zero.
	Timeout  time.Duration
	Recorder Recorder
}

// Service extracts events from free text.
type Service struct {
	remote    extract.Extractor
	heuristic extract.Extractor
	completer llm.Completer
	timeout   time.Duration
	rec       Recorder
}

func New(opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	s := &Service{
		heuristic: extract.NewHeuristic(),
		completer: opts.Completer,
		timeout:   timeout,
		rec:       rec,
	}
	if opts.Completer != nil {
		s.remote = extract.NewRemote(opts.Completer, timeout)
	}
	return s
}

// NewFromConfig wires an LLM client only when cfg carries a credential.
func NewFromConfig(cfg *config.Config, rec Recorder) *Service {
	opts := Options{Timeout: cfg.LLMTimeout(), Recorder: rec}
	if cfg.HasCredential() {
		opts.Completer = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	}
	return New(opts)
}

// RemoteEnabled reports whether the remote tier is configured.
func (s *Service) RemoteEnabled() bool {
	return s.remote != nil
}

// ParseEvent extracts an event from text, resolving relative dates against
// now. A remote Failure is answered once by the heuristic tier; a remote
// NeedsClarification is returned unchanged. It never returns Failure when
// the heuristic tier ran.
func (s *Service) ParseEvent(ctx context.Context, text string, now time.Time) model.Outcome {
	req := model.Request{Text: strings.TrimSpace(text), Now: now}
	if req.Text == "" {
		return s.run(ctx, s.heuristic, req)
	}

	remote := s.remote
	if remote == nil {
		return s.run(ctx, s.heuristic, req)
	}

	started := time.Now()
	out := s.run(ctx, remote, req)
	s.rec.ObserveRemoteLatency(time.Since(started))
	if out.Kind() != model.KindFailure {
		return out
	}

	s.rec.ObserveFallback(out.Err())
	appLog.Error("remote extraction failed; using heuristic tier", out.Err())
	return s.run(ctx, s.heuristic, req)
}

func (s *Service) run(ctx context.Context, ex extract.Extractor, req model.Request) model.Outcome {
	out := ex.Extract(ctx, req)
	s.rec.ObserveExtraction(ex.Name(), out.Kind())
	appLog.Debug("extraction finished", "tier", ex.Name(), "outcome", out.Kind().String())
	return out
}

// EnhanceDescription asks the model for a short description of the event.
// Any failure, including a missing credential, yields "Event: {title}"
// with " at {location}" appended when location is set.
func (s *Service) EnhanceDescription(ctx context.Context, title, location string) string {
	title = strings.TrimSpace(title)
	location = strings.TrimSpace(location)
	fallback := FallbackDescription(title, location)

	if s.completer == nil || title == "" {
		s.rec.ObserveDescription("fallback")
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	subject := fmt.Sprintf("'%s'", title)
	if location != "" {
		subject += " at " + location
	}
	text, err := s.completer.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: descriptionSystemPrompt},
			{Role: "user", Content: "Write a friendly, professional event description for " + subject + ". Keep it under 100 words and make it helpful."},
		},
		Temperature: 0.3,
		MaxTokens:   150,
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			appLog.Error("description enhancement failed", err, "title", title)
		}
		s.rec.ObserveDescription("fallback")
		return fallback
	}
	s.rec.ObserveDescription("remote")
	return text
}

// FallbackDescription is the deterministic description used without a model.
func FallbackDescription(title, location string) string {
	desc := "Event: " + title
	if location != "" {
		desc += " at " + location
	}
	return desc
}
