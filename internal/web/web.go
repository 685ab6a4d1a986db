package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nlevent/internal/config"
	"nlevent/internal/ics"
	appLog "nlevent/internal/log"
	"nlevent/internal/model"
	"nlevent/internal/service"
)

// maxBodyBytes bounds request bodies on the JSON endpoints.
const maxBodyBytes = 64 << 10

// Server exposes the extraction service over HTTP.
type Server struct {
	cfg      *config.Config
	svc      *service.Service
	gatherer prometheus.Gatherer
	mux      *http.ServeMux

	// now yields the reference time for requests that do not carry one.
	now func() time.Time

	// Enhanced descriptions keyed by title and location. Only model-written
	// text is cached so a transient failure is retried on the next call.
	descriptions *lru.Cache[string, string]
}

// NewServer constructs a new Server. gatherer may be nil, in which case
// /metrics is not registered.
func NewServer(cfg *config.Config, svc *service.Service, gatherer prometheus.Gatherer) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if svc == nil {
		return nil, errors.New("service is nil")
	}
	cache, err := lru.New[string, string](cfg.DescribeCacheSize)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}

	s := &Server{
		cfg:          cfg,
		svc:          svc,
		gatherer:     gatherer,
		mux:          http.NewServeMux(),
		now:          func() time.Time { return time.Now().In(loc) },
		descriptions: cache,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="nlevent", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs an HTTP server on cfg.Listen until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "remote", s.svc.RemoteEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/parse", s.handleParse)
	s.mux.HandleFunc("/api/parse.ics", s.handleParseICS)
	s.mux.HandleFunc("/api/enhance-description", s.handleEnhanceDescription)
	s.mux.HandleFunc("/api/import.ics", s.handleImportICS)
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// parseRequest is the JSON body for /api/parse and /api/parse.ics.
type parseRequest struct {
	Text string `json:"text"`
	// Now optionally pins the reference time (RFC 3339).
	Now string `json:"now,omitempty"`
}

// parseResponse is the JSON response shape for /api/parse.
type parseResponse struct {
	Success       bool      `json:"success"`
	Outcome       string    `json:"outcome"`
	Event         *eventDTO `json:"event,omitempty"`
	Clarification string    `json:"clarification,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// eventDTO is a JSON-friendly view of model.ExtractedEvent.
type eventDTO struct {
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Date          time.Time `json:"date"`
	Location      string    `json:"location,omitempty"`
	Status        string    `json:"status"`
	FormattedDate string    `json:"formatted_date"`
	ShortDate     string    `json:"short_date"`
	Past          bool      `json:"past"`
}

func toDTO(ev model.ExtractedEvent, now time.Time) *eventDTO {
	return &eventDTO{
		Title:         ev.Title,
		Description:   ev.Description,
		Date:          ev.Date,
		Location:      ev.Location,
		Status:        string(ev.Status),
		FormattedDate: ev.FormattedDate(),
		ShortDate:     ev.ShortDate(),
		Past:          ev.IsPast(now),
	}
}

// handleParse extracts an event from free text.
//
// POST /api/parse {"text": "...", "now": "2024-01-10T08:00:00Z"}
//   - 200 with the event on success
//   - 422 with a clarification prompt when the text is incomplete
//   - 502 when no tier produced an answer
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	out, now, ok := s.parse(w, r)
	if !ok {
		return
	}
	s.writeOutcome(w, out, now)
}

// handleParseICS is handleParse with a text/calendar body on success.
func (s *Server) handleParseICS(w http.ResponseWriter, r *http.Request) {
	out, now, ok := s.parse(w, r)
	if !ok {
		return
	}
	ev, isEvent := out.Event()
	if !isEvent {
		s.writeOutcome(w, out, now)
		return
	}

	body, err := ics.Export(ev, "", ics.DefaultDuration, time.Now())
	if err != nil {
		appLog.Error("ics export failed", err, "title", ev.Title)
		writeError(w, http.StatusInternalServerError, "failed to export event")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) (model.Outcome, time.Time, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return model.Outcome{}, time.Time{}, false
	}

	var req parseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return model.Outcome{}, time.Time{}, false
	}

	now := s.now()
	if req.Now != "" {
		t, err := time.Parse(time.RFC3339, req.Now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be RFC 3339")
			return model.Outcome{}, time.Time{}, false
		}
		now = t
	}

	out := s.svc.ParseEvent(r.Context(), req.Text, now)
	appLog.Info("api parse request", "outcome", out.Kind().String(), "chars", len(req.Text))
	return out, now, true
}

func (s *Server) writeOutcome(w http.ResponseWriter, out model.Outcome, now time.Time) {
	resp := parseResponse{Outcome: out.Kind().String()}
	if ev, ok := out.Event(); ok {
		resp.Success = true
		resp.Event = toDTO(ev, now)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if msg, ok := out.Clarification(); ok {
		resp.Clarification = msg
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Error = "event extraction failed"
	writeJSON(w, http.StatusBadGateway, resp)
}

type enhanceRequest struct {
	Title    string `json:"title"`
	Location string `json:"location"`
}

type enhanceResponse struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
}

// handleEnhanceDescription returns a short description for an event. It
// always succeeds once a title is given; failures fall back to
// "Event: {title}".
func (s *Server) handleEnhanceDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req enhanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	title := strings.TrimSpace(req.Title)
	location := strings.TrimSpace(req.Location)
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	key := title + "\x00" + location
	if desc, ok := s.descriptions.Get(key); ok {
		writeJSON(w, http.StatusOK, enhanceResponse{Success: true, Description: desc})
		return
	}

	desc := s.svc.EnhanceDescription(r.Context(), title, location)
	if desc != service.FallbackDescription(title, location) {
		s.descriptions.Add(key, desc)
	}
	writeJSON(w, http.StatusOK, enhanceResponse{Success: true, Description: desc})
}

// importResponse is the JSON response shape for /api/import.ics.
type importResponse struct {
	Success bool       `json:"success"`
	Events  []eventDTO `json:"events"`
}

// handleImportICS reads an iCalendar document (for example one produced by
// /api/parse.ics) and returns its events in the /api/parse event shape.
//
// POST /api/import.ics with a text/calendar body.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "calendar body too large")
		return
	}
	events, err := ics.Decode(body)
	if err != nil {
		appLog.Error("ics import failed", err)
		writeError(w, http.StatusBadRequest, "invalid iCalendar body")
		return
	}

	now := s.now()
	resp := importResponse{Success: true, Events: make([]eventDTO, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, *toDTO(ev, now))
	}
	appLog.Info("api import request", "event_count", len(resp.Events))
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
