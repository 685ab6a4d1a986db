package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nlevent/internal/config"
	"nlevent/internal/ics"
	appLog "nlevent/internal/log"
	"nlevent/internal/metrics"
	"nlevent/internal/model"
	"nlevent/internal/service"
	"nlevent/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	text       string
	format     string
	now        string
}

func main() {
	flags := parseFlags()

	if loaded := config.LoadDotEnv(flags.envFile); len(loaded) > 0 {
		appLog.Debug("loaded env files", "files", loaded)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// First run without write access: keep going on defaults.
		appLog.Error("failed to write default config", err, "config_path", flags.configPath)
	}
	conf.ApplyEnv()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetJSON(conf.LogJSON)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"version", version,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"remote", conf.HasCredential(),
		"model", conf.LLM.Model,
		"timeout_seconds", conf.LLM.TimeoutSeconds,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := service.NewFromConfig(conf, metrics.New(reg))

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.text != "" {
		code := runOnce(ctx, svc, conf, flags, os.Stdout, os.Stderr)
		stop()
		os.Exit(code)
	}

	srv, err := web.NewServer(conf, svc, reg)
	if err != nil {
		appLog.Error("failed to build HTTP server", err)
		os.Exit(1)
	}
	if err := srv.Serve(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}
	appLog.Info("nlevent exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/nlevent/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env-file", ".env", "Optional .env file with OPENAI_* variables")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.text, "text", "", "Parse this text once, print the result and exit")
	flag.StringVar(&cfg.format, "format", "json", "Output format for -text: json or ics")
	flag.StringVar(&cfg.now, "now", "", "Reference time for -text (RFC 3339); defaults to the current time")

	flag.Parse()

	return cfg
}

// onceOutput is what -text prints in json format.
type onceOutput struct {
	Outcome       string          `json:"outcome"`
	Event         *onceEventValue `json:"event,omitempty"`
	Clarification string          `json:"clarification,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type onceEventValue struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
}

// runOnce parses flags.text and writes the result. It returns the process
// exit code: 0 on success, 2 when clarification is needed, 1 otherwise.
func runOnce(ctx context.Context, svc *service.Service, conf *config.Config, flags flagConfig, stdout, stderr io.Writer) int {
	now, err := referenceTime(conf, flags.now)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	out := svc.ParseEvent(ctx, flags.text, now)

	if msg, ok := out.Clarification(); ok {
		if flags.format == "ics" {
			fmt.Fprintln(stderr, msg)
			return 2
		}
		_ = writeOnceJSON(stdout, onceOutput{Outcome: out.Kind().String(), Clarification: msg})
		return 2
	}

	ev, ok := out.Event()
	if !ok {
		fmt.Fprintln(stderr, "event extraction failed:", out.Err())
		return 1
	}

	switch flags.format {
	case "ics":
		body, err := ics.Export(ev, "", ics.DefaultDuration, time.Now())
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		_, _ = io.WriteString(stdout, body)
	case "json", "":
		if err := writeOnceJSON(stdout, onceOutput{Outcome: out.Kind().String(), Event: eventValue(ev)}); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "unknown format %q\n", flags.format)
		return 1
	}
	return 0
}

func eventValue(ev model.ExtractedEvent) *onceEventValue {
	return &onceEventValue{
		Title:       ev.Title,
		Description: ev.Description,
		Date:        ev.Date,
		Location:    ev.Location,
		Status:      string(ev.Status),
	}
}

func writeOnceJSON(w io.Writer, v onceOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// referenceTime resolves -now, or the current time in the configured zone.
func referenceTime(conf *config.Config, raw string) (time.Time, error) {
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", conf.Timezone)
	}
	if raw == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("-now must be RFC 3339, e.g. 2024-01-10T08:00:00Z")
	}
	return t, nil
}
