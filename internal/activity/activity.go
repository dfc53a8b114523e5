// Package activity summarises the logfmt activity log written by the logger.
package activity

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yildizm/go-logparser"
)

// Messages the API client logs for every request
const (
	msgCompleted = "request completed"
	msgFailed    = "request failed"
)

// DefaultRecent is how many warnings and errors a summary keeps
const DefaultRecent = 10

// Event is one warning or error line
type Event struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Endpoint aggregates requests against one API path
type Endpoint struct {
	Path     string         `json:"path"`
	Requests int            `json:"requests"`
	Failures int            `json:"failures"`
	Statuses map[int]int    `json:"statuses,omitempty"`
	Latency  LatencySummary `json:"latency"`

	durations []float64
}

// Summary is what the activity log says about recent runs
type Summary struct {
	Entries     int            `json:"entries"`
	First       time.Time      `json:"first,omitempty"`
	Last        time.Time      `json:"last,omitempty"`
	ByLevel     map[string]int `json:"by_level"`
	ByComponent map[string]int `json:"by_component"`
	Requests    int            `json:"requests"`
	Failures    int            `json:"failures"`
	Endpoints   []*Endpoint    `json:"endpoints"`
	Recent      []Event        `json:"recent,omitempty"`
}

// Options tunes Summarize
type Options struct {
	Since  time.Time
	Recent int
}

// SummarizeFile reads and summarises the activity log at path
func SummarizeFile(path string, opts Options) (*Summary, error) {
	// #nosec G304 - path comes from configuration or a flag
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Summarize(f, opts)
}

// Summarize parses logfmt lines from r and aggregates them
func Summarize(r io.Reader, opts Options) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	s := &Summary{
		ByLevel:     make(map[string]int),
		ByComponent: make(map[string]int),
	}
	if strings.TrimSpace(string(data)) == "" {
		return s, nil
	}

	p := logparser.NewWithFormat(logparser.FormatLogfmt)
	entries, err := p.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse activity log: %w", err)
	}

	recent := opts.Recent
	if recent <= 0 {
		recent = DefaultRecent
	}

	endpoints := make(map[string]*Endpoint)
	for i := range entries {
		e := &entries[i]
		ts := timestamp(e)
		if !opts.Since.IsZero() && !ts.IsZero() && ts.Before(opts.Since) {
			continue
		}

		s.Entries++
		if !ts.IsZero() {
			if s.First.IsZero() || ts.Before(s.First) {
				s.First = ts
			}
			if ts.After(s.Last) {
				s.Last = ts
			}
		}

		level := strings.ToUpper(firstNonEmpty(e.Level, field(e, "level")))
		component := field(e, "component")
		msg := firstNonEmpty(e.Message, field(e, "msg"))
		s.ByLevel[level]++
		if component != "" {
			s.ByComponent[component]++
		}

		if ev := (Event{Time: ts, Level: level, Component: component, Message: msg}); ev.Problem() {
			s.Recent = append(s.Recent, ev)
			if len(s.Recent) > recent {
				s.Recent = s.Recent[1:]
			}
		}

		switch msg {
		case msgCompleted, msgFailed:
		default:
			continue
		}

		path := field(e, "path")
		ep, ok := endpoints[path]
		if !ok {
			ep = &Endpoint{Path: path, Statuses: make(map[int]int)}
			endpoints[path] = ep
		}
		ep.Requests++
		s.Requests++

		if msg == msgFailed {
			ep.Failures++
			s.Failures++
			continue
		}
		if status, err := strconv.Atoi(field(e, "status")); err == nil {
			ep.Statuses[status]++
			if status >= 400 {
				ep.Failures++
				s.Failures++
			}
		}
		if d, err := time.ParseDuration(field(e, "duration")); err == nil {
			ep.durations = append(ep.durations, float64(d.Milliseconds()))
		}
	}

	for _, ep := range endpoints {
		ep.Latency = summarizeLatency(ep.durations)
		s.Endpoints = append(s.Endpoints, ep)
	}
	sort.Slice(s.Endpoints, func(i, j int) bool {
		if s.Endpoints[i].Requests != s.Endpoints[j].Requests {
			return s.Endpoints[i].Requests > s.Endpoints[j].Requests
		}
		return s.Endpoints[i].Path < s.Endpoints[j].Path
	})

	return s, nil
}

// FailureRate is the share of requests that failed, 0..100
func (s *Summary) FailureRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Requests) * 100
}

// Levels returns the seen levels in a stable order
func (s *Summary) Levels() []string {
	order := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	levels := make([]string, 0, len(s.ByLevel))
	for l := range s.ByLevel {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool {
		oi, iok := order[levels[i]]
		oj, jok := order[levels[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return levels[i] < levels[j]
	})
	return levels
}

func timestamp(e *logparser.LogEntry) time.Time {
	if !e.Timestamp.IsZero() {
		return e.Timestamp
	}
	if ts, err := time.Parse(time.RFC3339Nano, field(e, "time")); err == nil {
		return ts
	}
	return time.Time{}
}

func field(e *logparser.LogEntry, key string) string {
	if e.Fields == nil {
		return ""
	}
	v, ok := e.Fields[key]
	if !ok || v == nil {
		return ""
	}
	return strings.Trim(fmt.Sprint(v), `"`)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Parse turns logfmt lines into events, oldest first
func Parse(text string) ([]Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	entries, err := logparser.NewWithFormat(logparser.FormatLogfmt).ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse activity log: %w", err)
	}

	events := make([]Event, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		events = append(events, Event{
			Time:      timestamp(e),
			Level:     strings.ToUpper(firstNonEmpty(e.Level, field(e, "level"))),
			Component: field(e, "component"),
			Message:   firstNonEmpty(e.Message, field(e, "msg")),
		})
	}
	return events, nil
}

// Problem reports whether e is a warning or an error
func (e Event) Problem() bool {
	return e.Level == "WARN" || e.Level == "ERROR"
}
