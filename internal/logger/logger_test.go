package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestActivitySinkFormat(t *testing.T) {
	var console, activity bytes.Buffer
	log := NewWithCallback("apiclient", func() bool { return false })
	log.SetOutput(&console)
	log.SetActivityOutput(&activity)

	log.DebugWithFields("request completed", []Field{
		Status(200), Path("/api/alerts/filter-options"), F("method", "GET"),
	})

	if console.Len() != 0 {
		t.Errorf("debug line reached the console without --verbose: %q", console.String())
	}

	line := strings.TrimSpace(activity.String())
	fields := strings.SplitN(line, " ", 2)
	ts := strings.TrimPrefix(fields[0], "time=")
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("time field %q: %v", ts, err)
	}

	want := `level=debug component=apiclient msg="request completed" method=GET path=/api/alerts/filter-options status=200`
	if fields[1] != want {
		t.Errorf("activity line = %q, want %q", fields[1], want)
	}
}

func TestQuoteLogfmt(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"", `""`},
		{"two words", `"two words"`},
		{"a=b", `"a=b"`},
		{`origin "https://x"`, `"origin 'https://x'"`},
		{"line one\nline two", `"line one line two"`},
		{`C:\temp dir\`, `"C:\temp dir"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := quoteLogfmt(tt.in); got != tt.want {
				t.Errorf("quoteLogfmt(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetOutputReachesDerivedLoggers(t *testing.T) {
	var first, second bytes.Buffer
	log := NewWithCallback("main", func() bool { return true })
	log.SetOutput(&first)
	child := log.WithComponent("session")

	log.SetOutput(&second)
	child.Warn("token file changed")

	if first.Len() != 0 {
		t.Errorf("old writer received %q", first.String())
	}
	if !strings.Contains(second.String(), "WARN [session] token file changed") {
		t.Errorf("console = %q", second.String())
	}

	log.SetOutput(nil)
	child.Error("dropped")
	if strings.Contains(second.String(), "dropped") {
		t.Error("nil output should silence the console")
	}
}
