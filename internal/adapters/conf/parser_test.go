package conf

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

func TestParseAccepts(t *testing.T) {
	cases := []struct {
		name   string
		config string
		check  func(t *testing.T, a *domain.Agent)
	}{
		{
			name:   "comment after value",
			config: "name=hi # comment\n",
			check:  wantName("hi"),
		},
		{
			name:   "quoted value with space",
			config: "name=\"hello world\"\n",
			check:  wantName("hello world"),
		},
		{
			name:   "escaped quote",
			config: `name="\""` + "\n",
			check:  wantName(`"`),
		},
		{
			name:   "escaped backslash",
			config: `name="a\\b"`,
			check:  wantName(`a\b`),
		},
		{
			name:   "escape outside quotes",
			config: `name = a\ b`,
			check:  wantName("a b"),
		},
		{
			name:   "hash inside quotes",
			config: `name = "#1" # real comment`,
			check:  wantName("#1"),
		},
		{
			name:   "empty quoted value",
			config: `name = ""`,
			check:  wantName(""),
		},
		{
			name:   "tabs and indentation",
			config: "name = hi\n data  = datavalue\ntype = int",
			check: func(t *testing.T, a *domain.Agent) {
				if a.Name != "hi" || a.Data != domain.DataValue || a.Type != domain.TypeInt {
					t.Fatalf("unexpected agent %+v", a)
				}
			},
		},
		{
			name:   "timing",
			config: "timing = interval \ntiming.value = 60",
			check: func(t *testing.T, a *domain.Agent) {
				if a.Timing.Type != domain.TimingInterval || a.Timing.IntervalSeconds != 60 {
					t.Fatalf("unexpected timing %+v", a.Timing)
				}
			},
		},
		{
			name:   "message table",
			config: "messages.warning.1 = hi",
			check: func(t *testing.T, a *domain.Agent) {
				m, ok := a.Message(1)
				if !ok || m.Class != domain.SeverityWarning || m.Template != "hi" {
					t.Fatalf("unexpected message table %+v", a.Messages)
				}
			},
		},
		{
			name:   "message code bounds",
			config: "messages.info.0 = low\nmessages.emergency.255 = \"%m (%v)\"",
			check: func(t *testing.T, a *domain.Agent) {
				if a.Messages[0].Class != domain.SeverityInfo || a.Messages[255].Template != "%m (%v)" {
					t.Fatalf("unexpected message table %+v", a.Messages)
				}
			},
		},
		{
			name:   "blank and comment lines",
			config: "\n   \n# only a comment\n\t# indented comment\nname = x",
			check:  wantName("x"),
		},
		{
			name:   "unknown key ignored",
			config: "color = blue\nname = x",
			check:  wantName("x"),
		},
		{
			name:   "script",
			config: `script = "echo 1"`,
			check: func(t *testing.T, a *domain.Agent) {
				if a.Script != "echo 1" {
					t.Fatalf("unexpected script %q", a.Script)
				}
			},
		},
		{
			name:   "crlf line endings",
			config: "name = x\r\ntype = double\r\n",
			check: func(t *testing.T, a *domain.Agent) {
				if a.Name != "x" || a.Type != domain.TypeDouble {
					t.Fatalf("unexpected agent %+v", a)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Parse(tc.config)
			if err != nil {
				t.Fatalf("parse %q: %v", tc.config, err)
			}
			tc.check(t, a)
		})
	}
}

func TestParseRejectsStructure(t *testing.T) {
	cases := []struct {
		config string
		kind   ParseErrorKind
		line   int
	}{
		{"name = = hi", UnexpectedChar, 1},
		{"= hi", UnexpectedChar, 1},
		{"name type = hi", UnexpectedToken, 1},
		{"name = hello world", UnexpectedToken, 1},
		{`name = "a"b`, UnexpectedToken, 1},
		{`name = a"b"`, UnexpectedChar, 1},
		{`"name" "x" = y`, UnexpectedChar, 1},
		{"name = \"open", UnterminatedQuote, 1},
		{"name = x\nname", MissingSeparator, 2},
		{"name =   # nothing", MissingValue, 1},
		{"name = x\n\nname = a b", UnexpectedToken, 3},
	}
	for _, tc := range cases {
		_, err := Parse(tc.config)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%q: expected ParseError, got %v", tc.config, err)
		}
		if perr.Kind != tc.kind || perr.Line != tc.line {
			t.Fatalf("%q: got %s on line %d, want %s on line %d", tc.config, perr.Kind, perr.Line, tc.kind, tc.line)
		}
	}
}

func TestParseErrorColumn(t *testing.T) {
	_, err := Parse("name = = hi")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Column != 8 {
		t.Fatalf("expected error at column 8, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 1:8") {
		t.Fatalf("error text lacks position: %s", err)
	}
}

func TestParseRejectsSemantics(t *testing.T) {
	cases := []struct {
		config string
		kind   SemanticErrorKind
	}{
		{"messages.warning.300", CodeOutOfRange},
		{"messages.warning.-1 = x", CodeOutOfRange},
		{"messages.warning.99999999999999999999999 = x", CodeOutOfRange},
		{"messages.nothing.1", UnknownEnumValue},
		{"messages.warning.x", InvalidNumber},
		{"messages.warning.x = hi", InvalidNumber},
		{"messages.meta.1 = x", ReservedClass},
		{"messages.warning = x", KeyPathMalformed},
		{"messages.warning.1.2 = x", KeyPathMalformed},
		{"messagesblabla.warning.1 = hi", KeyPathMalformed},
		{"type=error", UnknownEnumValue},
		{"data = everything", UnknownEnumValue},
		{"timing = cron", UnknownEnumValue},
		{"timing.value=hi", InvalidNumber},
		{"timing.value = 60s", InvalidNumber},
		{"timing.value = -5", InvalidNumber},
		{"timing.value = 9223372037", InvalidNumber},
		{"timing.value = 18446744074", InvalidNumber},
	}
	for _, tc := range cases {
		_, err := Parse(tc.config)
		var serr *SemanticError
		if !errors.As(err, &serr) {
			t.Fatalf("%q: expected SemanticError, got %v", tc.config, err)
		}
		if serr.Kind != tc.kind {
			t.Fatalf("%q: got %s, want %s", tc.config, serr.Kind, tc.kind)
		}
	}
}

func TestParseLongestInterval(t *testing.T) {
	a, err := Parse("timing.value = 9223372036")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := a.Timing.Interval(); got <= 0 || got != time.Duration(domain.MaxIntervalSeconds)*time.Second {
		t.Fatalf("interval = %s", got)
	}
}

func TestParseStopsAtFirstError(t *testing.T) {
	a, err := Parse("name = ok\ntype = nope\ndata = alsonope")
	if a != nil {
		t.Fatalf("expected no agent on error, got %+v", a)
	}
	var serr *SemanticError
	if !errors.As(err, &serr) || serr.Line != 2 || serr.Key != "type" {
		t.Fatalf("expected error on line 2 for type, got %v", err)
	}
}

func TestParseValidMessageKeyWithoutSeparator(t *testing.T) {
	_, err := Parse("messages.warning.1")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Kind != MissingSeparator {
		t.Fatalf("expected MissingSeparator, got %v", err)
	}
}

func TestParseStrictMode(t *testing.T) {
	_, err := Parse("name = x\ncolour = red", WithStrict(true))
	var serr *SemanticError
	if !errors.As(err, &serr) || serr.Kind != UnknownKey || serr.Line != 2 {
		t.Fatalf("expected UnknownKey on line 2, got %v", err)
	}
	if _, err := Parse("name = x\ncolour = red", WithStrict(false)); err != nil {
		t.Fatalf("lenient parse: %v", err)
	}
}

func TestParseDuplicateCodeLastWins(t *testing.T) {
	a, err := Parse("messages.info.7 = first\nmessages.alarm.7 = second")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m := a.Messages[7]; m.Class != domain.SeverityAlarm || m.Template != "second" {
		t.Fatalf("unexpected message %+v", m)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.conf")
	data := `
name = "disk usage"
data = datavalue
type = double
timing = interval
timing.value = 30
script = "df --output=pcent / | tail -1"
messages.warning.1 = "Disk is filling up (%v%%)"
messages.alarm.2 = "%m"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write agent: %v", err)
	}
	a, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.Name != "disk usage" || a.Timing.Interval().Seconds() != 30 || len(a.Messages) != 2 {
		t.Fatalf("unexpected agent %+v", a)
	}

	if err := os.WriteFile(path, []byte("name = = x"), 0o600); err != nil {
		t.Fatalf("rewrite agent: %v", err)
	}
	_, err = ParseFile(path)
	var perr *ParseError
	if !errors.As(err, &perr) || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected wrapped ParseError naming the file, got %v", err)
	}
}

func wantName(name string) func(t *testing.T, a *domain.Agent) {
	return func(t *testing.T, a *domain.Agent) {
		t.Helper()
		if a.Name != name {
			t.Fatalf("name = %q, want %q", a.Name, name)
		}
	}
}
