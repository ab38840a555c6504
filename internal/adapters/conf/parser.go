// Package conf parses agent definitions.
//
// An agent definition is a list of `key = value` lines:
//
//	name = "Agent1"           # strings in quotes
//	data = datavalue          # none, message, datavalue, property
//	type = int                # void, int, double, string
//	timing = interval         # the only timing mode
//	timing.value = 60         # seconds
//	messages.warning.1 = "Value is too high (%v)."
//	messages.error.10 = "%m"
//
// Parsing stops at the first error and never returns a partial agent.
package conf

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

const messagesKey = "messages"

type options struct {
	strict bool
}

// Option tunes the parser.
type Option func(*options)

// WithStrict makes unknown keys an error instead of ignoring them.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// Parse turns configuration text into an agent. The returned agent shares
// no memory with text.
func Parse(text string, opts ...Option) (*domain.Agent, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	agent := &domain.Agent{Messages: make(map[uint8]domain.Message)}
	for i, line := range strings.Split(text, "\n") {
		lineNr := i + 1
		lx := lineLexer{
			line: lineNr,
			onKey: func(key string) error {
				if !strings.HasPrefix(key, messagesKey) {
					return nil
				}
				_, _, err := parseMessageKey(lineNr, key)
				return err
			},
		}
		key, value, ok, err := lx.lex(line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := bind(agent, lineNr, key, value, o); err != nil {
			return nil, err
		}
	}
	return agent, nil
}

// ParseFile reads and parses the agent definition at path.
func ParseFile(path string, opts ...Option) (*domain.Agent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	agent, err := Parse(string(raw), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return agent, nil
}

func bind(agent *domain.Agent, line int, key, value string, o options) error {
	switch key {
	case "name":
		agent.Name = value
	case "script":
		agent.Script = value
	case "type":
		t, ok := domain.ParseValueType(value)
		if !ok {
			return semantic(line, key, UnknownEnumValue, "unknown type %q", value)
		}
		agent.Type = t
	case "data":
		d, ok := domain.ParseDataKind(value)
		if !ok {
			return semantic(line, key, UnknownEnumValue, "unknown data kind %q", value)
		}
		agent.Data = d
	case "timing":
		if value != "interval" {
			return semantic(line, key, UnknownEnumValue, "unknown timing mode %q", value)
		}
		agent.Timing.Type = domain.TimingInterval
	case "timing.value":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return semantic(line, key, InvalidNumber, "must be a number, got %q", value)
		}
		if n > domain.MaxIntervalSeconds {
			return semantic(line, key, InvalidNumber, "%d seconds is longer than the maximum %d", n, domain.MaxIntervalSeconds)
		}
		agent.Timing.IntervalSeconds = n
	default:
		if strings.HasPrefix(key, messagesKey) {
			class, code, err := parseMessageKey(line, key)
			if err != nil {
				return err
			}
			agent.Messages[code] = domain.Message{Class: class, Template: value}
			return nil
		}
		if o.strict {
			return semantic(line, key, UnknownKey, "unknown key")
		}
	}
	return nil
}

// parseMessageKey validates messages.<class>.<code>.
func parseMessageKey(line int, key string) (domain.SeverityClass, uint8, error) {
	parts := strings.Split(key, ".")
	switch {
	case len(parts) > 3:
		return 0, 0, semantic(line, key, KeyPathMalformed, "too many components, want messages.<class>.<code>")
	case len(parts) < 3:
		return 0, 0, semantic(line, key, KeyPathMalformed, "too few components, want messages.<class>.<code>")
	case parts[0] != messagesKey:
		return 0, 0, semantic(line, key, KeyPathMalformed, "key must start with %q", messagesKey+".")
	}

	class, ok := domain.ParseSeverityClass(parts[1])
	if !ok {
		return 0, 0, semantic(line, key, UnknownEnumValue, "unknown class %q", parts[1])
	}
	if class == domain.SeverityMeta {
		return 0, 0, semantic(line, key, ReservedClass, "reserved class %q", parts[1])
	}

	code, err := strconv.Atoi(parts[2])
	if errors.Is(err, strconv.ErrRange) {
		return 0, 0, semantic(line, key, CodeOutOfRange, "code %s outside 0-%d", parts[2], domain.MaxMessageCode)
	}
	if err != nil {
		return 0, 0, semantic(line, key, InvalidNumber, "code must be a number, got %q", parts[2])
	}
	if code < 0 || code > domain.MaxMessageCode {
		return 0, 0, semantic(line, key, CodeOutOfRange, "code %d outside 0-%d", code, domain.MaxMessageCode)
	}
	return class, uint8(code), nil
}

func semantic(line int, key string, kind SemanticErrorKind, format string, args ...any) error {
	return &SemanticError{Line: line, Key: key, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
