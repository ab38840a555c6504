package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DataKind tells the receiving side how to interpret an agent's packets.
// Values are written to the wire verbatim.
type DataKind uint8

const (
	DataNone      DataKind = 0
	DataMessage   DataKind = 1
	DataValue     DataKind = 2
	DataProperty  DataKind = 3
	dataKindCount          = 4
)

func (d DataKind) String() string {
	switch d {
	case DataNone:
		return "none"
	case DataMessage:
		return "message"
	case DataValue:
		return "datavalue"
	case DataProperty:
		return "property"
	default:
		return fmt.Sprintf("DataKind(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the declared data kinds.
func (d DataKind) Valid() bool { return d < dataKindCount }

// ParseDataKind maps the configuration spelling of a data kind.
func ParseDataKind(s string) (DataKind, bool) {
	switch s {
	case "none":
		return DataNone, true
	case "message":
		return DataMessage, true
	case "datavalue":
		return DataValue, true
	case "property":
		return DataProperty, true
	}
	return DataNone, false
}

// ValueType is the type of the raw value an agent samples.
type ValueType uint8

const (
	TypeVoid       ValueType = 0
	TypeInt        ValueType = 1
	TypeDouble     ValueType = 2
	TypeString     ValueType = 3
	valueTypeCount           = 4
)

func (t ValueType) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

func (t ValueType) Valid() bool { return t < valueTypeCount }

func ParseValueType(s string) (ValueType, bool) {
	switch s {
	case "void":
		return TypeVoid, true
	case "int":
		return TypeInt, true
	case "double":
		return TypeDouble, true
	case "string":
		return TypeString, true
	}
	return TypeVoid, false
}

// SeverityClass orders messages from informational to emergency. Meta is
// reserved for the agent runtime and cannot be configured.
type SeverityClass int

const (
	SeverityMeta SeverityClass = iota
	SeverityInfo
	SeverityWarning
	SeverityAlarm
	SeverityError
	SeverityEmergency
)

var severityNames = [...]string{"meta", "info", "warning", "alarm", "error", "emergency"}

func (c SeverityClass) String() string {
	if c < SeverityMeta || c > SeverityEmergency {
		return fmt.Sprintf("SeverityClass(%d)", int(c))
	}
	return severityNames[c]
}

func (c SeverityClass) Valid() bool { return c >= SeverityMeta && c <= SeverityEmergency }

// WireCode is the numeric class used by receivers: 0, 5, 10, ... 25.
func (c SeverityClass) WireCode() uint8 {
	if !c.Valid() {
		panic(fmt.Sprintf("domain: severity class %d outside declared set", int(c)))
	}
	return uint8(c) * 5
}

// SeverityFromWire is the inverse of WireCode.
func SeverityFromWire(code uint8) (SeverityClass, bool) {
	if code%5 != 0 || code > 25 {
		return SeverityMeta, false
	}
	return SeverityClass(code / 5), true
}

// ParseSeverityClass maps the configuration spelling of a class, including
// "meta". Callers decide whether meta is acceptable.
func ParseSeverityClass(s string) (SeverityClass, bool) {
	for i, name := range severityNames {
		if name == s {
			return SeverityClass(i), true
		}
	}
	return SeverityMeta, false
}

type TimingType int

const (
	TimingInterval TimingType = iota
)

func (t TimingType) String() string {
	if t == TimingInterval {
		return "interval"
	}
	return fmt.Sprintf("TimingType(%d)", int(t))
}

// Timing describes how often an agent is sampled. LastFired is the only
// field of an Agent written after parsing, and only by its producer.
type Timing struct {
	Type            TimingType
	IntervalSeconds uint64
	LastFired       time.Time
}

// MaxIntervalSeconds is the longest interval a time.Duration can hold.
const MaxIntervalSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Interval returns the sampling period; zero means the agent is event driven.
func (t Timing) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// Message is a template bound to a message code.
// The template may contain %v (sampled value) and %m (sampler output).
type Message struct {
	Class    SeverityClass
	Template string
}

// MaxMessageCode is the highest code a message table accepts.
const MaxMessageCode = 255

// Agent is the typed model of one monitored source.
type Agent struct {
	Name     string
	Script   string
	Data     DataKind
	Type     ValueType
	Timing   Timing
	Messages map[uint8]Message
}

// Message looks up the template for code.
func (a *Agent) Message(code int) (Message, bool) {
	if a == nil || code < 0 || code > MaxMessageCode {
		return Message{}, false
	}
	m, ok := a.Messages[uint8(code)]
	return m, ok
}

var ErrAgentNameRequired = errors.New("agent name is required")

// Validate checks the invariants a complete agent definition must hold.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return ErrAgentNameRequired
	}
	if !a.Data.Valid() {
		return fmt.Errorf("agent %q: invalid data kind %d", a.Name, a.Data)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("agent %q: invalid value type %d", a.Name, a.Type)
	}
	if a.Timing.IntervalSeconds > MaxIntervalSeconds {
		return fmt.Errorf("agent %q: interval %ds exceeds %ds", a.Name, a.Timing.IntervalSeconds, MaxIntervalSeconds)
	}
	for code, m := range a.Messages {
		if m.Class == SeverityMeta || !m.Class.Valid() {
			return fmt.Errorf("agent %q: message %d has class %s", a.Name, code, m.Class)
		}
	}
	return nil
}
