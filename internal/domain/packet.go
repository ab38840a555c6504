package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

type PacketStatus int

const (
	StatusCreated PacketStatus = iota
	StatusDelayed
	StatusQueued
	StatusSent
	StatusDestroyed
	StatusProblem
)

var statusNames = [...]string{"created", "delayed", "queued", "sent", "destroyed", "problem"}

func (s PacketStatus) String() string {
	if s < StatusCreated || s > StatusProblem {
		return fmt.Sprintf("PacketStatus(%d)", int(s))
	}
	return statusNames[s]
}

// MaxPayloadSize caps string payloads. Larger values produce a Problem packet.
const MaxPayloadSize = 1 << 20

// ErrPayloadTooLarge marks a resource failure while copying a value.
var ErrPayloadTooLarge = errors.New("payload exceeds size limit")

// ProblemError describes why a packet could not be built.
type ProblemError struct {
	Agent  string
	Reason string
	Err    error
}

func (e *ProblemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("packet for %q: %s: %v", e.Agent, e.Reason, e.Err)
	}
	return fmt.Sprintf("packet for %q: %s", e.Agent, e.Reason)
}

func (e *ProblemError) Unwrap() error { return e.Err }

// Packet is one timestamped observation. Payload and Message are owned
// copies; Message carries a trailing NUL, matching MessageLength.
type Packet struct {
	Status        PacketStatus
	Agent         *Agent
	Class         SeverityClass
	TimestampMs   uint64
	Payload       []byte
	PayloadSize   uint64
	Message       []byte
	MessageLength uint64

	problem *ProblemError
}

// NewPacket builds a packet for agent. Construction never fails: a value
// that does not match agent.Type yields a packet with StatusProblem whose
// message explains the fault. An empty message means no message.
func NewPacket(agent *Agent, value any, class SeverityClass, message string, now time.Time) *Packet {
	p := &Packet{
		Status:      StatusCreated,
		Agent:       agent,
		Class:       class,
		TimestampMs: uint64(now.UnixMilli()),
	}
	if agent == nil {
		p.fail(&ProblemError{Reason: "no agent given"})
		return p
	}
	if message != "" {
		p.Message = terminated(message)
		p.MessageLength = uint64(len(p.Message))
	}

	if value == nil {
		if agent.Type != TypeVoid {
			p.fail(&ProblemError{Agent: agent.Name, Reason: fmt.Sprintf("%s data type, but no value given", agent.Type)})
		}
		return p
	}
	if agent.Type == TypeVoid {
		p.fail(&ProblemError{Agent: agent.Name, Reason: "void data type, but a value was given"})
		return p
	}

	payload, err := EncodeValue(agent.Type, value)
	if err != nil {
		p.fail(&ProblemError{Agent: agent.Name, Reason: "cannot copy value", Err: err})
		return p
	}
	p.Payload = payload
	p.PayloadSize = uint64(len(payload))
	return p
}

// NewDelayedPacket is NewPacket for packets held back before queueing.
func NewDelayedPacket(agent *Agent, value any, class SeverityClass, message string, now time.Time) *Packet {
	p := NewPacket(agent, value, class, message, now)
	if p.Status == StatusCreated {
		p.Status = StatusDelayed
	}
	return p
}

func (p *Packet) fail(perr *ProblemError) {
	p.Status = StatusProblem
	p.problem = perr
	p.Payload, p.PayloadSize = nil, 0
	p.Message = terminated(perr.Error())
	p.MessageLength = uint64(len(p.Message))
}

// Err returns the construction failure of a Problem packet, or nil.
func (p *Packet) Err() error {
	if p == nil || p.problem == nil {
		return nil
	}
	return p.problem
}

// Text returns the message without its terminator.
func (p *Packet) Text() string {
	if len(p.Message) == 0 {
		return ""
	}
	return string(p.Message[:len(p.Message)-1])
}

// MarkSent records that the transport accepted a queued packet.
func (p *Packet) MarkSent() error {
	if p.Status != StatusQueued {
		return fmt.Errorf("mark sent: packet is %s, not queued", p.Status)
	}
	p.Status = StatusSent
	return nil
}

// Destroy releases the buffers. Calling it again is a no-op.
func (p *Packet) Destroy() {
	if p == nil || p.Status == StatusDestroyed {
		return
	}
	p.Payload, p.PayloadSize = nil, 0
	p.Message, p.MessageLength = nil, 0
	p.Status = StatusDestroyed
}

// EncodeValue copies a raw value into its wire representation:
// int as 4 byte big-endian, double as 8 byte big-endian IEEE-754,
// string as bytes plus NUL.
func EncodeValue(t ValueType, value any) ([]byte, error) {
	switch t {
	case TypeInt:
		n, ok := asInt64(value)
		if !ok {
			return nil, fmt.Errorf("int value expected, got %T", value)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("int value %d does not fit in 32 bits", n)
		}
		return binary.BigEndian.AppendUint32(nil, uint32(int32(n))), nil
	case TypeDouble:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		default:
			return nil, fmt.Errorf("double value expected, got %T", value)
		}
		return binary.BigEndian.AppendUint64(nil, math.Float64bits(f)), nil
	case TypeString:
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return nil, fmt.Errorf("string value expected, got %T", value)
		}
		if len(s)+1 > MaxPayloadSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(s)+1)
		}
		return terminated(s), nil
	default:
		return nil, fmt.Errorf("no payload for %s", t)
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(t ValueType, payload []byte) (any, error) {
	switch t {
	case TypeVoid:
		if len(payload) != 0 {
			return nil, fmt.Errorf("void value with %d payload bytes", len(payload))
		}
		return nil, nil
	case TypeInt:
		if len(payload) != 4 {
			return nil, fmt.Errorf("int payload must be 4 bytes, got %d", len(payload))
		}
		return int32(binary.BigEndian.Uint32(payload)), nil
	case TypeDouble:
		if len(payload) != 8 {
			return nil, fmt.Errorf("double payload must be 8 bytes, got %d", len(payload))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(payload)), nil
	case TypeString:
		if len(payload) == 0 || payload[len(payload)-1] != 0 {
			return nil, errors.New("string payload is not terminated")
		}
		return string(payload[:len(payload)-1]), nil
	default:
		return nil, fmt.Errorf("unknown value type %d", t)
	}
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	default:
		return 0, false
	}
}

func terminated(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
