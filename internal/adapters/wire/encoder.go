// Package wire converts packets to and from their network representation.
//
// Layout, multi-byte integers big-endian:
//
//	[8]  agent name length, terminator included
//	[n]  agent name + NUL
//	[1]  data kind
//	[1]  value type
//	[8]  timestamp, ms since epoch
//	[8]  payload length
//	[8]  message length
//	[p]  payload
//	[m]  message + NUL
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

// HeaderLen is the fixed part of a frame, excluding the agent name.
const HeaderLen = 8 + 1 + 1 + 8 + 8 + 8

type EncodingErrorKind int

const (
	NullPayloadWithNonzeroLength EncodingErrorKind = iota + 1
	NullMessageWithNonzeroLength
	LengthMismatch
	MissingAgent
	InvalidEnum
)

func (k EncodingErrorKind) String() string {
	switch k {
	case NullPayloadWithNonzeroLength:
		return "null payload with nonzero length"
	case NullMessageWithNonzeroLength:
		return "null message with nonzero length"
	case LengthMismatch:
		return "length mismatch"
	case MissingAgent:
		return "missing agent"
	case InvalidEnum:
		return "value outside declared set"
	default:
		return fmt.Sprintf("EncodingErrorKind(%d)", int(k))
	}
}

type EncodingError struct {
	Kind   EncodingErrorKind
	Detail string
}

func (e *EncodingError) Error() string {
	if e.Detail == "" {
		return "wire encode: " + e.Kind.String()
	}
	return fmt.Sprintf("wire encode: %s: %s", e.Kind, e.Detail)
}

// Encode returns the frame for p. It never returns a partial buffer.
func Encode(p *domain.Packet) ([]byte, error) {
	if p == nil || p.Agent == nil {
		return nil, &EncodingError{Kind: MissingAgent}
	}
	if !p.Agent.Data.Valid() {
		return nil, &EncodingError{Kind: InvalidEnum, Detail: fmt.Sprintf("data kind %d", p.Agent.Data)}
	}
	if !p.Agent.Type.Valid() {
		return nil, &EncodingError{Kind: InvalidEnum, Detail: fmt.Sprintf("value type %d", p.Agent.Type)}
	}
	if p.PayloadSize > 0 && p.Payload == nil {
		return nil, &EncodingError{Kind: NullPayloadWithNonzeroLength, Detail: fmt.Sprintf("payload length %d", p.PayloadSize)}
	}
	if p.MessageLength > 0 && p.Message == nil {
		return nil, &EncodingError{Kind: NullMessageWithNonzeroLength, Detail: fmt.Sprintf("message length %d", p.MessageLength)}
	}
	if p.PayloadSize != uint64(len(p.Payload)) {
		return nil, &EncodingError{Kind: LengthMismatch, Detail: fmt.Sprintf("payload length %d, buffer %d", p.PayloadSize, len(p.Payload))}
	}
	if p.MessageLength != uint64(len(p.Message)) {
		return nil, &EncodingError{Kind: LengthMismatch, Detail: fmt.Sprintf("message length %d, buffer %d", p.MessageLength, len(p.Message))}
	}

	name := p.Agent.Name
	nameLen := uint64(len(name) + 1)
	size := HeaderLen + int(nameLen) + len(p.Payload) + len(p.Message)

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint64(buf, nameLen)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, byte(p.Agent.Data), byte(p.Agent.Type))
	buf = binary.BigEndian.AppendUint64(buf, p.TimestampMs)
	buf = binary.BigEndian.AppendUint64(buf, p.PayloadSize)
	buf = binary.BigEndian.AppendUint64(buf, p.MessageLength)
	buf = append(buf, p.Payload...)
	buf = append(buf, p.Message...)
	return buf, nil
}
