package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

var (
	ErrShortFrame   = errors.New("wire decode: short frame")
	ErrUnterminated = errors.New("wire decode: missing terminator")
	ErrTrailingData = errors.New("wire decode: trailing bytes")
)

// Frame is a decoded packet. Payload and Message are copies.
type Frame struct {
	AgentName   string
	Data        domain.DataKind
	Type        domain.ValueType
	TimestampMs uint64
	Payload     []byte
	Message     []byte
}

// Text returns the message without its terminator.
func (f *Frame) Text() string {
	if len(f.Message) == 0 {
		return ""
	}
	return string(f.Message[:len(f.Message)-1])
}

// Value decodes the payload according to the frame's value type.
func (f *Frame) Value() (any, error) {
	return domain.DecodeValue(f.Type, f.Payload)
}

// Decode parses exactly one frame from buf.
func Decode(buf []byte) (*Frame, error) {
	r := reader{buf: buf}

	nameLen, err := r.uint64()
	if err != nil {
		return nil, err
	}
	name, err := r.bytes(nameLen)
	if err != nil {
		return nil, err
	}
	if len(name) == 0 || name[len(name)-1] != 0 {
		return nil, fmt.Errorf("%w: agent name", ErrUnterminated)
	}

	kinds, err := r.bytes(2)
	if err != nil {
		return nil, err
	}
	ts, err := r.uint64()
	if err != nil {
		return nil, err
	}
	payloadLen, err := r.uint64()
	if err != nil {
		return nil, err
	}
	messageLen, err := r.uint64()
	if err != nil {
		return nil, err
	}
	payload, err := r.bytes(payloadLen)
	if err != nil {
		return nil, err
	}
	message, err := r.bytes(messageLen)
	if err != nil {
		return nil, err
	}
	if len(message) > 0 && message[len(message)-1] != 0 {
		return nil, fmt.Errorf("%w: message", ErrUnterminated)
	}
	if r.off != len(buf) {
		return nil, fmt.Errorf("%w: %d", ErrTrailingData, len(buf)-r.off)
	}

	f := &Frame{
		AgentName:   string(name[:len(name)-1]),
		Data:        domain.DataKind(kinds[0]),
		Type:        domain.ValueType(kinds[1]),
		TimestampMs: ts,
	}
	if payloadLen > 0 {
		f.Payload = append([]byte(nil), payload...)
	}
	if messageLen > 0 {
		f.Message = append([]byte(nil), message...)
	}
	return f, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) bytes(n uint64) ([]byte, error) {
	if n > uint64(len(r.buf)-r.off) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortFrame, n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}
