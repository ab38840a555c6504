package domain

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.UnixMilli(1_700_000_000_123)

func TestNewPacketCopiesValuePerType(t *testing.T) {
	cases := []struct {
		name  string
		typ   ValueType
		value any
		want  []byte
	}{
		{"int", TypeInt, 258, []byte{0, 0, 1, 2}},
		{"negative int", TypeInt, int32(-1), []byte{0xff, 0xff, 0xff, 0xff}},
		{"double", TypeDouble, 1.0, []byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}},
		{"string", TypeString, "ok", []byte{'o', 'k', 0}},
		{"bytes", TypeString, []byte("ok"), []byte{'o', 'k', 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agent := &Agent{Name: "a", Type: tc.typ}
			p := NewPacket(agent, tc.value, SeverityInfo, "", testNow)
			if p.Status != StatusCreated {
				t.Fatalf("expected created packet, got %s (%v)", p.Status, p.Err())
			}
			if !bytes.Equal(p.Payload, tc.want) {
				t.Fatalf("payload = %v, want %v", p.Payload, tc.want)
			}
			if p.PayloadSize != uint64(len(tc.want)) {
				t.Fatalf("payload size = %d, want %d", p.PayloadSize, len(tc.want))
			}
			if p.TimestampMs != 1_700_000_000_123 {
				t.Fatalf("unexpected timestamp %d", p.TimestampMs)
			}
		})
	}
}

func TestNewPacketOwnsItsBuffers(t *testing.T) {
	raw := []byte("abc")
	p := NewPacket(&Agent{Name: "a", Type: TypeString}, raw, SeverityInfo, "msg", testNow)
	raw[0] = 'x'
	if string(p.Payload) != "abc\x00" {
		t.Fatalf("payload aliases caller buffer: %q", p.Payload)
	}
	if p.MessageLength != 4 || p.Text() != "msg" {
		t.Fatalf("unexpected message %q (%d)", p.Message, p.MessageLength)
	}
}

func TestNewPacketProblems(t *testing.T) {
	cases := []struct {
		name  string
		typ   ValueType
		value any
		want  string
	}{
		{"void with value", TypeVoid, 1, "void data type"},
		{"int without value", TypeInt, nil, "no value given"},
		{"wrong go type", TypeDouble, "1.0", "double value expected"},
		{"int overflow", TypeInt, int64(1) << 40, "does not fit"},
		{"huge string", TypeString, strings.Repeat("x", MaxPayloadSize), "size limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPacket(&Agent{Name: "a", Type: tc.typ}, tc.value, SeverityInfo, "", testNow)
			if p.Status != StatusProblem {
				t.Fatalf("expected problem status, got %s", p.Status)
			}
			var perr *ProblemError
			if !errors.As(p.Err(), &perr) {
				t.Fatalf("expected ProblemError, got %v", p.Err())
			}
			if p.Text() == "" || !strings.Contains(p.Text(), tc.want) {
				t.Fatalf("message %q does not mention %q", p.Text(), tc.want)
			}
			if p.Payload != nil || p.PayloadSize != 0 {
				t.Fatalf("problem packet must not carry a payload")
			}
		})
	}
}

func TestNewPacketVoidWithoutValue(t *testing.T) {
	p := NewPacket(&Agent{Name: "hb"}, nil, SeverityMeta, "", testNow)
	if p.Status != StatusCreated || p.Payload != nil || p.Message != nil {
		t.Fatalf("unexpected void packet: %+v", p)
	}
	if p.Err() != nil {
		t.Fatalf("unexpected error %v", p.Err())
	}
}

func TestNewDelayedPacket(t *testing.T) {
	p := NewDelayedPacket(&Agent{Name: "a", Type: TypeInt}, 1, SeverityInfo, "", testNow)
	if p.Status != StatusDelayed {
		t.Fatalf("expected delayed, got %s", p.Status)
	}
	bad := NewDelayedPacket(&Agent{Name: "a", Type: TypeInt}, nil, SeverityInfo, "", testNow)
	if bad.Status != StatusProblem {
		t.Fatalf("a delayed packet with a bad value must stay a problem, got %s", bad.Status)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	p := NewPacket(&Agent{Name: "a", Type: TypeString}, "v", SeverityInfo, "m", testNow)
	p.Destroy()
	if p.Status != StatusDestroyed || p.Payload != nil || p.Message != nil {
		t.Fatalf("destroy did not release buffers: %+v", p)
	}
	before := *p
	p.Destroy()
	if p.Status != before.Status || p.PayloadSize != before.PayloadSize || p.TimestampMs != before.TimestampMs {
		t.Fatalf("second destroy changed state")
	}

	var nilPacket *Packet
	nilPacket.Destroy()
}

func TestMarkSent(t *testing.T) {
	p := NewPacket(&Agent{Name: "a"}, nil, SeverityInfo, "", testNow)
	if err := p.MarkSent(); err == nil {
		t.Fatalf("created packet cannot be marked sent")
	}
	p.Status = StatusQueued
	if err := p.MarkSent(); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if p.Status != StatusSent {
		t.Fatalf("expected sent, got %s", p.Status)
	}
}

func TestDecodeValueInvertsEncodeValue(t *testing.T) {
	for _, tc := range []struct {
		typ   ValueType
		value any
		want  any
	}{
		{TypeInt, -42, int32(-42)},
		{TypeDouble, 2.5, 2.5},
		{TypeString, "hello", "hello"},
	} {
		b, err := EncodeValue(tc.typ, tc.value)
		if err != nil {
			t.Fatalf("encode %s: %v", tc.typ, err)
		}
		got, err := DecodeValue(tc.typ, b)
		if err != nil {
			t.Fatalf("decode %s: %v", tc.typ, err)
		}
		if got != tc.want {
			t.Fatalf("decode %s = %v, want %v", tc.typ, got, tc.want)
		}
	}
}

func TestSeverityWireCodes(t *testing.T) {
	want := map[SeverityClass]uint8{
		SeverityMeta: 0, SeverityInfo: 5, SeverityWarning: 10,
		SeverityAlarm: 15, SeverityError: 20, SeverityEmergency: 25,
	}
	for class, code := range want {
		if got := class.WireCode(); got != code {
			t.Fatalf("%s wire code = %d, want %d", class, got, code)
		}
		back, ok := SeverityFromWire(code)
		if !ok || back != class {
			t.Fatalf("SeverityFromWire(%d) = %s, %v", code, back, ok)
		}
	}
	if _, ok := SeverityFromWire(7); ok {
		t.Fatalf("7 is not a severity code")
	}
}

func TestAgentValidate(t *testing.T) {
	if err := (&Agent{}).Validate(); !errors.Is(err, ErrAgentNameRequired) {
		t.Fatalf("expected ErrAgentNameRequired, got %v", err)
	}
	a := &Agent{Name: "a", Messages: map[uint8]Message{1: {Class: SeverityMeta}}}
	if err := a.Validate(); err == nil {
		t.Fatalf("meta class must be rejected")
	}
	a.Messages[1] = Message{Class: SeverityAlarm, Template: "x"}
	if err := a.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	a.Timing.IntervalSeconds = MaxIntervalSeconds + 1
	if err := a.Validate(); err == nil {
		t.Fatalf("interval overflowing time.Duration must be rejected")
	}
}
