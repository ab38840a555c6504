package sampler

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/NetCenter-Dev/Fetcher/internal/clock"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

func TestCoerce(t *testing.T) {
	cases := []struct {
		typ  domain.ValueType
		in   any
		want any
	}{
		{domain.TypeVoid, 3.0, nil},
		{domain.TypeDouble, float32(1.5), 1.5},
		{domain.TypeDouble, uint16(7), 7.0},
		{domain.TypeInt, 41.6, int32(42)},
		{domain.TypeInt, true, int32(1)},
		{domain.TypeInt, " 12 ", int32(12)},
		{domain.TypeString, 2.5, "2.5"},
		{domain.TypeString, "ok", "ok"},
	}
	for _, tc := range cases {
		got, err := coerce(tc.typ, tc.in)
		if err != nil {
			t.Fatalf("coerce(%s, %v): %v", tc.typ, tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("coerce(%s, %v) = %#v, want %#v", tc.typ, tc.in, got, tc.want)
		}
	}

	if _, err := coerce(domain.TypeInt, 1e12); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := coerce(domain.TypeDouble, struct{}{}); err == nil {
		t.Fatalf("expected type error")
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

func TestScriptSampler(t *testing.T) {
	requireShell(t)
	s := NewScript()

	r, err := s.Sample(context.Background(), &domain.Agent{
		Name:   "disk",
		Type:   domain.TypeInt,
		Script: `echo 93; echo /var is almost full; exit 2`,
	})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if r.Value != int32(93) || r.Code != 2 || r.Text != "/var is almost full" {
		t.Fatalf("unexpected reading %+v", r)
	}
}

func TestScriptSamplerVoidUsesFirstLine(t *testing.T) {
	requireShell(t)
	r, err := NewScript().Sample(context.Background(), &domain.Agent{Name: "ev", Script: "echo rebooted"})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if r.Value != nil || r.Text != "rebooted" {
		t.Fatalf("unexpected reading %+v", r)
	}
}

func TestScriptSamplerErrors(t *testing.T) {
	requireShell(t)
	s := NewScript()

	if _, err := s.Sample(context.Background(), &domain.Agent{Name: "none"}); err == nil {
		t.Fatalf("expected missing script error")
	}
	if _, err := s.Sample(context.Background(), &domain.Agent{Name: "nan", Type: domain.TypeDouble, Script: "echo abc"}); err == nil {
		t.Fatalf("expected parse error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Sample(ctx, &domain.Agent{Name: "slow", Type: domain.TypeInt, Script: "sleep 5; echo 1"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestHostSampler(t *testing.T) {
	h := NewHost()
	h.probes = map[string]probe{
		"cpu": func(context.Context) (float64, error) { return 12.5, nil },
		"mem": func(context.Context) (float64, error) { return 0, errors.New("no procfs") },
	}
	if err := h.Bind("cpu", "cpu"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := h.Bind("mem", "mem"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := h.Bind("x", "gpu"); err == nil {
		t.Fatalf("expected unknown metric error")
	}

	r, err := h.Sample(context.Background(), &domain.Agent{Name: "cpu", Type: domain.TypeDouble})
	if err != nil || r.Value != 12.5 || r.Text != "cpu" {
		t.Fatalf("cpu reading %+v, %v", r, err)
	}
	if _, err := h.Sample(context.Background(), &domain.Agent{Name: "mem", Type: domain.TypeDouble}); err == nil {
		t.Fatalf("expected probe error")
	}
	if _, err := h.Sample(context.Background(), &domain.Agent{Name: "unbound"}); err == nil {
		t.Fatalf("expected unbound agent error")
	}
}

func TestHeartbeat(t *testing.T) {
	fc := clock.NewFake(time.Unix(100, 0))
	hb := NewHeartbeat(fc)
	fc.Advance(90 * time.Second)

	r, err := hb.Sample(context.Background(), &domain.Agent{Name: "hb"})
	if err != nil || r.Value != nil {
		t.Fatalf("void heartbeat %+v, %v", r, err)
	}
	r, err = hb.Sample(context.Background(), &domain.Agent{Name: "up", Type: domain.TypeInt})
	if err != nil || r.Value != int32(90) {
		t.Fatalf("uptime heartbeat %+v, %v", r, err)
	}
}

type fakeNodeReader struct {
	resp   *ua.ReadResponse
	err    error
	closed int
	req    *ua.ReadRequest
}

func (f *fakeNodeReader) Read(_ context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeNodeReader) Close(context.Context) error {
	f.closed++
	return nil
}

func newTestOPCUA(t *testing.T, r *fakeNodeReader) (*OPCUA, *int) {
	t.Helper()
	s, err := NewOPCUA(OPCUAConfig{Endpoint: "opc.tcp://plc:4840"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	dials := 0
	s.dial = func(context.Context) (nodeReader, error) {
		dials++
		return r, nil
	}
	if err := s.Bind("boiler", "ns=2;s=Boiler.Temp"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return s, &dials
}

func TestOPCUASample(t *testing.T) {
	r := &fakeNodeReader{resp: &ua.ReadResponse{Results: []*ua.DataValue{
		{Status: ua.StatusOK, Value: ua.MustVariant(float32(71.25))},
	}}}
	s, dials := newTestOPCUA(t, r)

	agent := &domain.Agent{Name: "boiler", Type: domain.TypeDouble}
	for i := 0; i < 2; i++ {
		got, err := s.Sample(context.Background(), agent)
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if got.Value != 71.25 {
			t.Fatalf("value %v", got.Value)
		}
	}
	if *dials != 1 {
		t.Fatalf("session should be reused, dialed %d times", *dials)
	}
	if len(r.req.NodesToRead) != 1 || r.req.NodesToRead[0].NodeID.String() != "ns=2;s=Boiler.Temp" {
		t.Fatalf("unexpected request %+v", r.req.NodesToRead)
	}
}

func TestOPCUABadStatusAndReconnect(t *testing.T) {
	r := &fakeNodeReader{resp: &ua.ReadResponse{Results: []*ua.DataValue{
		{Status: ua.StatusBadNodeIDUnknown},
	}}}
	s, dials := newTestOPCUA(t, r)
	agent := &domain.Agent{Name: "boiler", Type: domain.TypeDouble}

	if _, err := s.Sample(context.Background(), agent); err == nil {
		t.Fatalf("expected bad status error")
	}

	r.err = errors.New("secure channel closed")
	if _, err := s.Sample(context.Background(), agent); err == nil {
		t.Fatalf("expected read error")
	}
	if r.closed != 1 {
		t.Fatalf("failed session not closed")
	}

	r.err = nil
	r.resp = &ua.ReadResponse{Results: []*ua.DataValue{{Status: ua.StatusOK, Value: ua.MustVariant(int32(5))}}}
	if _, err := s.Sample(context.Background(), agent); err != nil {
		t.Fatalf("after reconnect: %v", err)
	}
	if *dials != 2 {
		t.Fatalf("expected a redial, got %d dials", *dials)
	}
}

func TestOPCUAConfig(t *testing.T) {
	if _, err := NewOPCUA(OPCUAConfig{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
	s, _ := NewOPCUA(OPCUAConfig{Endpoint: "opc.tcp://x"})
	if err := s.Bind("a", "ns=x;i=1"); err == nil {
		t.Fatalf("expected node id error for a non-numeric namespace")
	}
	if err := s.Bind("a", "ns=2;s=Boiler.Temperature"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if normalizeSecurityMode("sign+encrypt") != "SignAndEncrypt" || normalizeSecurityMode("") != "None" {
		t.Fatalf("security mode normalisation")
	}
}
