package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := &Config{
		Policy: Policy{
			QueueCapacity: 8,
			IdleSleep:     time.Millisecond,
			OnQueueFull:   "block",
		},
	}

	flow, err := ConfFromConfig(cfg, WithFlowOptions(WithLogger(nopLogger())))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	s := &stubSampler{}
	tr := NewCallbackTransport("cb", func(context.Context, Frame) error { return nil })

	rt, err := flow.
		StreamIN(
			StreamInAgents(heartbeatAgent("hb", 1)),
			StreamInSampler("hb", s),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutTransport(tr),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.transport != tr {
		t.Fatalf("expected custom transport to be wired")
	}
	if rt.producers[0].Sampler != s {
		t.Fatalf("expected custom sampler to be wired")
	}
	if rt.queue.Cap() != 8 {
		t.Fatalf("queue capacity = %d", rt.queue.Cap())
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	flow, err := ConfFromConfig(&Config{Policy: Policy{IdleSleep: time.Millisecond}})
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := flow.
		Options(WithLogger(nopLogger())).
		StreamIN(
			StreamInAgents(eventAgent()),
			StreamInObservability(&stubObservability{}),
		).Run(ctx,
		StreamOutCallback("cb", func(context.Context, Frame) error { return nil }),
	); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestConfLoadsAgentFiles(t *testing.T) {
	dir := t.TempDir()
	agent := "name = uptime\ntype = int\ndata = datavalue\ntiming = interval\ntiming.value = 5\nscript = \"echo 1\"\n"
	if err := os.WriteFile(filepath.Join(dir, "uptime.agent"), []byte(agent), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgYAML := "agents:\n  - file: uptime.agent\nmetrics:\n  addr: 127.0.0.1:0\n"
	path := filepath.Join(dir, "fetcher.yaml")
	if err := os.WriteFile(path, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	flow, err := Conf(path, WithFlowOptions(WithLogger(nopLogger())))
	if err != nil {
		t.Fatalf("Conf: %v", err)
	}
	rt, err := flow.StreamOUT(StreamOutObservability(&stubObservability{}))
	if err != nil {
		t.Fatalf("StreamOUT: %v", err)
	}
	if len(rt.producers) != 1 || rt.producers[0].Sampler.Name() != "script" {
		t.Fatalf("expected one script producer")
	}
	if rt.transport.Name() != "log" {
		t.Fatalf("default transport = %s", rt.transport.Name())
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
