package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/NetCenter-Dev/Fetcher/pkg/fetcher"
)

func main() {
	flow, err := fetcher.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(_ context.Context, f fetcher.Frame) error {
		dec, err := fetcher.DecodeFrame(f.Data)
		if err != nil {
			return err
		}
		value, _ := dec.Value()
		fmt.Printf("%s agent=%s class=%s value=%v message=%q\n",
			time.UnixMilli(int64(f.TimestampMs)).Format(time.RFC3339Nano),
			f.Agent,
			f.Class,
			value,
			dec.Text(),
		)
		return nil
	}

	if err := flow.Run(ctx, fetcher.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
