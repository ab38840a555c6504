package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/NetCenter-Dev/Fetcher"
)

func main() {
	flow, err := fetcher.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, frames, closeFrames := fetcher.NewChannelTransport("fanout", 32)
	defer closeFrames()

	go fanoutWorker("collector", frames)

	rt, err := flow.StreamOUT(fetcher.StreamOutTransport(tr))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	// door is event driven; report a state change every few seconds.
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		open := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				open ^= 1
				if err := rt.Observe(ctx, "door", open, open, ""); err != nil {
					log.Printf("observe: %v", err)
				}
			}
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func fanoutWorker(name string, frames <-chan fetcher.Frame) {
	for f := range frames {
		fmt.Printf("[%s] %s %s %d bytes at %s\n", name, f.Agent, f.Class, len(f.Data), time.Now().Format(time.RFC3339))
	}
}
