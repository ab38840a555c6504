// Command basic runs the agents from data/config.yaml and feeds the
// event-driven ones from stdin, one "<agent> <value> [code] [text]" per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/NetCenter-Dev/Fetcher"
)

func main() {
	cfg, err := fetcher.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := fetcher.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go observeStdin(ctx, rt)

	<-ctx.Done()
	st := rt.Stats()
	log.Printf("shutting down: %d agents, %d/%d queued, transport %s", st.Agents, st.QueueLen, st.QueueCap, st.Transport)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

// observeStdin turns lines like "door 1 1 front" into Observe calls.
func observeStdin(ctx context.Context, rt *fetcher.Runtime) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.Atoi(fields[1])
		if err != nil {
			log.Printf("value %q: %v", fields[1], err)
			continue
		}
		code := 0
		if len(fields) > 2 {
			if code, err = strconv.Atoi(fields[2]); err != nil {
				log.Printf("code %q: %v", fields[2], err)
				continue
			}
		}
		text := strings.Join(fields[min(len(fields), 3):], " ")

		err = rt.Observe(ctx, fields[0], value, code, text)
		switch {
		case errors.Is(err, fetcher.ErrUnknownAgent):
			log.Printf("no agent named %q", fields[0])
		case err != nil:
			log.Printf("observe %s: %v", fields[0], err)
		}
	}
}
