package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/NetCenter-Dev/Fetcher"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "agent":
		err = agentCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		printUsage(os.Stderr)
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fetcher %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "path to the runtime configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := fetcher.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

// validateCommand loads the config and parses every agent file it lists.
func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", "./data/config.yaml", "path to the configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := fetcher.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	agents, err := cfg.LoadAgents()
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: %d agent(s)\n", *cfgPath, len(agents))
	return nil
}

func agentCommand(args []string) error {
	fs := pflag.NewFlagSet("agent", pflag.ContinueOnError)
	strict := fs.Bool("strict", false, "reject unknown keys")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: fetcher agent [--strict] <file>")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	agent, err := fetcher.ParseAgent(string(data), *strict)
	if err != nil {
		return err
	}
	printAgent(os.Stdout, agent)
	return nil
}

func printAgent(w io.Writer, a *fetcher.Agent) {
	fmt.Fprintf(w, "name:     %s\n", a.Name)
	fmt.Fprintf(w, "data:     %s\n", a.Data)
	fmt.Fprintf(w, "type:     %s\n", a.Type)
	if iv := a.Timing.Interval(); iv > 0 {
		fmt.Fprintf(w, "interval: %s\n", iv)
	} else {
		fmt.Fprintf(w, "interval: event driven\n")
	}
	if a.Script != "" {
		fmt.Fprintf(w, "script:   %s\n", a.Script)
	}

	codes := make([]int, 0, len(a.Messages))
	for code := range a.Messages {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	for _, code := range codes {
		m := a.Messages[uint8(code)]
		fmt.Fprintf(w, "message %3d %-9s %q\n", code, m.Class, m.Template)
	}
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(ctx, *url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

var statsMetrics = []string{
	"fetcher_packets_created_total",
	"fetcher_packets_sent_total",
	"fetcher_packets_problem_total",
	"fetcher_queue_dropped_total",
	"fetcher_transport_errors_total",
	"fetcher_dlq_total",
	"fetcher_queue_length",
}

func printMetricsSnapshot(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeMetrics(resp.Body, statsMetrics)
	if err != nil {
		return err
	}
	fmt.Printf("[%s] created=%.0f sent=%.0f problem=%.0f dropped=%.0f transport_err=%.0f dlq=%.0f queue=%.0f\n",
		time.Now().Format(time.RFC3339),
		values["fetcher_packets_created_total"],
		values["fetcher_packets_sent_total"],
		values["fetcher_packets_problem_total"],
		values["fetcher_queue_dropped_total"],
		values["fetcher_transport_errors_total"],
		values["fetcher_dlq_total"],
		values["fetcher_queue_length"],
	)
	return nil
}

// scrapeMetrics reads unlabelled samples for names from a text exposition.
func scrapeMetrics(r io.Reader, names []string) (map[string]float64, error) {
	values := make(map[string]float64, len(names))
	for _, n := range names {
		values[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, rest, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if _, want := values[key]; !want {
			continue
		}
		var value float64
		if _, err := fmt.Sscanf(rest, "%g", &value); err == nil {
			values[key] = value
		}
	}
	return values, scanner.Err()
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Fetcher monitoring agent

Usage:
  fetcher <command> [flags]

Commands:
  run        Start the runtime using the provided config
  validate   Load a config file and parse its agents without starting
  agent      Parse a single agent definition and print the result
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  fetcher run --config ./data/config.yaml
  fetcher validate -c ./data/config.yaml
  fetcher agent --strict ./data/agents/disk.agent
  fetcher stats --url http://localhost:9100/metrics --interval 1s
`)
}
