package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Script runs the agent's script with sh -c. The first line of stdout is
// the value, the rest of stdout is the message text and the exit status
// is the message code.
type Script struct {
	Shell string
}

func NewScript() *Script { return &Script{Shell: "/bin/sh"} }

func (s *Script) Name() string { return "script" }

func (s *Script) Sample(ctx context.Context, agent *domain.Agent) (ports.Reading, error) {
	if agent.Script == "" {
		return ports.Reading{}, fmt.Errorf("agent %q has no script", agent.Name)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Shell, "-c", agent.Script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children of the shell may outlive it and hold the pipes open
	cmd.WaitDelay = 100 * time.Millisecond

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return ports.Reading{}, fmt.Errorf("run script for %q: %w", agent.Name, errors.Join(err, ctx.Err()))
		}
		code = exitErr.ExitCode()
	}

	first, rest, _ := strings.Cut(stdout.String(), "\n")
	text := strings.TrimSpace(rest)
	if text == "" && code != 0 {
		text = strings.TrimSpace(stderr.String())
	}

	r := ports.Reading{Code: code, Text: text}
	if agent.Type == domain.TypeVoid {
		if text == "" {
			r.Text = strings.TrimSpace(first)
		}
		return r, nil
	}
	v, err := parseText(agent.Type, first)
	if err != nil {
		return ports.Reading{}, fmt.Errorf("script output for %q: %w", agent.Name, err)
	}
	r.Value = v
	return r, nil
}

var _ ports.Sampler = (*Script)(nil)
