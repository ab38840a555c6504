// Package factory turns sampled readings into packets.
package factory

import (
	"fmt"
	"strings"

	"github.com/NetCenter-Dev/Fetcher/internal/clock"
	"github.com/NetCenter-Dev/Fetcher/internal/domain"
	"github.com/NetCenter-Dev/Fetcher/internal/ports"
)

// Factory stamps packets with the time of its clock.
type Factory struct {
	clock clock.Clock
}

func New(c clock.Clock) *Factory {
	if c == nil {
		c = clock.Real()
	}
	return &Factory{clock: c}
}

// New builds a packet. See domain.NewPacket for the Problem rules.
func (f *Factory) New(agent *domain.Agent, value any, class domain.SeverityClass, message string) *domain.Packet {
	return domain.NewPacket(agent, value, class, message, f.clock.Now())
}

// FromReading selects the message template for r.Code and renders it.
// Codes without a template fall back to Info for 0 and Error otherwise,
// with the sampler text as message. A sampling error yields a packet
// without a value, which is a Problem for every non-void agent.
func (f *Factory) FromReading(agent *domain.Agent, r ports.Reading, sampleErr error) *domain.Packet {
	if sampleErr != nil {
		return f.New(agent, nil, domain.SeverityError, "sample failed: "+sampleErr.Error())
	}

	if m, ok := agent.Message(r.Code); ok {
		return f.New(agent, r.Value, m.Class, Render(m.Template, r.Value, r.Text))
	}
	if r.Code == 0 {
		return f.New(agent, r.Value, domain.SeverityInfo, r.Text)
	}
	text := r.Text
	if text == "" {
		text = fmt.Sprintf("exit code %d", r.Code)
	}
	return f.New(agent, r.Value, domain.SeverityError, text)
}

// Render expands %v to the formatted value and %m to text. %% is a
// literal percent sign; any other verb is kept as written.
func Render(template string, value any, text string) string {
	if !strings.Contains(template, "%") {
		return template
	}
	var b strings.Builder
	b.Grow(len(template) + len(text))
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '%' || i+1 == len(template) {
			b.WriteByte(c)
			continue
		}
		switch template[i+1] {
		case 'v':
			if value != nil {
				fmt.Fprint(&b, value)
			}
		case 'm':
			b.WriteString(text)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}
