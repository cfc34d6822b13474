package oversight

import (
	"fmt"
	"strings"
)

// RenderDigest builds the plain-text operator digest for the current day:
// health index, readiness, metric lines, alerts, targeted corrections, and
// today's decisions. Delivery is an external concern; this only produces
// the text.
func (m *Map) RenderDigest() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	b.WriteString("OVERSIGHT DIGEST\n")
	b.WriteString("================\n")

	s := m.state
	if s == nil || len(s.Reports) == 0 {
		b.WriteString("status: inactive (no oversight horizon running)\n")
		return b.String()
	}

	report := s.Reports[len(s.Reports)-1]
	fmt.Fprintf(&b, "%s of %d | health %.1f | readiness %s | verdict %s\n\n",
		dayLabel(s.Day), m.cfg.HorizonDays, report.HealthIndex, report.Readiness, s.Verdict)

	b.WriteString("metrics:\n")
	for _, metric := range report.Metrics {
		marker := " "
		if metric.Alert {
			marker = "!"
		}
		fmt.Fprintf(&b, "  %s %-18s %8.2f / %-8.2f trend %-4s target met: %t\n",
			marker, metric.Name, metric.Current, metric.Target, metric.Trend, metric.TargetMet)
	}

	focus := s.Focus[s.Day-1]
	b.WriteString("\ntoday's focus:\n")
	for _, item := range focus.Items {
		fmt.Fprintf(&b, "  - %s\n", item)
	}

	if len(report.TargetedCorrections) > 0 {
		b.WriteString("\ntargeted corrections:\n")
		for _, c := range report.TargetedCorrections {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}

	if len(report.Alerts) > 0 {
		fmt.Fprintf(&b, "\nalerts: %s\n", strings.Join(report.Alerts, ", "))
	}

	var today []Decision
	for _, d := range s.Decisions {
		if d.Day == s.Day {
			today = append(today, d)
		}
	}
	if len(today) > 0 {
		b.WriteString("\ndecisions today:\n")
		for _, d := range today {
			line := fmt.Sprintf("  - %s: %s", d.Kind, d.Reasoning)
			if d.Target != "" {
				line += fmt.Sprintf(" (target: %s)", d.Target)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}
