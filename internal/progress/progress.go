// Package progress renders terminal progress for the long runner phases.
// Output goes to stderr so piped CSV stays clean.
package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Indicator tracks one phase. A disabled indicator is a no-op, so callers
// never branch on quiet mode themselves.
type Indicator struct {
	enabled    bool
	message    string
	total      int
	current    int
	startTime  time.Time
	lastUpdate time.Time
}

func NewIndicator(message string, total int, enabled bool) *Indicator {
	return &Indicator{
		enabled:   enabled,
		message:   message,
		total:     total,
		startTime: time.Now(),
	}
}

// Simple returns an indeterminate indicator (spinner, item counter).
func Simple(message string, quiet bool) *Indicator {
	return NewIndicator(message, 0, !quiet)
}

// WithTotal returns a bar indicator over a known item count.
func WithTotal(message string, total int, quiet bool) *Indicator {
	return NewIndicator(message, total, !quiet)
}

func (p *Indicator) Start() {
	if !p.enabled {
		return
	}
	p.startTime = time.Now()
	p.lastUpdate = p.startTime
	fmt.Fprintf(os.Stderr, "%s...\n", p.message)
}

// Update advances the indicator. Redraws are throttled to every 100ms so a
// tight loop does not flood the terminal.
func (p *Indicator) Update(current int) {
	if !p.enabled {
		return
	}

	p.current = current
	now := time.Now()
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && current < p.total {
		return
	}
	p.lastUpdate = now

	elapsed := now.Sub(p.startTime)
	if p.total <= 0 {
		fmt.Fprintf(os.Stderr, "\r%s %s (%d processed)", p.message, spinner(elapsed), current)
		return
	}

	pct := float64(current) / float64(p.total) * 100
	eta := ""
	if current > 0 {
		rate := float64(current) / elapsed.Seconds()
		left := float64(p.total-current) / rate
		eta = " ETA: " + formatDuration(time.Duration(left)*time.Second)
	}
	fmt.Fprintf(os.Stderr, "\r%s [%s] %d/%d (%.1f%%)%s",
		p.message, bar(pct), current, p.total, pct, eta)
}

func (p *Indicator) Finish() {
	if !p.enabled {
		return
	}
	done := p.current
	if p.total > 0 {
		done = p.total
	}
	fmt.Fprintf(os.Stderr, "\r%s done, %d items in %s\n",
		p.message, done, formatDuration(time.Since(p.startTime)))
}

func (p *Indicator) FinishWithError(err error) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s failed after %s: %v\n",
		p.message, formatDuration(time.Since(p.startTime)), err)
}

const barWidth = 30

func bar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			b.WriteString("=")
		case i == filled && pct < 100:
			b.WriteString(">")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

func spinner(elapsed time.Duration) string {
	return spinnerFrames[int(elapsed.Milliseconds()/100)%len(spinnerFrames)]
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
