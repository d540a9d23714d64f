// Package progress renders a throttled progress line for long conversions.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Interval is the minimum time between two rendered lines.
const Interval = 500 * time.Millisecond

const steps = 25

// Reporter writes "\r 42.0 % [==========               ] ETA 00:01:10 (Total 1234)"
// style lines. It is a no-op when the input size is unknown.
type Reporter struct {
	writer  io.Writer
	size    int64
	label   string
	limiter *rate.Limiter
	start   time.Time
	now     func() time.Time
}

// New creates a reporter for an input of size bytes. matching selects the
// counter label.
func New(w io.Writer, size int64, matching bool) *Reporter {
	label := "Total"
	if matching {
		label = "Matches"
	}
	return &Reporter{
		writer:  w,
		size:    size,
		label:   label,
		limiter: rate.NewLimiter(rate.Every(Interval), 1),
		start:   time.Now(),
		now:     time.Now,
	}
}

// Update renders the line unless one was rendered within Interval.
func (r *Reporter) Update(offset int64, written int) {
	if r.size <= 0 || !r.limiter.Allow() {
		return
	}
	r.render(offset, written)
}

// Finish always renders the final line and ends it.
func (r *Reporter) Finish(offset int64, written int) {
	if r.size <= 0 {
		return
	}
	r.render(offset, written)
	fmt.Fprintln(r.writer)
}

func (r *Reporter) render(offset int64, written int) {
	percent := float64(offset) * 100 / float64(r.size)
	fmt.Fprintf(r.writer, "\r%5.1f %% [%s] ETA %s (%s %d)",
		percent, bar(percent), r.eta(offset), r.label, written)
}

func bar(percent float64) string {
	var b strings.Builder
	for step := 1; step <= steps; step++ {
		if percent >= float64(step)*(100/steps) {
			b.WriteByte('=')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// eta extrapolates the average throughput since start.
func (r *Reporter) eta(offset int64) string {
	elapsed := r.now().Sub(r.start)
	if offset <= 0 || elapsed <= 0 {
		return "--:--:--"
	}

	remaining := max(r.size-offset, 0)
	left := time.Duration(float64(elapsed) * float64(remaining) / float64(offset))
	return clock(left)
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
