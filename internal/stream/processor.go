// Package stream drives a record file through decoding, matching and
// output, one record at a time.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jacoelho/cnpj/internal/entity"
	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/layout"
	"github.com/jacoelho/cnpj/internal/match"
)

// Progress is told the stream position after every record.
type Progress interface {
	Update(offset int64, written int)
	Finish(offset int64, written int)
}

// Config wires the stages of a Processor. Rules, Progress and Logger are
// optional.
type Config struct {
	Decoder  *layout.Decoder
	Rules    *match.Set
	Output   formatter.Formatter
	Progress Progress
	Logger   *slog.Logger
}

// Processor owns the accumulation tree for the duration of a run.
type Processor struct {
	reader   *FrameReader
	decoder  *layout.Decoder
	rules    *match.Set
	output   formatter.Formatter
	progress Progress
	logger   *slog.Logger
}

func New(r io.Reader, cfg Config) *Processor {
	p := &Processor{
		reader:   NewFrameReader(r, cfg.Decoder.FrameSize()),
		decoder:  cfg.Decoder,
		rules:    cfg.Rules,
		output:   cfg.Output,
		progress: cfg.Progress,
		logger:   cfg.Logger,
	}
	if p.rules == nil {
		p.rules = match.NewSet(match.ModeAnd)
	}
	if p.progress == nil {
		p.progress = noProgress{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run processes records until a stop record, the end of input or ctx is
// done. On stop and end of input the entity still being built is
// finalized and written too. A cancelled run returns ctx.Err() without
// flushing.
func (p *Processor) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary = newSummary()
	state := layout.NewState()

	defer func() {
		summary.Bytes = p.reader.Offset()
		summary.Duration = time.Since(start)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		offset := p.reader.Offset()
		frame, err := p.reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read record %d: %w", summary.Records+1, err)
		}
		summary.Records++

		outcome, err := p.decoder.Decode(state, frame)
		if err != nil {
			return summary, fmt.Errorf("decode record %d: %w", summary.Records, err)
		}

		p.logger.Debug("record", "type", string(outcome.Type), "record", summary.Records, "offset", offset)

		switch {
		case outcome.Unregistered:
			summary.Unregistered[string(outcome.Type)]++
			p.logger.Warn("unknown record type", "type", string(outcome.Type), "record", summary.Records)
		case outcome.Ignored:
			summary.Ignored++
		}

		if err := p.emit(outcome.Finalized, &summary); err != nil {
			return summary, err
		}
		p.progress.Update(p.reader.Offset(), summary.Written)

		if outcome.Stop {
			summary.Stopped = true
			p.logger.Debug("stop record reached", "type", string(outcome.Type), "record", summary.Records)
			break
		}
	}

	outcome, err := p.decoder.Flush(state)
	if err != nil {
		return summary, fmt.Errorf("flush: %w", err)
	}
	if err := p.emit(outcome.Finalized, &summary); err != nil {
		return summary, err
	}

	summary.Trailer = trailer(p.decoder.Summary(state))
	p.progress.Finish(p.reader.Offset(), summary.Written)
	return summary, nil
}

func (p *Processor) emit(finalized any, summary *Summary) error {
	if entity.IsAbsent(finalized) {
		return nil
	}
	summary.Entities++

	ok, mc := p.rules.Evaluate(finalized)
	for _, outcome := range mc.Outcomes() {
		p.logger.Debug("rule", "entity", summary.Entities, "rule", outcome.Rule, "matched", outcome.Matched, "paths", outcome.Paths)
	}
	if !ok {
		return nil
	}
	p.logger.Debug("entity matched", "entity", summary.Entities, "matches", mc.Paths())

	if err := p.output.Write(finalized, mc); err != nil {
		return fmt.Errorf("write entity %d: %w", summary.Entities, err)
	}
	summary.Written++
	return nil
}

// trailer collects the scalar fields of the layout's summary object.
func trailer(value any, found bool) []Total {
	obj, ok := value.(*entity.Object)
	if !found || !ok {
		return nil
	}

	var totals []Total
	for _, name := range obj.Keys() {
		v, _ := obj.Get(name)
		totals = append(totals, Total{Name: name, Value: formatter.Text(v)})
	}
	return totals
}

type noProgress struct{}

func (noProgress) Update(int64, int) {}
func (noProgress) Finish(int64, int) {}
