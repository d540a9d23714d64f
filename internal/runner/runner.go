// Package runner assembles a conversion from a Config: it opens the input
// and output, selects the record layout and output format, and drives the
// stream processor.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jacoelho/cnpj/internal/config"
	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/formatter/csv"
	"github.com/jacoelho/cnpj/internal/formatter/jsonl"
	"github.com/jacoelho/cnpj/internal/formatter/sqlite"
	"github.com/jacoelho/cnpj/internal/layout"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/progress"
	"github.com/jacoelho/cnpj/internal/stream"
)

type Runner struct {
	config    *config.Config
	schema    *layout.Schema
	rules     *match.Set
	options   formatter.Options
	output    io.Writer
	errOutput io.Writer
	logger    *slog.Logger
}

// New validates cfg and compiles everything a run needs, so setup errors
// surface before any output is created.
func New(cfg *config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	schema, err := LoadSchema(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	options, err := cfg.FormatterOptions()
	if err != nil {
		return nil, err
	}

	return &Runner{
		config:    cfg,
		schema:    schema,
		rules:     rules,
		options:   options,
		output:    os.Stdout,
		errOutput: os.Stderr,
		logger:    slog.Default(),
	}, nil
}

// LoadSchema returns the configured record layout, the built-in one when
// no layout file is set.
func LoadSchema(cfg *config.Config) (*layout.Schema, error) {
	schema := layout.Default()
	if cfg.Layout != "" {
		loaded, err := layout.LoadFile(cfg.Layout)
		if err != nil {
			return nil, err
		}
		schema = loaded
	}

	if cfg.Encoding != "" {
		if err := schema.SetEncoding(cfg.Encoding); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// SetOutput sets where entities go when no output file is configured.
func (r *Runner) SetOutput(w io.Writer) {
	r.output = w
}

// SetErrorOutput sets where progress is drawn.
func (r *Runner) SetErrorOutput(w io.Writer) {
	r.errOutput = w
}

func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

func (r *Runner) payloadWriter() io.Writer {
	if r.output == nil {
		return io.Discard
	}
	return r.output
}

func (r *Runner) errorWriter() io.Writer {
	if r.errOutput == nil {
		return io.Discard
	}
	return r.errOutput
}

// Run converts the input file. Output written before a failure is kept.
func (r *Runner) Run(ctx context.Context) (stream.Summary, error) {
	in, err := os.Open(r.config.Input)
	if err != nil {
		return stream.Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var size int64
	if info, err := in.Stat(); err == nil {
		size = info.Size()
	}

	out, closeOutput, err := r.openFormatter(ctx)
	if err != nil {
		return stream.Summary{}, err
	}

	r.logger.Info("converting",
		"input", r.config.Input,
		"output", r.config.Output,
		"type", r.config.Format,
		"rules", r.rules.Len(),
		"mode", r.rules.Mode().String(),
	)

	cfg := stream.Config{
		Decoder: layout.NewDecoder(r.schema, r.logger),
		Rules:   r.rules,
		Output:  out,
		Logger:  r.logger,
	}
	if r.config.Progress {
		cfg.Progress = progress.New(r.errorWriter(), size, r.rules.Len() > 0)
	}

	summary, runErr := stream.New(in, cfg).Run(ctx)
	if err := out.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close output: %w", err))
	}
	if err := closeOutput(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close output: %w", err))
	}
	return summary, runErr
}

func (r *Runner) openFormatter(ctx context.Context) (formatter.Formatter, func() error, error) {
	noop := func() error { return nil }

	if r.config.Format == config.FormatSQLite {
		// claim the path before the driver opens it
		file, err := os.OpenFile(r.config.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		if err := file.Close(); err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		f, err := sqlite.New(ctx, r.config.Output, r.options)
		if err != nil {
			_ = os.Remove(r.config.Output)
			return nil, nil, fmt.Errorf("create output %s: %w", r.config.Output, err)
		}
		return f, noop, nil
	}

	w, closeOutput := r.payloadWriter(), noop
	if r.config.Output != "" {
		file, err := os.OpenFile(r.config.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("create output: %w", err)
		}
		w, closeOutput = file, file.Close
	} else {
		r.logger.Debug("using console output")
	}

	if r.config.Format == config.FormatJSON {
		f, err := jsonl.New(w, r.options)
		if err != nil {
			_ = closeOutput()
			return nil, nil, err
		}
		return f, closeOutput, nil
	}
	return csv.New(w, r.options), closeOutput, nil
}
