package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/jacoelho/cnpj/internal/formatter"
	"github.com/jacoelho/cnpj/internal/formatter/csv"
	"github.com/jacoelho/cnpj/internal/layout"
	"github.com/jacoelho/cnpj/internal/match"
	"github.com/jacoelho/cnpj/internal/pathexpr"
)

// record builds a default layout frame with values placed at 1-indexed
// positions.
func record(kind byte, values map[int]string) string {
	frame := []byte(strings.Repeat(" ", 1200))
	frame[0] = kind
	for start, value := range values {
		copy(frame[start-1:], value)
	}
	return string(frame)
}

func company(name string) string {
	return record('1', map[int]string{3: "12345678000199", 19: name})
}

func partner(name string) string {
	return record('2', map[int]string{18: "2", 19: name})
}

func trailerRecord() string {
	return record('9', map[int]string{18: "000000001", 27: "000000002", 36: "000000003", 45: "00000000006"})
}

type run struct {
	summary Summary
	output  string
}

func process(t *testing.T, ctx context.Context, input string, rules string) (run, error) {
	t.Helper()

	paths, err := pathexpr.ParseList("razaoSocial,socios[].nome")
	if err != nil {
		t.Fatalf("ParseList error = %v", err)
	}
	set, err := match.ParseSet(rules, match.ModeAnd)
	if err != nil {
		t.Fatalf("ParseSet error = %v", err)
	}

	var buf bytes.Buffer
	out := csv.New(&buf, formatter.Options{Paths: paths, Separator: ",", Delimiter: `"`, Header: true})
	p := New(strings.NewReader(input), Config{
		Decoder: layout.NewDecoder(layout.Default(), nil),
		Rules:   set,
		Output:  out,
	})

	summary, runErr := p.Run(ctx)
	if err := out.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	return run{summary: summary, output: buf.String()}, runErr
}

func TestRunSingleCompanyAndTrailer(t *testing.T) {
	t.Parallel()

	got, err := process(t, context.Background(), company("ACME CORP")+trailerRecord(), "")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	want := `"razaoSocial","socios[].nome"` + "\n" + `"ACME CORP",` + "\n"
	if got.output != want {
		t.Fatalf("output =\n%s\nwant\n%s", got.output, want)
	}

	s := got.summary
	if s.Records != 2 || s.Entities != 1 || s.Written != 1 || !s.Stopped {
		t.Fatalf("summary = %+v", s)
	}
	wantTrailer := []Total{
		{Name: "totalt1", Value: "000000001"},
		{Name: "totalt2", Value: "000000002"},
		{Name: "totalt3", Value: "000000003"},
		{Name: "total", Value: "00000000006"},
	}
	if len(s.Trailer) != len(wantTrailer) {
		t.Fatalf("trailer = %+v, want %+v", s.Trailer, wantTrailer)
	}
	for i := range wantTrailer {
		if s.Trailer[i] != wantTrailer[i] {
			t.Fatalf("trailer[%d] = %+v, want %+v", i, s.Trailer[i], wantTrailer[i])
		}
	}
}

func TestRunFullFile(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		record('0', nil),
		company("ACME CORP"),
		partner("ANA"),
		partner("BRUNO"),
		record('6', nil),
		record('7', nil),
		company("BETA SA"),
		partner("CARLA"),
		trailerRecord(),
		company("AFTER TRAILER"),
	}, "\r\n")

	got, err := process(t, context.Background(), input, "")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	want := `"razaoSocial","socios[].nome"` + "\n" +
		`"ACME CORP","ANA"` + "\n" +
		`,"BRUNO"` + "\n" +
		`"BETA SA","CARLA"` + "\n"
	if got.output != want {
		t.Fatalf("output =\n%s\nwant\n%s", got.output, want)
	}

	s := got.summary
	if s.Records != 9 {
		t.Errorf("Records = %d, want 9", s.Records)
	}
	if s.Ignored != 2 {
		t.Errorf("Ignored = %d, want 2", s.Ignored)
	}
	if s.Unregistered["7"] != 1 || s.UnregisteredTotal() != 1 {
		t.Errorf("Unregistered = %v", s.Unregistered)
	}
	if s.Entities != 2 || s.Written != 2 {
		t.Errorf("Entities = %d, Written = %d, want 2 and 2", s.Entities, s.Written)
	}
}

func TestRunWithoutTrailerFlushesLastCompany(t *testing.T) {
	t.Parallel()

	input := company("ACME CORP") + "\n" + partner("ANA") + "\n"
	got, err := process(t, context.Background(), input, "")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	want := `"razaoSocial","socios[].nome"` + "\n" + `"ACME CORP","ANA"` + "\n"
	if got.output != want {
		t.Fatalf("output =\n%s\nwant\n%s", got.output, want)
	}
	if got.summary.Stopped || got.summary.Trailer != nil {
		t.Fatalf("summary = %+v, want no stop and no trailer", got.summary)
	}
}

func TestRunFiltersEntities(t *testing.T) {
	t.Parallel()

	input := company("ACME CORP") + company("BETA SA") + trailerRecord()
	got, err := process(t, context.Background(), input, "razaoSocial:BETA")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	want := `"razaoSocial","socios[].nome"` + "\n" + `"BETA SA",` + "\n"
	if got.output != want {
		t.Fatalf("output =\n%s\nwant\n%s", got.output, want)
	}
	if got.summary.Entities != 2 || got.summary.Written != 1 {
		t.Fatalf("summary = %+v", got.summary)
	}
}

func TestRunShortRecordIsFatal(t *testing.T) {
	t.Parallel()

	input := company("ACME CORP") + "\n" + company("BETA SA")[:600]
	got, err := process(t, context.Background(), input, "")
	if !errors.Is(err, layout.ErrShortRecord) {
		t.Fatalf("Run error = %v, want ErrShortRecord", err)
	}
	if got.summary.Records != 1 {
		t.Fatalf("Records = %d, want 1", got.summary.Records)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := process(t, ctx, company("ACME CORP"), "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if got.summary.Records != 0 {
		t.Fatalf("Records = %d, want 0", got.summary.Records)
	}
}

type recordingProgress struct {
	updates  int
	finished bool
	offset   int64
}

func (r *recordingProgress) Update(int64, int) { r.updates++ }

func (r *recordingProgress) Finish(offset int64, _ int) {
	r.finished = true
	r.offset = offset
}

func TestRunReportsProgress(t *testing.T) {
	t.Parallel()

	input := company("ACME CORP") + trailerRecord()
	progress := &recordingProgress{}

	var buf bytes.Buffer
	paths, _ := pathexpr.ParseList("razaoSocial")
	p := New(strings.NewReader(input), Config{
		Decoder:  layout.NewDecoder(layout.Default(), nil),
		Output:   csv.New(&buf, formatter.Options{Paths: paths}),
		Progress: progress,
	})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if progress.updates != 2 || !progress.finished || progress.offset != int64(len(input)) {
		t.Fatalf("progress = %+v", progress)
	}
}

func TestRunLogsRecordsAndRulesAtDebug(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	set, err := match.ParseSet("razaoSocial:ACME", match.ModeAnd)
	if err != nil {
		t.Fatalf("ParseSet error = %v", err)
	}
	paths, _ := pathexpr.ParseList("razaoSocial")
	var out bytes.Buffer
	p := New(strings.NewReader(company("ACME CORP")+partner("ANA")+trailerRecord()), Config{
		Decoder: layout.NewDecoder(layout.Default(), logger),
		Rules:   set,
		Output:  csv.New(&out, formatter.Options{Paths: paths}),
		Logger:  logger,
	})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	type entry struct {
		Msg     string   `json:"msg"`
		Type    string   `json:"type"`
		Offset  int64    `json:"offset"`
		Rule    string   `json:"rule"`
		Matched bool     `json:"matched"`
		Paths   []string `json:"paths"`
	}

	var records, rules []entry
	for line := range strings.Lines(logs.String()) {
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		switch e.Msg {
		case "record":
			records = append(records, e)
		case "rule":
			rules = append(rules, e)
		}
	}

	wantRecords := []entry{
		{Msg: "record", Type: "1", Offset: 0},
		{Msg: "record", Type: "2", Offset: 1200},
		{Msg: "record", Type: "9", Offset: 2400},
	}
	if len(records) != len(wantRecords) {
		t.Fatalf("record lines = %+v, want %+v", records, wantRecords)
	}
	for i, want := range wantRecords {
		if records[i].Type != want.Type || records[i].Offset != want.Offset {
			t.Fatalf("record line %d = %+v, want %+v", i, records[i], want)
		}
	}

	if len(rules) != 1 {
		t.Fatalf("rule lines = %+v, want one", rules)
	}
	if got := rules[0]; got.Rule != "razaoSocial:ACME" || !got.Matched || !slices.Equal(got.Paths, []string{"razaoSocial"}) {
		t.Fatalf("rule line = %+v", got)
	}
}

func TestRunReadsTotalsFromLayoutSummary(t *testing.T) {
	t.Parallel()

	const base = `frame_size: 10
flush:
  - swap: {from: in, to: out}
records:
  "1":
    actions:
      - swap: {from: in, to: out}
    target: in
    fields:
      - {name: nome, start: 2, length: 5}
  "9":
    actions:
      - allocate: totais
      - stop: true
    target: totais
    fields:
      - {name: registros, start: 2, length: 3}
`

	tests := []struct {
		name   string
		layout string
		want   []Total
	}{
		{name: "declared", layout: base + "summary: totais\n", want: []Total{{Name: "registros", Value: "001"}}},
		{name: "undeclared", layout: base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			schema, err := layout.Load(strings.NewReader(tt.layout))
			if err != nil {
				t.Fatalf("Load error = %v", err)
			}
			paths, _ := pathexpr.ParseList("nome")
			var out bytes.Buffer
			p := New(strings.NewReader("1ACME     \n9001      \n"), Config{
				Decoder: layout.NewDecoder(schema, nil),
				Output:  csv.New(&out, formatter.Options{Paths: paths}),
			})

			summary, err := p.Run(context.Background())
			if err != nil {
				t.Fatalf("Run error = %v", err)
			}
			if summary.Written != 1 || !slices.Equal(summary.Trailer, tt.want) {
				t.Fatalf("summary = %+v, want trailer %+v", summary, tt.want)
			}
		})
	}
}

func TestSummaryPrint(t *testing.T) {
	t.Parallel()

	s := Summary{
		Records:      3,
		Ignored:      1,
		Unregistered: map[string]int{"7": 1},
		Entities:     1,
		Written:      1,
		Trailer:      []Total{{Name: "total", Value: "00000000001"}},
	}

	var buf bytes.Buffer
	if err := s.Print(&buf); err != nil {
		t.Fatalf("Print error = %v", err)
	}

	for _, want := range []string{"Records:      3", "Unregistered: 1", `type "7":`, "Written:      1", "  total: 00000000001"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
