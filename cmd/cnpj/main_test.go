package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func record(kind byte, values map[int]string) string {
	frame := []byte(strings.Repeat(" ", 1200))
	frame[0] = kind
	for start, value := range values {
		copy(frame[start-1:], value)
	}
	return string(frame)
}

func writeInput(t *testing.T) string {
	t.Helper()

	input := record('1', map[int]string{3: "12345678000199", 19: "ACME CORP", 683: "SP"}) + "\n" +
		record('9', map[int]string{45: "00000000001"}) + "\n"
	path := filepath.Join(t.TempDir(), "dados.txt")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunParse(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	code := run([]string{"parse", "--in", writeInput(t), "--csv", "razaoSocial,uf", "--sep", ";"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}

	want := `"razaoSocial";"uf"` + "\n" + `"ACME CORP";"SP"` + "\n"
	if stdout.String() != want {
		t.Fatalf("stdout =\n%s\nwant\n%s", stdout.String(), want)
	}
	if !strings.Contains(stderr.String(), "Written:      1") || !strings.Contains(stderr.String(), "total: 00000000001") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunParseWithConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "cnpj.yaml")
	content := "in: " + writeInput(t) + "\ncsv: razaoSocial\nno-header: true\nmatch: uf:RJ\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"parse", "--config", cfgFile, "-m", "uf:SP"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if stdout.String() != `"ACME CORP"`+"\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		code    int
		message string
	}{
		{name: "missing_input", args: []string{"parse"}, code: 2, message: "Error: no input file specified"},
		{name: "bad_rule", args: []string{"parse", "--in", "x", "-m", "uf"}, code: 1, message: "Error: invalid match spec"},
		{name: "unreadable_input", args: []string{"parse", "--in", "/nonexistent/file"}, code: 1, message: "Error: open input"},
		{name: "unknown_command", args: []string{"convert"}, code: 1, message: "Error: unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.code {
				t.Fatalf("exit code = %d, want %d (stderr %s)", code, tt.code, stderr.String())
			}
			if !strings.HasPrefix(stderr.String(), tt.message) {
				t.Fatalf("stderr = %q, want prefix %q", stderr.String(), tt.message)
			}
		})
	}
}

func TestRunLayout(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"layout", "--encoding", "latin1"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	for _, want := range []string{"frame_size: 1200", "encoding: latin1", "razaoSocial"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("layout output missing %q", want)
		}
	}
}

func TestRunWithoutCommandShowsHelp(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run([]string{}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "parse") {
		t.Fatalf("help output = %s", stdout.String())
	}
}
