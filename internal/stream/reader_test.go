package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jacoelho/cnpj/internal/layout"
)

func TestFrameReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "no_terminator", input: "1abc2def", want: []string{"1abc", "2def"}},
		{name: "lf", input: "1abc\n2def\n", want: []string{"1abc", "2def"}},
		{name: "crlf", input: "1abc\r\n2def\r\n", want: []string{"1abc", "2def"}},
		{name: "mixed", input: "1abc\r\n2def3ghi\n", want: []string{"1abc", "2def", "3ghi"}},
		{name: "empty", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fr := NewFrameReader(strings.NewReader(tt.input), 4)
			var got []string
			for {
				frame, err := fr.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("Next error = %v", err)
				}
				got = append(got, string(frame))
			}

			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Fatalf("frames = %q, want %q", got, tt.want)
			}
			if fr.Offset() != int64(len(tt.input)) {
				t.Fatalf("Offset = %d, want %d", fr.Offset(), len(tt.input))
			}
		})
	}
}

func TestFrameReaderShortFrame(t *testing.T) {
	t.Parallel()

	fr := NewFrameReader(strings.NewReader("1abc\n2d"), 4)
	if _, err := fr.Next(); err != nil {
		t.Fatalf("first Next error = %v", err)
	}

	_, err := fr.Next()
	if !errors.Is(err, layout.ErrShortRecord) {
		t.Fatalf("Next error = %v, want ErrShortRecord", err)
	}
}
