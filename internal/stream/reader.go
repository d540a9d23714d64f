package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/jacoelho/cnpj/internal/layout"
)

// FrameReader splits an input into fixed size frames. A frame may be
// followed by "\n" or "\r\n", which is skipped.
type FrameReader struct {
	reader *bufio.Reader
	frame  []byte
	offset int64
}

func NewFrameReader(r io.Reader, size int) *FrameReader {
	return &FrameReader{
		reader: bufio.NewReaderSize(r, 64*1024),
		frame:  make([]byte, size),
	}
}

// Next returns the next frame, valid until the following call. It returns
// io.EOF when the input ends between frames and layout.ErrShortRecord when
// it ends inside one.
func (fr *FrameReader) Next() ([]byte, error) {
	n, err := io.ReadFull(fr.reader, fr.frame)
	fr.offset += int64(n)
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: frame at offset %d has %d of %d bytes",
			layout.ErrShortRecord, fr.offset-int64(n), n, len(fr.frame))
	case err != nil:
		return nil, err
	}

	if err := fr.skipTerminator(); err != nil {
		return nil, err
	}
	return fr.frame, nil
}

// Offset is the number of input bytes consumed so far.
func (fr *FrameReader) Offset() int64 {
	return fr.offset
}

func (fr *FrameReader) skipTerminator() error {
	peek, err := fr.reader.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	skip := 0
	switch {
	case len(peek) >= 1 && peek[0] == '\n':
		skip = 1
	case len(peek) == 2 && peek[0] == '\r' && peek[1] == '\n':
		skip = 2
	}
	if skip == 0 {
		return nil
	}

	discarded, err := fr.reader.Discard(skip)
	fr.offset += int64(discarded)
	return err
}
