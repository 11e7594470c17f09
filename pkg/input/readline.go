// Package input reads user lines without blocking cancellation.
package input

import (
	"bufio"
	"context"
	"io"
	"strings"
)

type line struct {
	text string
	err  error
}

// LineReader reads newline-terminated lines from an io.Reader on a
// background goroutine so that ReadLine can return as soon as its context
// is cancelled. A single LineReader must be used for the lifetime of the
// reader: buffered input is not shared between instances.
type LineReader struct {
	lines chan line
}

func NewLineReader(rd io.Reader) *LineReader {
	r := &LineReader{lines: make(chan line)}
	go r.pump(bufio.NewReader(rd))
	return r
}

func (r *LineReader) pump(br *bufio.Reader) {
	defer close(r.lines)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			r.lines <- line{text: strings.TrimRight(text, "\r\n")}
		}
		if err != nil {
			r.lines <- line{err: err}
			return
		}
	}
}

// ReadLine returns the next line without its line terminator. A final line
// without a trailing newline is returned before io.EOF.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}
