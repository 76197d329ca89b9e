package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Transport moves one message at a time between the server and its peer
type Transport interface {
	// Read returns the next message, or io.EOF when the stream ends
	Read(ctx context.Context) ([]byte, error)
	// Write sends one message
	Write(message []byte) error
	Close() error
}

const maxLineSize = 1024 * 1024

// StdioTransport reads and writes newline-delimited messages
type StdioTransport struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
	bufOut  *bufio.Writer

	startReader sync.Once
	lines       chan scanResult
	done        chan struct{}
	closeOnce   sync.Once
}

type scanResult struct {
	line []byte
	err  error
}

var _ Transport = &StdioTransport{}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(in io.Reader, out io.Writer) *StdioTransport {
	scanner := bufio.NewScanner(in)
	// Set a reasonable max size for each line
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	return &StdioTransport{
		in:      in,
		out:     out,
		scanner: scanner,
		bufOut:  bufio.NewWriter(out),
		lines:   make(chan scanResult),
		done:    make(chan struct{}),
	}
}

// Read returns the next non-blank line. It returns as soon as ctx is done,
// even while the input is blocked.
func (t *StdioTransport) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.startReader.Do(func() { go t.scan() })

	select {
	case r, ok := <-t.lines:
		if !ok {
			return nil, io.EOF
		}
		return r.line, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, io.EOF
	}
}

// scan feeds lines to Read until the input ends
func (t *StdioTransport) scan() {
	defer close(t.lines)
	for t.scanner.Scan() {
		line := bytes.TrimSpace(t.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer between calls.
		if !t.send(scanResult{line: bytes.Clone(line)}) {
			return
		}
	}
	if err := t.scanner.Err(); err != nil {
		t.send(scanResult{err: fmt.Errorf("error reading input: %w", err)})
	}
}

func (t *StdioTransport) send(r scanResult) bool {
	select {
	case t.lines <- r:
		return true
	case <-t.done:
		return false
	}
}

// Write writes message followed by a newline and flushes
func (t *StdioTransport) Write(message []byte) error {
	if bytes.ContainsAny(message, "\r\n") {
		return errors.New("message contains a line break")
	}
	if _, err := t.bufOut.Write(message); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	if err := t.bufOut.WriteByte('\n'); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	if err := t.bufOut.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	return nil
}

// Close flushes pending output and closes the underlying streams
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })

	var errs []error
	if err := t.bufOut.Flush(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := t.in.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := t.out.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
