package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// stdioHost wires stdlib.Host's three callbacks to the process's own
// stdin/stdout/stderr, printing results straight to the terminal rather
// than through any further abstraction.
type stdioHost struct {
	out *bufio.Writer
	err io.Writer
	in  *bufio.Reader
}

func newStdioHost(out io.Writer, errOut io.Writer, in io.Reader) *stdioHost {
	return &stdioHost{out: bufio.NewWriter(out), err: errOut, in: bufio.NewReader(in)}
}

func (h *stdioHost) Say(ctx context.Context, text string) error {
	if _, err := fmt.Fprintln(h.out, text); err != nil {
		return err
	}
	return h.out.Flush()
}

func (h *stdioHost) Warn(ctx context.Context, text string) error {
	_, err := fmt.Fprintln(h.err, text)
	return err
}

func (h *stdioHost) Ask(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		if _, err := fmt.Fprint(h.out, prompt); err != nil {
			return "", err
		}
		if err := h.out.Flush(); err != nil {
			return "", err
		}
	}
	line, err := h.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}
