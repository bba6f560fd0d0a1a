package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jmylchreest/reqhud/internal/model"
)

// LineReader reads one JSON message per line, as written by a host that
// spawns reqhudd with --stdio.
type LineReader struct {
	reader  io.Reader
	handler Handler
	logger  *slog.Logger
}

// NewLineReader creates a LineReader feeding handler.
func NewLineReader(r io.Reader, handler Handler, logger *slog.Logger) *LineReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineReader{reader: r, handler: handler, logger: logger}
}

// Run processes lines until EOF or ctx is cancelled. Malformed lines,
// lines over the message size limit and unknown actions are logged and
// skipped. On cancellation Run returns at once; a read already blocked on
// the underlying reader is abandoned, not closed.
func (l *LineReader) Run(ctx context.Context) error {
	br := bufio.NewReaderSize(l.reader, 64*1024)

	lines := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		for {
			line, err := l.readLine(br)
			if line != nil {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					errCh <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return fmt.Errorf("failed to read stdin: %w", err)
				default:
				}
				return nil
			}
			l.dispatch(line)
		}
	}
}

// readLine returns the next complete line. A line longer than
// maxMessageSize is consumed and dropped, returning nil with no error.
func (l *LineReader) readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if tooLong || len(line) == 0 {
				return nil, err
			}
			return line, nil
		}
		if !tooLong {
			line = append(line, frag...)
			if len(line) > maxMessageSize {
				tooLong = true
				line = nil
			}
		}
		if !isPrefix {
			if tooLong {
				l.logger.Debug("skipping oversized line", "limit", maxMessageSize)
				return nil, nil
			}
			if line == nil {
				line = []byte{}
			}
			return line, nil
		}
	}
}

func (l *LineReader) dispatch(line []byte) {
	if len(line) == 0 {
		return
	}
	msg, err := DecodeMessage(line)
	if err != nil {
		l.logger.Debug("skipping malformed line", "error", err)
		return
	}
	if err := l.handler.HandleMessage(msg); err != nil && !errors.Is(err, model.ErrUnknownAction) {
		l.logger.Warn("failed to handle message", "action", msg.Action, "error", err)
	}
}

// LineWriter writes each answer as a JSON line. It implements
// overlay.Responder for hosts reading reqhudd's stdout.
type LineWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *slog.Logger
}

// NewLineWriter creates a LineWriter on w.
func NewLineWriter(w io.Writer, logger *slog.Logger) *LineWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineWriter{enc: json.NewEncoder(w), logger: logger}
}

// Respond implements overlay.Responder.
func (lw *LineWriter) Respond(resp model.Response) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if err := lw.enc.Encode(resp); err != nil {
		lw.logger.Error("failed to write response", "request_id", resp.RequestID, "error", err)
	}
}
