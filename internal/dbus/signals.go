package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/reqhud/internal/model"
)

// EmitResponded emits the Responded signal.
func (s *RequestServer) EmitResponded(resp model.Response) error {
	s.mu.RLock()
	conn, running := s.conn, s.running
	s.mu.RUnlock()

	if conn == nil || !running {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := conn.Emit(DBusPath, DBusInterface+"."+SignalResponded, respondedBody(resp)...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", SignalResponded, err)
	}

	s.logger.Debug("emitted Responded signal", "request_id", resp.RequestID, "response", resp.Response)
	return nil
}

// Respond implements overlay.Responder by broadcasting the answer.
func (s *RequestServer) Respond(resp model.Response) {
	if err := s.EmitResponded(resp); err != nil {
		s.logger.Debug("skipping Responded signal", "request_id", resp.RequestID, "error", err)
	}
}

// Watcher subscribes to Responded signals from a running daemon.
type Watcher struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewWatcher creates a Watcher on the session bus.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Watcher{conn: conn, logger: logger}, nil
}

// Watch calls fn for each answer until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, fn func(model.Response)) error {
	if err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember(SignalResponded),
		dbus.WithMatchObjectPath(DBusPath),
	); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	ch := make(chan *dbus.Signal, 16)
	w.conn.Signal(ch)
	defer w.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return fmt.Errorf("D-Bus connection closed")
			}
			resp, err := ParseResponded(sig)
			if err != nil {
				w.logger.Debug("ignoring signal", "name", sig.Name, "error", err)
				continue
			}
			fn(resp)
		}
	}
}

// Close closes the watcher's private connection.
func (w *Watcher) Close() error {
	return w.conn.Close()
}
