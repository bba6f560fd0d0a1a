package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/reqhud/internal/model"
)

// RequestServer exports the overlay on the session bus.
type RequestServer struct {
	conn    *dbus.Conn
	handler Handler
	logger  *slog.Logger

	mu         sync.RWMutex
	serverInfo ServerInfo
	running    bool
}

// NewRequestServer creates a new RequestServer feeding handler.
func NewRequestServer(handler Handler, logger *slog.Logger) *RequestServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestServer{
		handler:    handler,
		logger:     logger,
		serverInfo: DefaultServerInfo(),
	}
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *RequestServer) SetServerInfo(info ServerInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverInfo = info
}

// Start connects to the session bus and exports the overlay service.
func (s *RequestServer) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: requestMethods(),
				Signals: requestSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus request server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *RequestServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// The session bus connection is shared; leave it open.
	}

	s.logger.Info("D-Bus request server stopped")
	return nil
}

// ShowRequest displays a request.
// D-Bus method: ShowRequest(ssss) -> nothing
func (s *RequestServer) ShowRequest(id, title, sourceName, description string) *dbus.Error {
	s.logger.Debug("ShowRequest called", "request_id", id, "source", sourceName)
	req := requestFromArgs(id, title, sourceName, description)
	if err := s.handler.HandleMessage(model.ShowMessage(req)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// HideRequest withdraws the visible request.
// D-Bus method: HideRequest() -> nothing
func (s *RequestServer) HideRequest() *dbus.Error {
	s.logger.Debug("HideRequest called")
	if err := s.handler.HandleMessage(model.HideMessage()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetState reports whether a request is visible.
// D-Bus method: GetState() -> (bsi)
func (s *RequestServer) GetState() (bool, string, int32, *dbus.Error) {
	view := s.handler.State()
	return view.Visible, view.Request.ID, int32(view.TimeLeft), nil
}

// GetServerInformation returns information about the daemon.
// D-Bus method: GetServerInformation() -> (sss)
func (s *RequestServer) GetServerInformation() (string, string, string, *dbus.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo.Name, s.serverInfo.Vendor, s.serverInfo.Version, nil
}

// requestMethods returns the D-Bus method introspection data.
func requestMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "ShowRequest",
			Args: []introspect.Arg{
				{Name: "request_id", Type: "s", Direction: "in"},
				{Name: "title", Type: "s", Direction: "in"},
				{Name: "source_name", Type: "s", Direction: "in"},
				{Name: "description", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "HideRequest",
		},
		{
			Name: "GetState",
			Args: []introspect.Arg{
				{Name: "visible", Type: "b", Direction: "out"},
				{Name: "request_id", Type: "s", Direction: "out"},
				{Name: "time_left", Type: "i", Direction: "out"},
			},
		},
		{
			Name: "GetServerInformation",
			Args: []introspect.Arg{
				{Name: "name", Type: "s", Direction: "out"},
				{Name: "vendor", Type: "s", Direction: "out"},
				{Name: "version", Type: "s", Direction: "out"},
			},
		},
	}
}

// requestSignals returns the D-Bus signal introspection data.
func requestSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalResponded,
			Args: []introspect.Arg{
				{Name: "request_id", Type: "s"},
				{Name: "response", Type: "s"},
				{Name: "expired", Type: "b"},
			},
		},
	}
}
