package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

const (
	// DBusInterface is the overlay interface name.
	DBusInterface = "io.github.jmylchreest.ReqHUD"
	// DBusPath is the overlay object path.
	DBusPath = "/io/github/jmylchreest/ReqHUD"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.ReqHUD"

	// SignalResponded is emitted once per answered request.
	SignalResponded = "Responded"
)

// Handler consumes messages arriving over D-Bus. *overlay.Controller
// satisfies it.
type Handler interface {
	HandleMessage(msg model.Message) error
	State() overlay.ViewState
}

// ServerInfo describes the running daemon.
type ServerInfo struct {
	Name    string
	Vendor  string
	Version string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:    "reqhudd",
		Vendor:  "jmylchreest",
		Version: "0.1.0",
	}
}

// requestFromArgs builds a request from ShowRequest arguments.
func requestFromArgs(id, title, sourceName, description string) model.Request {
	return model.Request{
		ID:          id,
		Title:       title,
		SourceName:  sourceName,
		Description: description,
	}
}

// respondedBody returns the signal body for resp.
func respondedBody(resp model.Response) []any {
	return []any{resp.RequestID, string(resp.Response), resp.Expired}
}

// ParseResponded decodes a Responded signal.
func ParseResponded(sig *dbus.Signal) (model.Response, error) {
	if sig == nil {
		return model.Response{}, fmt.Errorf("nil signal")
	}
	if sig.Name != DBusInterface+"."+SignalResponded {
		return model.Response{}, fmt.Errorf("unexpected signal %s", sig.Name)
	}
	if len(sig.Body) < 3 {
		return model.Response{}, fmt.Errorf("malformed %s signal: %d arguments", SignalResponded, len(sig.Body))
	}

	id, ok := sig.Body[0].(string)
	if !ok {
		return model.Response{}, fmt.Errorf("invalid request_id type %T", sig.Body[0])
	}
	answer, ok := sig.Body[1].(string)
	if !ok {
		return model.Response{}, fmt.Errorf("invalid response type %T", sig.Body[1])
	}
	expired, ok := sig.Body[2].(bool)
	if !ok {
		return model.Response{}, fmt.Errorf("invalid expired type %T", sig.Body[2])
	}

	return model.Response{
		RequestID: id,
		Response:  model.Answer(answer),
		Expired:   expired,
	}, nil
}
