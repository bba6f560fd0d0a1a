package bridge

import (
	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// Fanout forwards each answer to every responder in order.
type Fanout []overlay.Responder

// Respond implements overlay.Responder.
func (f Fanout) Respond(resp model.Response) {
	for _, r := range f {
		if r != nil {
			r.Respond(resp)
		}
	}
}
