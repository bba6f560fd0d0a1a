package bridge

import (
	"time"

	"github.com/jmylchreest/reqhud/internal/model"
	"github.com/jmylchreest/reqhud/internal/overlay"
)

// State is the JSON body served at GET /state.
type State struct {
	Visible  bool           `json:"visible" yaml:"visible"`
	Request  *model.Request `json:"request,omitempty" yaml:"request,omitempty"`
	TimeLeft int            `json:"time_left" yaml:"time_left"`
	Total    int            `json:"total" yaml:"total"`
	Expiring bool           `json:"expiring" yaml:"expiring"`
	ShownAt  *time.Time     `json:"shown_at,omitempty" yaml:"shown_at,omitempty"`
}

// StateFromView converts a controller snapshot.
func StateFromView(v overlay.ViewState) State {
	if !v.Visible {
		return State{}
	}
	req := v.Request
	shownAt := v.ShownAt
	return State{
		Visible:  true,
		Request:  &req,
		TimeLeft: v.TimeLeft,
		Total:    v.Total,
		Expiring: v.Expiring,
		ShownAt:  &shownAt,
	}
}
