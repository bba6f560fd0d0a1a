package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewState_Fraction(t *testing.T) {
	tests := []struct {
		name string
		view ViewState
		want float64
	}{
		{"hidden", ViewState{TimeLeft: 10, Total: 30}, 0},
		{"full", ViewState{Visible: true, TimeLeft: 30, Total: 30}, 1},
		{"half", ViewState{Visible: true, TimeLeft: 15, Total: 30}, 0.5},
		{"zero total", ViewState{Visible: true, TimeLeft: 5}, 0},
		{"clamped", ViewState{Visible: true, TimeLeft: 40, Total: 30}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.view.Fraction(), 0.0001)
		})
	}
}

func TestViewState_Classes(t *testing.T) {
	assert.Equal(t, []string{ClassHidden}, ViewState{}.Classes())
	assert.Equal(t, []string{ClassUrgent, ClassBarNormal}, ViewState{Visible: true, Urgent: true}.Classes())
}

func TestChange_String(t *testing.T) {
	assert.Equal(t, "shown", ChangeShown.String())
	assert.Equal(t, "expiring", ChangeExpiring.String())
	assert.Equal(t, "unknown", Change(99).String())
}
