package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/reqhud/internal/model"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.Message
		wantErr bool
	}{
		{
			name:  "show request",
			input: `{"action":"showRequest","request":{"id":"r1","title":"Backup","sourceName":"Dispatch","description":"Need backup"}}`,
			want: model.Message{
				Action:  model.ActionShowRequest,
				Request: &model.Request{ID: "r1", Title: "Backup", SourceName: "Dispatch", Description: "Need backup"},
			},
		},
		{
			name:  "hide request",
			input: `{"action":"hideRequest"}`,
			want:  model.Message{Action: model.ActionHideRequest},
		},
		{
			name:  "missing fields are empty",
			input: `{"action":"showRequest","request":{"title":"Backup"}}`,
			want: model.Message{
				Action:  model.ActionShowRequest,
				Request: &model.Request{Title: "Backup"},
			},
		},
		{
			name:  "numeric id",
			input: `{"action":"showRequest","request":{"id":42,"title":null}}`,
			want: model.Message{
				Action:  model.ActionShowRequest,
				Request: &model.Request{ID: "42"},
			},
		},
		{
			name:  "structured field dropped",
			input: `{"action":"showRequest","request":{"id":"r1","description":{"text":"x"}}}`,
			want: model.Message{
				Action:  model.ActionShowRequest,
				Request: &model.Request{ID: "r1"},
			},
		},
		{
			name:  "unknown action passes through",
			input: `{"action":"openMenu","extra":true}`,
			want:  model.Message{Action: "openMenu"},
		},
		{
			name:    "malformed json",
			input:   `{"action":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMessage([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
