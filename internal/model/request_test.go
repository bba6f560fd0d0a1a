package model

import (
	"encoding/json"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_From(t *testing.T) {
	r := Request{ID: "r1", SourceName: "Dispatch"}
	assert.Equal(t, "From: Dispatch", r.From())
}

func TestNewRequestID(t *testing.T) {
	id, err := NewRequestID()
	require.NoError(t, err)

	_, err = ulid.Parse(id)
	assert.NoError(t, err)

	other, err := NewRequestID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestAction_Known(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionShowRequest, true},
		{ActionHideRequest, true},
		{Action("respondToRequest"), false},
		{Action(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Known())
		})
	}
}

func TestAnswerFor(t *testing.T) {
	assert.Equal(t, AnswerAccept, AnswerFor(true))
	assert.Equal(t, AnswerDecline, AnswerFor(false))
}

func TestResponse_WireFormat(t *testing.T) {
	resp := Response{RequestID: "r1", Response: AnswerDecline, Expired: true}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestId":"r1","response":"decline","expired":true}`, string(data))
	assert.False(t, resp.Accepted())
}

func TestMessage_DecodeShow(t *testing.T) {
	raw := `{"action":"showRequest","request":{"id":"r1","title":"Backup","sourceName":"Dispatch","description":"Need backup"}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, ActionShowRequest, msg.Action)
	require.NotNil(t, msg.Request)
	assert.Equal(t, Request{ID: "r1", Title: "Backup", SourceName: "Dispatch", Description: "Need backup"}, *msg.Request)
}

func TestShowAndHideMessage(t *testing.T) {
	show := ShowMessage(Request{ID: "r2"})
	assert.Equal(t, ActionShowRequest, show.Action)
	require.NotNil(t, show.Request)
	assert.Equal(t, "r2", show.Request.ID)

	hide := HideMessage()
	assert.Equal(t, ActionHideRequest, hide.Action)
	assert.Nil(t, hide.Request)
}
