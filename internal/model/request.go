// Package model defines the core data structures for reqhud.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Action is the discriminator carried by every inbound host message.
type Action string

// Recognised inbound actions.
const (
	ActionShowRequest Action = "showRequest"
	ActionHideRequest Action = "hideRequest"
)

// ErrUnknownAction is returned when an inbound message carries an action
// outside the recognised set.
var ErrUnknownAction = errors.New("unknown action")

// Request is the unit of work presented to the player for accept/decline.
// The ID is opaque: it is echoed back in the response and never interpreted.
type Request struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	SourceName  string `json:"sourceName" yaml:"source_name"`
	Description string `json:"description" yaml:"description"`
}

// From returns the attribution line shown under the title.
func (r Request) From() string {
	return "From: " + r.SourceName
}

// NewRequestID generates a ULID for requests created without a host id.
func NewRequestID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// Message is an inbound host event.
// Request is only meaningful for ActionShowRequest.
type Message struct {
	Action  Action   `json:"action"`
	Request *Request `json:"request,omitempty"`
}

// ShowMessage builds a showRequest message.
func ShowMessage(req Request) Message {
	return Message{Action: ActionShowRequest, Request: &req}
}

// HideMessage builds a hideRequest message.
func HideMessage() Message {
	return Message{Action: ActionHideRequest}
}

// Known reports whether the action is in the recognised set.
func (a Action) Known() bool {
	switch a {
	case ActionShowRequest, ActionHideRequest:
		return true
	default:
		return false
	}
}

// Answer is the response value sent back to the host.
type Answer string

const (
	AnswerAccept  Answer = "accept"
	AnswerDecline Answer = "decline"
)

// AnswerFor maps an accepted flag to its wire value.
func AnswerFor(accepted bool) Answer {
	if accepted {
		return AnswerAccept
	}
	return AnswerDecline
}

// Response is the outbound payload for a single request.
type Response struct {
	RequestID string `json:"requestId" yaml:"request_id"`
	Response  Answer `json:"response" yaml:"response"`
	Expired   bool   `json:"expired" yaml:"expired"`
}

// Accepted reports whether the player accepted the request.
func (r Response) Accepted() bool {
	return r.Response == AnswerAccept
}
