package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmylchreest/reqhud/internal/model"
)

// looseString accepts strings, numbers and booleans. Hosts embedded in game
// runtimes often send numeric ids.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '{', '[':
		// Structured values carry no displayable text.
		*s = ""
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err == nil {
			*s = looseString(data)
			return nil
		}
		if b, err := strconv.ParseBool(string(data)); err == nil {
			*s = looseString(strconv.FormatBool(b))
			return nil
		}
		return fmt.Errorf("unexpected JSON value %s", data)
	}
	return nil
}

type wireRequest struct {
	ID          looseString `json:"id"`
	Title       looseString `json:"title"`
	SourceName  looseString `json:"sourceName"`
	Description looseString `json:"description"`
}

type wireMessage struct {
	Action  looseString  `json:"action"`
	Request *wireRequest `json:"request"`
}

// DecodeMessage parses a host message. Missing request fields decode as
// empty strings; only malformed JSON is an error. The action is not checked
// here, see overlay.Controller.HandleMessage.
func DecodeMessage(data []byte) (model.Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return model.Message{}, fmt.Errorf("failed to decode message: %w", err)
	}

	msg := model.Message{Action: model.Action(wm.Action)}
	if wm.Request != nil {
		msg.Request = &model.Request{
			ID:          string(wm.Request.ID),
			Title:       string(wm.Request.Title),
			SourceName:  string(wm.Request.SourceName),
			Description: string(wm.Request.Description),
		}
	}
	return msg, nil
}
