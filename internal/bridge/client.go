package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jmylchreest/reqhud/internal/model"
)

// Client talks to a running reqhudd over its HTTP bridge.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a Client for addr ("host:port" or a full URL).
func NewClient(addr string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: strings.TrimRight(base, "/"), client: httpClient}
}

// Send posts a host message.
func (c *Client) Send(ctx context.Context, msg model.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+PathMessage, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach reqhudd: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusAccepted:
		return fmt.Errorf("%w: %q", model.ErrUnknownAction, msg.Action)
	default:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reqhudd returned %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}
}

// State fetches the overlay state.
func (c *Client) State(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+PathState, nil)
	if err != nil {
		return State{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return State{}, fmt.Errorf("failed to reach reqhudd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return State{}, fmt.Errorf("reqhudd returned %s", resp.Status)
	}

	var st State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return State{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return st, nil
}
