package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/model"
)

// CallbackOptions configures the outbound callback.
type CallbackOptions struct {
	BaseURL      string // May contain config.ResourcePlaceholder
	ResourceName string
	CallbackName string
	Timeout      time.Duration
}

// CallbackOptionsFromConfig extracts callback options from the daemon config.
func CallbackOptionsFromConfig(cfg *config.Config) CallbackOptions {
	return CallbackOptions{
		BaseURL:      cfg.Bridge.CallbackBaseURL,
		ResourceName: cfg.Bridge.ResourceName,
		CallbackName: cfg.Bridge.CallbackName,
		Timeout:      cfg.Bridge.Timeout.Duration(),
	}
}

// Endpoint builds the callback URL, e.g. https://<resource>/<callback>.
func (o CallbackOptions) Endpoint() (string, error) {
	base := o.BaseURL
	if strings.Contains(base, config.ResourcePlaceholder) {
		if o.ResourceName == "" {
			return "", &ResolveError{Message: "resource name not available"}
		}
		base = strings.ReplaceAll(base, config.ResourcePlaceholder, o.ResourceName)
	}
	if base == "" {
		return "", &ResolveError{Message: "callback base url not configured"}
	}
	if o.CallbackName == "" {
		return "", &ResolveError{Message: "callback name not configured"}
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(o.CallbackName, "/"), nil
}

// CallbackClient posts answers to the host. It implements overlay.Responder:
// Respond returns immediately and delivery happens in the background.
// Failed deliveries are logged and never retried.
type CallbackClient struct {
	mu     sync.RWMutex
	opts   CallbackOptions
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewCallbackClient creates a CallbackClient. A nil httpClient uses a
// client without a global timeout; each request gets opts.Timeout.
func NewCallbackClient(opts CallbackOptions, httpClient *http.Client, logger *slog.Logger) *CallbackClient {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &CallbackClient{
		opts:   opts,
		client: httpClient,
		logger: logger,
	}
}

// SetOptions replaces the callback options for subsequent answers.
func (c *CallbackClient) SetOptions(opts CallbackOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts = opts
}

// Options returns the current callback options.
func (c *CallbackClient) Options() CallbackOptions {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts
}

// Respond delivers resp asynchronously.
func (c *CallbackClient) Respond(resp model.Response) {
	opts := c.Options()

	url, err := opts.Endpoint()
	if err != nil {
		c.logger.Warn("skipping callback", "request_id", resp.RequestID, "error", err)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx := context.Background()
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}

		if err := c.post(ctx, url, resp); err != nil {
			c.logger.Error("callback failed", "request_id", resp.RequestID, "url", url, "error", err)
			return
		}
		c.logger.Debug("callback delivered", "request_id", resp.RequestID, "url", url)
	}()
}

// Send delivers resp synchronously.
func (c *CallbackClient) Send(ctx context.Context, resp model.Response) error {
	url, err := c.Options().Endpoint()
	if err != nil {
		return err
	}
	return c.post(ctx, url, resp)
}

// Wait blocks until in-flight deliveries finish.
func (c *CallbackClient) Wait() {
	c.wg.Wait()
}

func (c *CallbackClient) post(ctx context.Context, url string, resp model.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &CallbackError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return &CallbackError{URL: url, Err: err}
	}
	defer httpResp.Body.Close()
	_, _ = io.Copy(io.Discard, httpResp.Body)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &CallbackError{URL: url, StatusCode: httpResp.StatusCode}
	}
	return nil
}
