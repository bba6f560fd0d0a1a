package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/model"
)

func TestCallbackOptions_Endpoint(t *testing.T) {
	tests := []struct {
		name    string
		opts    CallbackOptions
		want    string
		wantErr string
	}{
		{
			name: "default template",
			opts: CallbackOptionsFromConfig(func() *config.Config {
				c := config.DefaultConfig()
				c.Bridge.ResourceName = "hud_requests"
				return c
			}()),
			want: "https://hud_requests/respondToRequest",
		},
		{
			name:    "missing resource",
			opts:    CallbackOptions{BaseURL: "https://{resource}", CallbackName: "respondToRequest"},
			wantErr: "resource name not available",
		},
		{
			name: "fixed base ignores resource",
			opts: CallbackOptions{BaseURL: "http://127.0.0.1:30121/", CallbackName: "/respondToRequest"},
			want: "http://127.0.0.1:30121/respondToRequest",
		},
		{
			name:    "missing callback name",
			opts:    CallbackOptions{BaseURL: "http://127.0.0.1:30121"},
			wantErr: "callback name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Endpoint()
			if tt.wantErr != "" {
				require.Error(t, err)
				var rerr *ResolveError
				assert.True(t, errors.As(err, &rerr))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type capturedCall struct {
	method      string
	path        string
	contentType string
	body        model.Response
}

func newHost(t *testing.T, status int) (*httptest.Server, func() []capturedCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []capturedCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var resp model.Response
		_ = json.Unmarshal(data, &resp)

		mu.Lock()
		calls = append(calls, capturedCall{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        resp,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedCall(nil), calls...)
	}
}

func TestCallbackClient_Respond(t *testing.T) {
	host, calls := newHost(t, http.StatusOK)

	client := NewCallbackClient(CallbackOptions{
		BaseURL:      host.URL,
		CallbackName: "respondToRequest",
		Timeout:      time.Second,
	}, host.Client(), nil)

	resp := model.Response{RequestID: "r1", Response: model.AnswerDecline}
	client.Respond(resp)
	client.Wait()

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/respondToRequest", got[0].path)
	assert.Equal(t, "application/json", got[0].contentType)
	assert.Equal(t, resp, got[0].body)
}

func TestCallbackClient_RespondWithoutResource(t *testing.T) {
	host, calls := newHost(t, http.StatusOK)

	client := NewCallbackClient(CallbackOptions{
		BaseURL:      "https://{resource}",
		CallbackName: "respondToRequest",
	}, host.Client(), nil)

	client.Respond(model.Response{RequestID: "r1", Response: model.AnswerAccept})
	client.Wait()
	assert.Empty(t, calls())

	err := client.Send(context.Background(), model.Response{RequestID: "r1"})
	var rerr *ResolveError
	assert.True(t, errors.As(err, &rerr))
}

func TestCallbackClient_Send_StatusError(t *testing.T) {
	host, calls := newHost(t, http.StatusInternalServerError)

	client := NewCallbackClient(CallbackOptions{
		BaseURL:      host.URL,
		CallbackName: "respondToRequest",
	}, host.Client(), nil)

	err := client.Send(context.Background(), model.Response{RequestID: "r1", Response: model.AnswerAccept})
	require.Error(t, err)

	var cerr *CallbackError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
	assert.Len(t, calls(), 1, "failed callbacks are not retried")
}

func TestCallbackClient_Send_TransportError(t *testing.T) {
	host, _ := newHost(t, http.StatusOK)
	url := host.URL
	host.Close()

	client := NewCallbackClient(CallbackOptions{BaseURL: url, CallbackName: "cb"}, nil, nil)

	err := client.Send(context.Background(), model.Response{RequestID: "r1"})
	var cerr *CallbackError
	require.True(t, errors.As(err, &cerr))
	assert.Zero(t, cerr.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestCallbackClient_SetOptions(t *testing.T) {
	host, calls := newHost(t, http.StatusNoContent)

	client := NewCallbackClient(CallbackOptions{BaseURL: "https://{resource}", CallbackName: "cb"}, host.Client(), nil)
	client.SetOptions(CallbackOptions{BaseURL: host.URL, CallbackName: "cb"})

	require.NoError(t, client.Send(context.Background(), model.Response{RequestID: "r9"}))
	require.Len(t, calls(), 1)
	assert.Equal(t, "r9", calls()[0].body.RequestID)
}
