package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/reqhud/internal/config"
	"github.com/jmylchreest/reqhud/internal/dbus"
	"github.com/jmylchreest/reqhud/internal/model"
)

var listenOpts struct {
	bind     string
	callback string
	output   string
	dbus     bool
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Act as the host and print responses",
	Long: `Run a stand-in for the game host that accepts response callbacks and
prints one line per response.

Point reqhudd at it with:

  [bridge]
  callback_base_url = "http://127.0.0.1:30121"

With --dbus, Responded signals from the daemon's D-Bus bridge are printed too.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVar(&listenOpts.bind, "bind", "127.0.0.1:30121",
		"Address to accept callbacks on")
	listenCmd.Flags().StringVar(&listenOpts.callback, "callback", config.DefaultConfig().Bridge.CallbackName,
		"Callback name the daemon posts to")
	listenCmd.Flags().StringVarP(&listenOpts.output, "output", "o", "text",
		"Output format (text, json)")
	listenCmd.Flags().BoolVar(&listenOpts.dbus, "dbus", false,
		"Also print Responded signals from the session bus")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := &responsePrinter{w: cmd.OutOrStdout(), format: listenOpts.output}
	if out.format != "text" && out.format != "json" {
		return fmt.Errorf("unknown output format %q, must be one of: text, json", out.format)
	}

	ln, err := net.Listen("tcp", listenOpts.bind)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenOpts.bind, err)
	}

	srv := &http.Server{
		Handler:           newCallbackHandler(listenOpts.callback, out.print("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if listenOpts.dbus {
		watcher, err := dbus.NewWatcher(logger)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer func() { _ = watcher.Close() }()

		go func() {
			if err := watcher.Watch(ctx, out.print("dbus")); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("D-Bus watch stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "listening for responses on http://%s/%s\n", ln.Addr(), listenOpts.callback)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newCallbackHandler accepts response posts at /<callback>.
func newCallbackHandler(callback string, onResponse func(model.Response)) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+strings.Trim(callback, "/"), func(w http.ResponseWriter, r *http.Request) {
		var resp model.Response
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&resp); err != nil {
			http.Error(w, "invalid response body", http.StatusBadRequest)
			return
		}
		onResponse(resp)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "{}\n")
	})
	return mux
}

// responsePrinter writes responses from concurrent sources one line at a time.
type responsePrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func (p *responsePrinter) print(source string) func(model.Response) {
	return func(resp model.Response) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.format == "json" {
			_ = json.NewEncoder(p.w).Encode(resp)
			return
		}

		mark := "-"
		if resp.Accepted() {
			mark = "+"
		}
		line := fmt.Sprintf("%s %-4s %s %s %s", time.Now().Format(time.TimeOnly), source, mark, resp.RequestID, resp.Response)
		if resp.Expired {
			line += " (expired)"
		}
		fmt.Fprintln(p.w, line)
	}
}
