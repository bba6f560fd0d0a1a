package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/reqhud/internal/bridge"
)

var statusOpts struct {
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the overlay is displaying",
	Long: `Show the request currently on the overlay and how long it has left.

Output formats:
  text  Human readable summary (default)
  json  The daemon's state document
  yaml  The same document as YAML`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.output, "output", "o", "text",
		"Output format (text, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.timeout)
	defer cancel()

	st, err := newClient().State(ctx)
	if err != nil {
		return err
	}
	return writeStatus(cmd.OutOrStdout(), st, statusOpts.output, time.Now())
}

// writeStatus renders st in the requested format.
func writeStatus(w io.Writer, st bridge.State, format string, now time.Time) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		_, err := io.WriteString(w, formatStatus(st, now))
		return err
	default:
		return fmt.Errorf("unknown output format %q, must be one of: text, json, yaml", format)
	}
}

func formatStatus(st bridge.State, now time.Time) string {
	if !st.Visible || st.Request == nil {
		return "No request on screen\n"
	}

	s := fmt.Sprintf("%s\n  From: %s\n", st.Request.Title, st.Request.SourceName)
	if st.Request.Description != "" {
		s += fmt.Sprintf("  %s\n", st.Request.Description)
	}
	s += fmt.Sprintf("  ID: %s\n", st.Request.ID)

	left := fmt.Sprintf("%ds of %ds left", st.TimeLeft, st.Total)
	if st.Expiring {
		left += " (expiring)"
	}
	s += "  " + left + "\n"

	if st.ShownAt != nil {
		s += fmt.Sprintf("  Shown %s\n", humanize.RelTime(*st.ShownAt, now, "ago", "from now"))
	}
	return s
}
