package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/reqhud/internal/model"
)

var showOpts struct {
	id          string
	title       string
	source      string
	description string
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a request on the overlay",
	Long: `Show a request on the overlay, replacing any request already on screen.

The replaced request receives no response. When --id is omitted a ULID is
generated and printed so the response can be matched later.`,
	Example: `  reqhud show --title "Backup requested" --source Dispatch --description "Officer down at Legion Square"`,
	RunE:    runShow,
}

var hideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the current request without responding",
	RunE:  runHide,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(hideCmd)

	showCmd.Flags().StringVar(&showOpts.id, "id", "", "Request id echoed in the response (default: generated ULID)")
	showCmd.Flags().StringVarP(&showOpts.title, "title", "t", "", "Request title")
	showCmd.Flags().StringVarP(&showOpts.source, "source", "s", "", "Who sent the request")
	showCmd.Flags().StringVarP(&showOpts.description, "description", "d", "", "Request description")
	_ = showCmd.MarkFlagRequired("title")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := showOpts.id
	if id == "" {
		generated, err := model.NewRequestID()
		if err != nil {
			return err
		}
		id = generated
	}

	req := model.Request{
		ID:          id,
		Title:       showOpts.title,
		SourceName:  showOpts.source,
		Description: showOpts.description,
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.timeout)
	defer cancel()

	if err := newClient().Send(ctx, model.ShowMessage(req)); err != nil {
		return fmt.Errorf("failed to show request: %w", err)
	}
	logger.Debug("request sent", "request_id", id)

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runHide(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), globalOpts.timeout)
	defer cancel()

	if err := newClient().Send(ctx, model.HideMessage()); err != nil {
		return fmt.Errorf("failed to hide request: %w", err)
	}
	return nil
}
