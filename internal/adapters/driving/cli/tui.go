package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docchat.

The TUI walks through entering your email, choosing a document, following
its processing and chatting about it.

Controls:
  Enter    - Submit / Send
  r / u    - Resume or upload new (previous session prompt)
  ctrl+l   - Reconnect
  ctrl+r   - New document
  ctrl+x   - Start over
  ctrl+c   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(svc)

	// An explicit --email replaces the stored identity before the session starts.
	if flagEmail != "" {
		if err := svc.SetIdentity(ctx, flagEmail); err != nil {
			return fmt.Errorf("setting identity: %w", err)
		}
	}

	app, err := tui.NewApp(tui.NewPorts(svc, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
