package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

var errNoReader = errors.New("session store not configured")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted session",
	Long: `Print the stored identity, session, pipeline stage and conversation size
without contacting the backend.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return err
	}
	if readerFactory == nil {
		return errNoReader
	}

	reader, closeFn, err := readerFactory(settings)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Warn("closing session store: %v", err)
		}
	}()

	return printStatus(cmd.OutOrStdout(), settings, reader)
}

// printStatus writes a key/value summary of persisted state.
func printStatus(out io.Writer, settings domain.Settings, reader driving.SessionReader) error {
	line := func(key, format string, args ...any) {
		fmt.Fprintf(out, "%-10s %s\n", key+":", fmt.Sprintf(format, args...))
	}

	identity := reader.LoadIdentity()
	if identity == "" {
		identity = "(not set)"
	}
	line("Server", "%s", settings.ServerURL)
	line("Store", "%s", settings.Store.Description())
	line("Identity", "%s", identity)

	session := reader.LoadSession()
	if session == nil {
		line("Session", "(none)")
		return nil
	}

	stage := string(session.Stage)
	if stage == "" {
		stage = "uploading"
	}
	line("Session", "%s", session.ID)
	line("Stage", "%s", stage)
	line("Progress", "%d%%", domain.NextProgress(session.Stage, 0))
	if !session.CreatedAt.IsZero() {
		line("Created", "%s", session.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if summary := reader.LoadSummary(); summary != nil && summary.Filename != "" {
		line("File", "%s", summary.Filename)
	}
	line("Messages", "%d", len(reader.LoadMessages()))
	return nil
}
