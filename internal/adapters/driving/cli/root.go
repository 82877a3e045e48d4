// Package cli provides the docchat command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// SessionFactory builds a session service for resolved settings.
type SessionFactory func(ctx context.Context, settings domain.Settings) (driving.SessionService, error)

// ReaderFactory opens persisted session state for resolved settings.
// The returned func releases the underlying store.
type ReaderFactory func(settings domain.Settings) (driving.SessionReader, func() error, error)

var (
	// version is set at build time.
	version = "dev"

	settingsService driving.SettingsService
	sessionFactory  SessionFactory
	readerFactory   ReaderFactory

	errNoSettings       = errors.New("settings service not configured")
	errNoSessionFactory = errors.New("session service not configured")
)

// Persistent flag values.
var (
	flagServer  string
	flagEmail   string
	flagDataDir string
	flagLogFile string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat uploads a document to the ingestion backend, follows it through
the processing pipeline and opens a conversation about it.

Sessions survive restarts: running docchat again resumes polling or reopens
the conversation where it left off.

Run without a command in a terminal to launch the interactive UI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	RunE: runRoot,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", "", "backend base URL (overrides config)")
	flags.StringVar(&flagEmail, "email", "", "owner email address (overrides config)")
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for session state")
	flags.StringVar(&flagLogFile, "log-file", "", "write JSON logs to this file")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService sets the settings service used by all commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetSessionFactory sets how commands obtain a session service.
func SetSessionFactory(f SessionFactory) {
	sessionFactory = f
}

// SetReaderFactory sets how commands read persisted state.
func SetReaderFactory(f ReaderFactory) {
	readerFactory = f
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	path := flagLogFile
	if path == "" && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			path = settings.LogFile
		}
	}
	if path == "" {
		return nil
	}
	if err := logger.SetFile(path); err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	return nil
}

// runRoot launches the TUI when attached to a terminal, otherwise prints help.
func runRoot(cmd *cobra.Command, args []string) error {
	if isInteractive() {
		return runTUI(cmd, args)
	}
	return cmd.Help()
}

// isInteractive reports whether stdin and stdout are both terminals.
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// resolveSettings loads settings and applies flag overrides.
func resolveSettings() (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if settingsService != nil {
		stored, err := settingsService.Get()
		if err != nil {
			return settings, fmt.Errorf("loading settings: %w", err)
		}
		settings = *stored
	}

	if flagServer != "" {
		settings.ServerURL = flagServer
	}
	if flagEmail != "" {
		settings.Identity = flagEmail
	}
	if flagDataDir != "" {
		settings.DataDir = flagDataDir
	}
	if flagLogFile != "" {
		settings.LogFile = flagLogFile
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// openSession builds a session service from resolved settings.
func openSession(ctx context.Context) (driving.SessionService, domain.Settings, error) {
	settings, err := resolveSettings()
	if err != nil {
		return nil, settings, err
	}
	if sessionFactory == nil {
		return nil, settings, errNoSessionFactory
	}
	svc, err := sessionFactory(ctx, settings)
	if err != nil {
		return nil, settings, fmt.Errorf("creating session: %w", err)
	}
	return svc, settings, nil
}

// closeSession releases svc, logging any error.
func closeSession(svc driving.SessionService) {
	if err := svc.Close(); err != nil {
		logger.Warn("closing session: %v", err)
	}
}
