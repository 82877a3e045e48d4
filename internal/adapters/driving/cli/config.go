package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and configure the backend address, store and identity.

Use subcommands to change a single setting or run the interactive wizard.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runConfigWizard,
}

var configServerCmd = &cobra.Command{
	Use:   "server <url>",
	Short: "Set the backend base URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigServer,
}

var configStoreCmd = &cobra.Command{
	Use:   "store <backend>",
	Short: "Set the session store",
	Long: `Set where session state is kept.

Available backends:
  sqlite  - SQLite database in the data directory (default)
  file    - JSON file shared between processes
  memory  - kept only while docchat runs`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigStore,
}

var configEmailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Set the default email address",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigEmail,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configWizardCmd)
	configCmd.AddCommand(configServerCmd)
	configCmd.AddCommand(configStoreCmd)
	configCmd.AddCommand(configEmailCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  URL: %s\n", settings.ServerURL)
	cmd.Printf("  Poll interval: %s\n", settings.PollInterval)
	cmd.Printf("  Max poll failures: %d\n", settings.MaxPollFailures)
	cmd.Println()

	cmd.Println("[Session]")
	identity := settings.Identity
	if identity == "" {
		identity = "(not set)"
	}
	cmd.Printf("  Email: %s\n", identity)
	cmd.Printf("  Reconnect notice: %s\n", settings.ReconnectNoticeDelay)
	cmd.Printf("  Dedup window: %s\n", settings.DedupWindow)
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", settings.Store.Description())
	if settings.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.DataDir)
	}
	if settings.LogFile != "" {
		cmd.Printf("  Log file: %s\n", settings.LogFile)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Configuration issue: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("docchat Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Server
	cmd.Printf("Step 1: Backend URL [%s]: ", settings.ServerURL)
	if input := readLine(reader); input != "" {
		settings.ServerURL = input
	}
	cmd.Println()

	// Step 2: Email
	cmd.Printf("Step 2: Email address [%s]: ", settings.Identity)
	if input := readLine(reader); input != "" {
		settings.Identity = input
	}
	cmd.Println()

	// Step 3: Store
	cmd.Println("Step 3: Select Session Store")
	cmd.Println("----------------------------")
	backends := allStoreBackends()
	defaultIdx := 1
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
		if b == settings.Store {
			defaultIdx = i + 1
		}
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultIdx)
	settings.Store = backends[parseChoice(readLine(reader), len(backends), defaultIdx)-1]
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runConfigServer(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	if err := settingsService.SetServerURL(args[0]); err != nil {
		return fmt.Errorf("failed to set server: %w", err)
	}
	cmd.Printf("Server set to %s\n", args[0])
	return nil
}

func runConfigStore(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	backend := domain.StoreBackend(strings.ToLower(args[0]))
	if err := settingsService.SetStore(backend); err != nil {
		return fmt.Errorf("failed to set store: %w", err)
	}
	cmd.Printf("Store set to %s\n", backend.Description())
	return nil
}

func runConfigEmail(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Identity = strings.TrimSpace(args[0])
	if err := domain.ValidateIdentity(settings.Identity); err != nil {
		return err
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to set email: %w", err)
	}
	cmd.Printf("Email set to %s\n", settings.Identity)
	return nil
}

func allStoreBackends() []domain.StoreBackend {
	return []domain.StoreBackend{
		domain.StoreBackendSQLite,
		domain.StoreBackendFile,
		domain.StoreBackendMemory,
	}
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}
