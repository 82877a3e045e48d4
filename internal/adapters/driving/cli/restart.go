package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Abandon the current session",
	Long: `Clear the current session and its conversation so a new document can be
uploaded. Your email address is kept unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: runRestart,
}

func init() {
	restartCmd.Flags().Bool("all", false, "also forget the stored email address")
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("getting all flag: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(svc)

	if all {
		if err := svc.StartOver(ctx); err != nil {
			return fmt.Errorf("starting over: %w", err)
		}
		cmd.Println("Session and email address cleared.")
		return nil
	}

	if err := svc.Restart(ctx); err != nil {
		return fmt.Errorf("restarting: %w", err)
	}
	cmd.Println("Session cleared.")
	return nil
}
