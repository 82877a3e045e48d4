package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a local stand-in backend",
	Long: `Run a local backend that implements the ingestion endpoints and the
chat connection, for trying docchat without the real service.

Uploaded documents advance one pipeline stage per --stage-delay. Plain text,
Markdown, HTML and DOCX uploads are read; anything else fails to normalise,
and documents of fewer than three words fail enrichment. Answers quote the
passage that best matches the question. Questions containing "fail" receive
a server error.

Examples:
  docchat simulate --addr 127.0.0.1:8080
  docchat --server http://127.0.0.1:8080 chat notes.txt`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().String("addr", simulator.DefaultAddr, "listen address")
	simulateCmd.Flags().Duration("stage-delay", simulator.DefaultStageDelay, "time spent in each pipeline stage")
	simulateCmd.Flags().Duration("token-delay", simulator.DefaultTokenDelay, "pause between streamed words")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}

	cfg := simulator.DefaultConfig()
	if cfg.StageDelay, err = cmd.Flags().GetDuration("stage-delay"); err != nil {
		return fmt.Errorf("getting stage-delay flag: %w", err)
	}
	if cfg.TokenDelay, err = cmd.Flags().GetDuration("token-delay"); err != nil {
		return fmt.Errorf("getting token-delay flag: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Simulator listening on http://%s (ctrl+c to stop)\n", addr)
	return simulator.New(cfg).Run(cmd.Context(), addr)
}
