package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/factlens/internal/core/ports/driving"
)

var ingestReuse bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a markdown filing into the fact ledger",
	Long: `Segments a markdown filing into blocks, resolves the registrant,
melts tables into fact rows, extracts facts from narrative text, and
appends everything to the ledger and the block index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReuse, "reuse", false,
		"skip extraction when the ledger already holds rows, rebuilding only the schema summary")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	report, err := ingestService.Ingest(cmd.Context(), string(data), driving.IngestOptions{
		Reuse: ingestReuse,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Registrant: %s (%s)\n", report.Entity.OfficialName, report.Entity.CanonicalID)
	cmd.Printf("Blocks:     %d\n", report.Blocks)
	cmd.Printf("Fact rows:  %d\n", report.Rows)
	if report.FailedBlocks > 0 {
		cmd.Printf("Skipped:    %d blocks failed extraction\n", report.FailedBlocks)
	}
	return nil
}
