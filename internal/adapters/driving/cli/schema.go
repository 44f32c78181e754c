package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the ledger schema summary",
	Long: `Prints the known entities and the most frequent metrics in the fact
ledger. This is the same summary the query planner is grounded on.`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "output the summary as JSON")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	if schemaStore == nil {
		return errors.New("schema store not configured")
	}

	summary, err := schemaStore.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading schema summary: %w", err)
	}

	if schemaJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(summary.Entities) == 0 && len(summary.Metrics) == 0 {
		cmd.Println("The ledger is empty. Run 'factlens ingest' first.")
		return nil
	}

	cmd.Println("Entities:")
	for _, e := range summary.Entities {
		line := fmt.Sprintf("  %s  %s", e.ID, e.OfficialName)
		if len(e.Aliases) > 0 {
			line += " (" + strings.Join(e.Aliases, ", ") + ")"
		}
		cmd.Println(line)
	}

	cmd.Println()
	cmd.Printf("Metrics (%d):\n", len(summary.Metrics))
	for _, m := range summary.Metrics {
		cmd.Printf("  %s\n", m)
	}
	return nil
}
