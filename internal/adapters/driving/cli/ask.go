package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/factlens/internal/core/ports/driving"
)

var (
	askK    int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the ingested filings",
	Long: `Plans a retrieval strategy for the question, gathers fact rows and
source blocks, and runs the two-pass reasoning oracle to produce a
cited answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "limit", "n", 0, "per-search result size (default 4)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errors.New("ask service not configured")
	}

	result, err := askService.Ask(cmd.Context(), args[0], driving.AskOptions{K: askK})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	answer := result.Answer
	cmd.Println(answer.Answer)
	if answer.Nuances != "" {
		cmd.Println()
		cmd.Printf("Nuances: %s\n", answer.Nuances)
	}
	cmd.Println()
	cmd.Printf("Source: %s (groundedness %.2f)\n", answer.DataSourceType, answer.GroundednessScore)
	if len(answer.Citations) > 0 {
		cmd.Printf("Citations: %s\n", strings.Join(answer.Citations, ", "))
	}
	if answer.SelfAwareWarning {
		cmd.Println("Warning: this answer is not fully backed by the ingested documents.")
	}
	return nil
}
