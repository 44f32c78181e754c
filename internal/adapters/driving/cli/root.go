// Package cli provides the command-line interface for factlens.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/factlens/internal/core/ports/driven"
	"github.com/custodia-labs/factlens/internal/core/ports/driving"
	"github.com/custodia-labs/factlens/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the composition root before Execute.
var (
	ingestService driving.IngestService
	askService    driving.AskService
	schemaStore   driven.SchemaStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "factlens",
	Short: "Extract and query facts from regulatory filings",
	Long: `Factlens ingests regulatory filings in markdown form, melts their
tables into a canonical fact ledger, indexes the source text, and
answers questions against both with full citations.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetIngestService injects the ingestion service.
func SetIngestService(s driving.IngestService) {
	ingestService = s
}

// SetAskService injects the question-answering service.
func SetAskService(s driving.AskService) {
	askService = s
}

// SetSchemaStore injects the schema summary store.
func SetSchemaStore(s driven.SchemaStore) {
	schemaStore = s
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
