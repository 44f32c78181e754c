// Command factlens ingests regulatory filings into a fact ledger and
// answers questions against it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/factlens/internal/adapters/driven/compute/yaegi"
	configfile "github.com/custodia-labs/factlens/internal/adapters/driven/config/file"
	embeddingopenai "github.com/custodia-labs/factlens/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/factlens/internal/adapters/driven/index/vecgoindex"
	oracleopenai "github.com/custodia-labs/factlens/internal/adapters/driven/oracle/openai"
	schemafile "github.com/custodia-labs/factlens/internal/adapters/driven/schema/file"
	"github.com/custodia-labs/factlens/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/factlens/internal/adapters/driving/cli"
	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/services"
)

// version is overridden at build time via
// -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	prompts, err := configfile.NewPromptStore(cfg.GetString("prompts.dir"))
	if err != nil {
		return fmt.Errorf("creating prompt store: %w", err)
	}

	dataDir := cfg.GetString("storage.data_dir")

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening ledger store: %w", err)
	}
	defer store.Close()

	schemaStore, err := schemafile.NewSchemaStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening schema store: %w", err)
	}

	cli.SetVersion(version)
	cli.SetSchemaStore(schemaStore)

	oracleKey, embedKey, err := credentials(cfg)
	if err != nil {
		return err
	}

	oracle, err := oracleopenai.NewOracle(oracleopenai.Config{
		APIKey:  oracleKey,
		BaseURL: cfg.GetString("oracle.base_url"),
		Model:   cfg.GetString("oracle.model"),
		Timeout: durationSetting(cfg.GetInt("oracle.timeout_seconds")),
	})
	if err != nil {
		return fmt.Errorf("creating oracle client: %w", err)
	}
	oracle.SetPromptStore(prompts)
	defer oracle.Close()

	embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:     embedKey,
		BaseURL:    cfg.GetString("embedding.base_url"),
		Model:      cfg.GetString("embedding.model"),
		Dimensions: cfg.GetInt("embedding.dimensions"),
	})
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}
	defer embedder.Close()

	blockIndex, err := vecgoindex.Open(indexDir(dataDir), embedder)
	if err != nil {
		return fmt.Errorf("opening block index: %w", err)
	}
	defer blockIndex.Close()

	ledger := store.LedgerStore()
	blocks := store.BlockStore()

	ingest := services.NewIngestionService(
		oracle, oracle, ledger, blocks, blockIndex, schemaStore,
		services.IngestionConfig{
			Workers: cfg.GetInt("ingest.workers"),
			Pacing:  durationSettingMillis(cfg.GetInt("ingest.pacing_ms")),
		},
	)

	retriever := services.NewDualRetriever(ledger, blockIndex)
	assembler := services.NewContextAssembler(prompts, cfg.GetInt("retrieval.block_limit"))
	reasoner := services.NewReasoner(oracle, yaegi.NewEngine())
	ask := services.NewAskService(oracle, schemaStore, retriever, assembler, reasoner)

	cli.SetIngestService(ingest)
	cli.SetAskService(ask)

	return cli.Execute()
}

// credentials resolves the oracle and embedding API keys. A missing
// credential is a configuration failure, fatal at startup rather than
// surfaced per-command.
func credentials(cfg *configfile.ConfigStore) (oracleKey, embedKey string, err error) {
	oracleKey = credential(cfg.GetString("oracle.api_key"), "OPENAI_API_KEY")
	embedKey = credential(cfg.GetString("embedding.api_key"), "OPENAI_API_KEY")
	if oracleKey == "" || embedKey == "" {
		return "", "", fmt.Errorf("%w: set oracle.api_key and embedding.api_key in %s or export OPENAI_API_KEY",
			domain.ErrMissingCredential, cfg.Path())
	}
	return oracleKey, embedKey, nil
}

// credential returns the configured value, falling back to the
// environment variable.
func credential(configured, envVar string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv(envVar)
}

func durationSetting(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func durationSettingMillis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// indexDir places the vector index next to the ledger database.
func indexDir(dataDir string) string {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "index"
		}
		return filepath.Join(home, ".factlens", "data", "index")
	}
	return filepath.Join(dataDir, "index")
}
