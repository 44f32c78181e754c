package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyLedger indicates the ledger has no rows yet. Treated as
	// first-run bootstrap state by retrieval, not as a failure.
	ErrEmptyLedger = errors.New("ledger is empty")

	// ErrOracleUnavailable indicates an oracle service is not
	// configured. Callers degrade to deterministic fallbacks.
	ErrOracleUnavailable = errors.New("oracle service unavailable")

	// ErrOracleResponse indicates the oracle returned a response that
	// does not match the expected structured shape.
	ErrOracleResponse = errors.New("malformed oracle response")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates the content index is not
	// configured or failed to open.
	ErrIndexUnavailable = errors.New("content index unavailable")

	// ErrMissingCredential indicates a required API credential is
	// absent. Fatal at startup, not recoverable.
	ErrMissingCredential = errors.New("missing required credential")
)
