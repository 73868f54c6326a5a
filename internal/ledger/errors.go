package ledger

import "errors"

// Ledger error kinds. Callers classify with errors.Is; external-tool
// failures additionally carry an *issuer.ToolError for errors.As.
var (
	// ErrValidation marks malformed or out-of-range input. Detected
	// before any mutation; never leaves partial state.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown asset id or internal id.
	ErrNotFound = errors.New("token not found")

	// ErrConflict marks an operation inconsistent with current state:
	// already finalized, already deployed, or burn exceeding supply.
	ErrConflict = errors.New("operation conflicts with token state")

	// ErrStorage marks an I/O failure persisting a token record after
	// the automatic retry.
	ErrStorage = errors.New("token storage failure")
)
