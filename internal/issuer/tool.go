package issuer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	klog "github.com/shielded-labs/issuerd/internal/log"
	"github.com/shielded-labs/issuerd/pkg/crypto"
	"github.com/rs/zerolog"
)

// domainRequest separates issue-request digests from other hashes.
const domainRequest = "issuerd/v1/issue-request"

// DefaultTimeout bounds an external issuance attempt. The tool mines
// synchronously when asked, so the bound is generous.
const DefaultTimeout = 10 * time.Minute

// payloadVersion tags locally built payloads.
const payloadVersion = 1

// Tool runs the external transaction-building tool as a subprocess.
// The request travels as JSON on stdin; the response comes back as
// JSON on stdout.
type Tool struct {
	path    string
	timeout time.Duration
	signer  crypto.Signer
	logger  zerolog.Logger
}

// NewTool creates a Tool invoking the binary at path. A zero timeout
// falls back to DefaultTimeout. The signer may be nil, in which case
// requests go out unsigned.
func NewTool(path string, timeout time.Duration, signer crypto.Signer) *Tool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tool{
		path:    path,
		timeout: timeout,
		signer:  signer,
		logger:  klog.WithComponent("issuer"),
	}
}

// builtPayload is the locally assembled, unbroadcast transaction payload.
type builtPayload struct {
	Version   int          `json:"version"`
	Request   BuildRequest `json:"request"`
	Signature string       `json:"signature,omitempty"`
	BuiltAt   time.Time    `json:"built_at"`
}

// Build assembles the unbroadcast payload for a request and signs its
// digest when a signer is configured.
func (t *Tool) Build(req BuildRequest) ([]byte, error) {
	sig, err := t.signRequest(req)
	if err != nil {
		return nil, err
	}
	payload := builtPayload{
		Version:   payloadVersion,
		Request:   req,
		Signature: sig,
		BuiltAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// Issue invokes the external tool synchronously. The returned error is
// always a *ToolError carrying a failure classification.
func (t *Tool) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	sig, err := t.signRequest(req.BuildRequest)
	if err != nil {
		return nil, &ToolError{Kind: FailSpawn, Detail: "sign request", Err: err}
	}
	req.Signature = sig

	input, err := json.Marshal(&req)
	if err != nil {
		return nil, &ToolError{Kind: FailSpawn, Detail: "marshal request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.path, "issue")
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug().
		Str("tool", t.path).
		Str("idempotency_key", req.IdempotencyKey).
		Bool("mine", req.Mine).
		Msg("invoking issuance tool")

	runErr := cmd.Run()
	diag := strings.TrimSpace(stderr.String())

	if runErr != nil {
		return nil, classifyRunError(runErr, diag, ctx.Err())
	}

	var result IssueResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &ToolError{Kind: FailMalformed, Detail: fmt.Sprintf("undecodable tool output: %v", err)}
	}
	if result.TxID == "" {
		return nil, &ToolError{Kind: FailMalformed, Detail: "tool output missing tx_id"}
	}

	t.logger.Info().
		Str("tx_id", result.TxID).
		Str("idempotency_key", req.IdempotencyKey).
		Msg("issuance transaction broadcast")
	return &result, nil
}

// signRequest signs the domain-separated request digest with the
// issuance key. Returns an empty string when no signer is configured.
func (t *Tool) signRequest(req BuildRequest) (string, error) {
	if t.signer == nil {
		return "", nil
	}
	data, err := json.Marshal(&req)
	if err != nil {
		return "", fmt.Errorf("marshal request for signing: %w", err)
	}
	digest := crypto.HashWithDomain(domainRequest, data)
	sig, err := t.signer.Sign(digest.Bytes())
	if err != nil {
		return "", fmt.Errorf("sign request digest: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// classifyRunError maps a subprocess failure to a ToolError kind using
// the exit status and the tool's stderr diagnostics.
func classifyRunError(runErr error, diag string, ctxErr error) *ToolError {
	// A missing binary surfaces as *exec.Error from path lookup or as a
	// fork/exec *fs.PathError when the configured path is absolute.
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(runErr, &execErr) || errors.As(runErr, &pathErr) {
		return &ToolError{Kind: FailSpawn, Detail: runErr.Error(), Err: runErr}
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &ToolError{Kind: FailBroadcast, Detail: "issuance tool timed out; the transaction may still confirm", Err: runErr}
	}

	lower := strings.ToLower(diag)
	switch {
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "validation"):
		return &ToolError{Kind: FailValidation, Detail: diag, Err: runErr}
	case strings.Contains(lower, "mining") || strings.Contains(lower, "mine"):
		return &ToolError{Kind: FailMining, Detail: diag, Err: runErr}
	default:
		return &ToolError{Kind: FailBroadcast, Detail: diag, Err: runErr}
	}
}
