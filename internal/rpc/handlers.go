package rpc

import (
	"context"
	"errors"

	"github.com/shielded-labs/issuerd/internal/issuer"
	"github.com/shielded-labs/issuerd/internal/ledger"
)

// ledgerError maps a ledger error to its JSON-RPC error object.
func ledgerError(err error) *Error {
	var toolErr *issuer.ToolError
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, ledger.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ledger.ErrConflict):
		return &Error{Code: CodeConflict, Message: err.Error()}
	case errors.As(err, &toolErr):
		return &Error{
			Code:    CodeExternalTool,
			Message: err.Error(),
			Data:    ToolErrorData{Kind: string(toolErr.Kind), Detail: toolErr.Detail},
		}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

func (s *Server) handleAssetCreate(req *Request) (interface{}, *Error) {
	var p AssetCreateParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	t, err := s.ledger.CreateToken(ledger.CreateParams{
		Name:          p.Name,
		Symbol:        p.Symbol,
		Description:   p.Description,
		InitialSupply: p.Supply,
		Recipient:     p.Recipient,
		Finalize:      p.Finalize,
	})
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetIssue(req *Request) (interface{}, *Error) {
	var p AssetIssueParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	t, err := s.ledger.IssueMore(p.AssetID, p.Amount, p.Recipient)
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetFinalize(req *Request) (interface{}, *Error) {
	var p AssetIDParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	t, err := s.ledger.FinalizeToken(p.AssetID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetBurn(req *Request) (interface{}, *Error) {
	var p AssetBurnParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	t, err := s.ledger.BurnTokens(p.AssetID, p.Amount, p.From)
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetDeploy(ctx context.Context, req *Request) (interface{}, *Error) {
	var p AssetDeployParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	opts := ledger.DeployOptions{Mine: s.mineDefault}
	if p.Mine != nil {
		opts.Mine = *p.Mine
	}

	res, err := s.ledger.DeployToken(ctx, p.AssetID, opts)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &DeployResult{Token: NewTokenResult(res.Token), TxID: res.TxID}, nil
}

func (s *Server) handleAssetGet(req *Request) (interface{}, *Error) {
	var p AssetIDParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}

	t, err := s.ledger.GetByAssetID(p.AssetID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetGetByID(req *Request) (interface{}, *Error) {
	var p IDParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}
	if p.ID == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "id required"}
	}

	t, err := s.ledger.GetByID(p.ID)
	if err != nil {
		return nil, ledgerError(err)
	}
	return NewTokenResult(t), nil
}

func (s *Server) handleAssetList(req *Request) (interface{}, *Error) {
	tokens := s.ledger.GetAllTokens()
	out := make([]*TokenResult, len(tokens))
	for i, t := range tokens {
		out[i] = NewTokenResult(t)
	}
	return &TokenListResult{Count: len(out), Tokens: out}, nil
}

func (s *Server) handleAssetListByIssuer(req *Request) (interface{}, *Error) {
	var p IssuerParam
	if errP := parseParams(req, &p); errP != nil {
		return nil, errP
	}
	if p.Issuer == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "issuer required"}
	}

	tokens := s.ledger.GetByIssuer(p.Issuer)
	out := make([]*TokenResult, len(tokens))
	for i, t := range tokens {
		out[i] = NewTokenResult(t)
	}
	return &TokenListResult{Count: len(out), Tokens: out}, nil
}

func (s *Server) handleIssuerGetIdentity(req *Request) (interface{}, *Error) {
	return &IdentityResult{
		Issuer:  s.ledger.Issuer(),
		Network: s.network,
	}, nil
}
