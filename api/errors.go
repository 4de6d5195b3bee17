package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// ErrInvalidInput is returned for malformed request bodies and path parameters.
var ErrInvalidInput = errors.New("invalid input")

const KindInternal = "internal"

type errorKind struct {
	err    error
	kind   string
	status int
}

// errorKinds is ordered: the first match wins, so kinds describing the
// outcome of a nested call come before the generic ones.
var errorKinds = []errorKind{
	{interfaces.ErrFeeSettlementFailed, "fee_settlement_failed", http.StatusPaymentRequired},
	{interfaces.ErrInsufficientBalance, "insufficient_balance", http.StatusPaymentRequired},
	{interfaces.ErrUnauthorized, "unauthorized", http.StatusForbidden},
	{interfaces.ErrRecordNotFound, "record_not_found", http.StatusNotFound},
	{interfaces.ErrWalletAlreadyBound, "wallet_already_bound", http.StatusConflict},
	{interfaces.ErrNotBound, "not_bound", http.StatusConflict},
	{interfaces.ErrInvalidSignature, "invalid_signature", http.StatusBadRequest},
	{interfaces.ErrSignatureRequired, "signature_required", http.StatusBadRequest},
	{interfaces.ErrNonceMismatch, "nonce_mismatch", http.StatusBadRequest},
	{interfaces.ErrIdentityMismatch, "identity_mismatch", http.StatusBadRequest},
	{interfaces.ErrInvalidIdentity, "invalid_identity", http.StatusBadRequest},
	{interfaces.ErrInvalidIPFSHash, "invalid_ipfs_hash", http.StatusBadRequest},
	{interfaces.ErrUnknownMethod, "unknown_method", http.StatusBadRequest},
	{ledger.ErrOutOfGas, "out_of_gas", http.StatusBadRequest},
	{ledger.ErrCallDepth, "call_depth", http.StatusBadRequest},
	{interfaces.ErrForwardedCallReverted, "forwarded_call_reverted", http.StatusBadRequest},
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
}

// ErrorKind classifies err into an HTTP status and a stable short kind.
// Failures of a forwarded call are classified by their inner reason, see IsForwarded.
func ErrorKind(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.kind
		}
	}
	return http.StatusInternalServerError, KindInternal
}

// IsForwarded reports whether err is the failure of a forwarded call, as opposed
// to the forwarder rejecting the request itself.
func IsForwarded(err error) bool {
	return errors.Is(err, interfaces.ErrForwardedCallReverted)
}

// APIError is an error returned by the API, carrying the server side kind.
// It unwraps to the matching sentinel error so errors.Is works across the wire.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string

	// Forwarded is set when the forwarder accepted the request and the
	// forwarded call failed. Kind then describes the inner failure.
	Forwarded bool

	// TxHash is set when a relayed transaction executed and reverted
	TxHash *common.Hash
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() []error {
	var errs []error
	if e.Forwarded {
		errs = append(errs, interfaces.ErrForwardedCallReverted)
	}
	for _, k := range errorKinds {
		if k.kind != e.Kind {
			continue
		}
		if !e.Forwarded || k.err != interfaces.ErrForwardedCallReverted {
			errs = append(errs, k.err)
		}
		break
	}
	return errs
}
