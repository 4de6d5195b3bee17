package interfaces

import "errors"

var (
	// ErrInvalidSignature is returned when a signature is malformed or recovers to an unexpected signer.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSignatureRequired is returned when a proof signature is required but none was supplied.
	ErrSignatureRequired = errors.New("signature required")

	// ErrNonceMismatch is returned when a forwarded request does not carry the signer's current nonce.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrWalletAlreadyBound is returned when a wallet is already bound and cannot be rebound.
	ErrWalletAlreadyBound = errors.New("wallet already bound")

	// ErrNotBound is returned when a wallet is expected to be bound to an identity but is not.
	ErrNotBound = errors.New("wallet not bound")

	// ErrIdentityMismatch is returned when the authenticated subject differs from the acting wallet.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrRecordNotFound is returned when a state record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrForwardedCallReverted is returned by the forwarder when the relayed call fails.
	ErrForwardedCallReverted = errors.New("forwarded call reverted")

	// ErrUnauthorized is returned for admin-only and forwarder-only entry points.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrFeeSettlementFailed is returned when the relayer fee could not be paid.
	ErrFeeSettlementFailed = errors.New("fee settlement failed")

	// ErrInvalidIdentity is returned for empty identities.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInvalidIPFSHash is returned when a content hash is not a 46 character base58 string.
	ErrInvalidIPFSHash = errors.New("invalid ipfs hash")

	// ErrInsufficientBalance is returned when an account cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownMethod is returned when call data does not select a known method.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrContentNotFound is returned when a content hash is not present in a storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInconsistentHash is returned when content networks assign different hashes to the same document.
	ErrInconsistentHash = errors.New("inconsistent content hash")

	// ErrInvalidLocationURI is returned for malformed or unsupported storage URIs.
	ErrInvalidLocationURI = errors.New("invalid location URI")
)
