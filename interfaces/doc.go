// Package interfaces defines core interfaces and types for the identity
// registry system, separating interface definitions from implementations.
//
// # Registry Interfaces
//
// IdentityRegistry: read side of the wallet-binding and content-pointer state
// machine. Writes are transactions executed by the ledger, either directly by
// the acting wallet or relayed through the meta-transaction forwarder.
//
// MetaTxRelayer: submits EIP-712 signed ForwardRequests to the forwarder and
// exposes the signer's next nonce and the forwarder's signing domain.
//
// FeeToken: read side of the fungible token relayer fees are paid in.
//
// # Storage Interfaces
//
// ContentPublisher: stores state documents (IPFS, local files) and returns
// the 46 character base58 content hash the registry records.
//
// # Errors
//
// The error taxonomy (ErrInvalidSignature, ErrNonceMismatch,
// ErrWalletAlreadyBound, ErrNotBound, ErrIdentityMismatch, ErrRecordNotFound,
// ErrForwardedCallReverted, ErrUnauthorized, ErrFeeSettlementFailed) is shared
// by every component. Errors are wrapped with context and, for nested calls,
// with the inner failure so that errors.Is matches both.
package interfaces
