/*
Package api defines the HTTP surface of the identity registry: JSON wire types,
error classification and the helpers shared by handlers and clients.

Handlers live in subpackages:

  - relayhandler - relays signed forward requests and exposes forwarder state
  - registryhandler - read access to identity bindings, state records and config

# Errors

Every failure is answered with an ErrorResponse carrying a stable kind:

	400 invalid_signature, signature_required, nonce_mismatch, identity_mismatch,
	    invalid_identity, invalid_ipfs_hash, forwarded_call_reverted, invalid_input, ...
	402 fee_settlement_failed, insufficient_balance
	403 unauthorized
	404 record_not_found
	409 wallet_already_bound, not_bound
	500 internal

Clients turn these back into *APIError values that unwrap to the matching
sentinel from the interfaces package, so errors.Is behaves the same locally
and remotely.
*/
package api
