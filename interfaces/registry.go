package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IdentityRegistry defines the read side of the identity registry.
// Mutations happen through transactions, either directly or relayed via MetaTxRelayer.
type IdentityRegistry interface {
	// PlayerPrimaryWallet returns the primary wallet of an identity, or the zero address.
	PlayerPrimaryWallet(ctx context.Context, identity string) (common.Address, error)

	// PlayerSecondaryWallets returns the secondary wallets of an identity in insertion order.
	PlayerSecondaryWallets(ctx context.Context, identity string) ([]common.Address, error)

	// AssignedWalletPlayer returns the identity a wallet is bound to, or an empty string.
	AssignedWalletPlayer(ctx context.Context, wallet common.Address) (string, error)

	// PlayerStateData returns the content reference authored by author for identity.
	// Returns ErrRecordNotFound if no record exists.
	PlayerStateData(ctx context.Context, identity string, author common.Address, includeGateway bool) (string, error)

	// PlayerStateDataBatch resolves several identities at once, results are parallel to identities.
	// Missing records fail the whole call unless allowMissing is set, in which case
	// the slot holds an empty string.
	PlayerStateDataBatch(ctx context.Context, identities []string, author common.Address, includeGateway bool, allowMissing bool) ([]string, error)

	// Config returns the current admin configuration.
	Config(ctx context.Context) (AdminConfig, error)
}

// MetaTxRelayer submits signed forward requests to the meta-transaction forwarder.
type MetaTxRelayer interface {
	// Relay executes a signed request through the forwarder and returns the receipt.
	Relay(ctx context.Context, req ForwardRequest, signature []byte) (*Receipt, error)

	// Nonce returns the next nonce expected from the address.
	Nonce(ctx context.Context, from common.Address) (uint64, error)

	// Domain returns the EIP-712 domain requests must be signed under.
	Domain() ForwarderDomain

	// Relayer returns the account submitting relayed transactions, the fee recipient.
	Relayer() common.Address
}

// FeeToken is the read side of the fungible fee token.
type FeeToken interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// ContentPublisher stores state documents and returns their content hash.
// Hashes are what players record with setPlayerStateData.
type ContentPublisher interface {
	// Publish stores data and returns its 46 character base58 content hash.
	Publish(ctx context.Context, data []byte) (string, error)

	// Fetch retrieves previously published data by its content hash.
	Fetch(ctx context.Context, hash string) ([]byte, error)

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name returns a short identifier of the backend for logging.
	Name() string

	// LocationURI returns the URI that identifies this backend.
	LocationURI() string
}

// ContentStore is a ContentPublisher keyed by caller chosen hashes. Stores
// mirror documents under the hash a content network assigned to them, so the
// recorded reference resolves both through the gateway and the mirror.
type ContentStore interface {
	ContentPublisher

	// Store keeps data under hash. The hash is not recomputed from data.
	Store(ctx context.Context, hash string, data []byte) error
}
