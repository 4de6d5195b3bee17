package registry

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// ErrNoTransactor is returned when a transaction is attempted without first setting the sending account.
var ErrNoTransactor = errors.New("no transacting account configured")

// Client reads from and transacts with a deployed registry.
// It implements interfaces.IdentityRegistry.
type Client struct {
	backend ledger.Backend
	address common.Address
	from    common.Address
}

// NewClient creates a client for the registry deployed at address.
func NewClient(backend ledger.Backend, address common.Address) *Client {
	return &Client{
		backend: backend,
		address: address,
	}
}

// SetTransactor sets the account direct transactions are sent from.
// This must be called before using any methods that modify state.
func (c *Client) SetTransactor(from common.Address) {
	c.from = from
}

// Address returns the registry address.
func (c *Client) Address() common.Address {
	return c.address
}

// PlayerPrimaryWallet returns the primary wallet of identity, or the zero address.
func (c *Client) PlayerPrimaryWallet(ctx context.Context, identity string) (common.Address, error) {
	out, err := c.call(ctx, "getPlayerPrimaryWallet", identity)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// PlayerSecondaryWallets returns the secondary wallets of identity in insertion order.
func (c *Client) PlayerSecondaryWallets(ctx context.Context, identity string) ([]common.Address, error) {
	out, err := c.call(ctx, "getPlayerSecondaryWallets", identity)
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

// AssignedWalletPlayer returns the identity wallet is bound to.
func (c *Client) AssignedWalletPlayer(ctx context.Context, wallet common.Address) (string, error) {
	out, err := c.call(ctx, "assignedWalletPlayer", wallet)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// PlayerStateData returns the content reference author stored for identity.
func (c *Client) PlayerStateData(ctx context.Context, identity string, author common.Address, includeGateway bool) (string, error) {
	out, err := c.call(ctx, "getPlayerStateData", identity, author, includeGateway)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// PlayerStateDataBatch returns the content references of several identities.
func (c *Client) PlayerStateDataBatch(ctx context.Context, identities []string, author common.Address, includeGateway bool, allowMissing bool) ([]string, error) {
	out, err := c.call(ctx, "getPlayerStateDataBatch", identities, author, includeGateway, allowMissing)
	if err != nil {
		return nil, err
	}
	return out[0].([]string), nil
}

// Config returns the current admin configuration.
func (c *Client) Config(ctx context.Context) (interfaces.AdminConfig, error) {
	out, err := c.call(ctx, "adminConfig")
	if err != nil {
		return interfaces.AdminConfig{}, err
	}
	return *abi.ConvertType(out[0], new(interfaces.AdminConfig)).(*interfaces.AdminConfig), nil
}

// SetPlayerPrimaryWallet binds the transacting account as primary wallet of identity.
func (c *Client) SetPlayerPrimaryWallet(ctx context.Context, identity string, proof []byte) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setPlayerPrimaryWallet", identity, proof)
}

// SetPlayerSecondaryWallet adds the transacting account to the secondary wallets of identity.
func (c *Client) SetPlayerSecondaryWallet(ctx context.Context, identity string, proof []byte) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setPlayerSecondaryWallet", identity, proof)
}

// RemovePlayerSecondaryWallet removes the transacting account from the secondary wallets of identity.
func (c *Client) RemovePlayerSecondaryWallet(ctx context.Context, identity string) (*interfaces.Receipt, error) {
	return c.transact(ctx, "removePlayerSecondaryWallet", identity)
}

// SetPlayerStateData stores ipfsHash as the transacting account's state record for identity.
func (c *Client) SetPlayerStateData(ctx context.Context, identity string, ipfsHash string) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setPlayerStateData", identity, ipfsHash)
}

// RemovePlayerStateData deletes the transacting account's state record for identity.
func (c *Client) RemovePlayerStateData(ctx context.Context, identity string) (*interfaces.Receipt, error) {
	return c.transact(ctx, "removePlayerStateData", identity)
}

// SetConvenienceGateway updates the gateway prefix. Owner only.
func (c *Client) SetConvenienceGateway(ctx context.Context, gateway string) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setConvenienceGateway", gateway)
}

// SetPrimarySigner updates the trusted proof signer. Owner only.
func (c *Client) SetPrimarySigner(ctx context.Context, signer common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setPrimarySigner", signer)
}

// SetTrustedForwarder updates the trusted forwarder. Owner only.
func (c *Client) SetTrustedForwarder(ctx context.Context, forwarder common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setTrustedForwarder", forwarder)
}

// SetFeeToken updates the token fee requests must target. Owner only.
func (c *Client) SetFeeToken(ctx context.Context, token common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "setFeeToken", token)
}

// TransferOwnership hands the registry over to newOwner. Owner only.
func (c *Client) TransferOwnership(ctx context.Context, newOwner common.Address) (*interfaces.Receipt, error) {
	return c.transact(ctx, "transferOwnership", newOwner)
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	ret, err := c.backend.Call(ctx, ledger.Message{From: c.from, To: c.address, Data: data})
	if err != nil {
		return nil, err
	}
	return ledger.UnpackResult(ABI, method, ret)
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) (*interfaces.Receipt, error) {
	if c.from == (common.Address{}) {
		return nil, ErrNoTransactor
	}

	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.backend.Transact(ctx, ledger.Message{From: c.from, To: c.address, Data: data})
}
