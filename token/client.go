package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// Client reads and transacts with a deployed token. It implements interfaces.FeeToken.
type Client struct {
	backend ledger.Backend
	address common.Address
}

func NewClient(backend ledger.Backend, address common.Address) *Client {
	return &Client{backend: backend, address: address}
}

func (c *Client) Address() common.Address {
	return c.address
}

// BalanceOf returns the token balance of account.
func (c *Client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "balanceOf", account)
}

// TotalSupply returns the amount of tokens minted so far.
func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	return c.callBigInt(ctx, "totalSupply")
}

// Transfer sends a direct transfer transaction from the from account.
func (c *Client) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) (*interfaces.Receipt, error) {
	return c.transact(ctx, from, "transfer", to, amount)
}

// Mint creates amount tokens for to. Only the token owner may mint.
func (c *Client) Mint(ctx context.Context, owner, to common.Address, amount *big.Int) (*interfaces.Receipt, error) {
	return c.transact(ctx, owner, "mint", to, amount)
}

func (c *Client) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	ret, err := c.backend.Call(ctx, ledger.Message{To: c.address, Data: data})
	if err != nil {
		return nil, err
	}

	out, err := ledger.UnpackResult(ABI, method, ret)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *Client) transact(ctx context.Context, from common.Address, method string, args ...interface{}) (*interfaces.Receipt, error) {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.backend.Transact(ctx, ledger.Message{From: from, To: c.address, Data: data})
}
