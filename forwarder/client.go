package forwarder

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// ErrNoRelayer is returned when a relay is attempted without a relaying account.
var ErrNoRelayer = errors.New("no relayer account configured")

// Client relays signed requests through a deployed forwarder.
// It implements interfaces.MetaTxRelayer.
type Client struct {
	backend  ledger.Backend
	address  common.Address
	domain   interfaces.ForwarderDomain
	relayer  common.Address
	gasLimit uint64
}

// NewClient creates a client for the forwarder at domain.VerifyingContract.
// Transactions are sent from relayer, which pays for execution.
func NewClient(backend ledger.Backend, domain interfaces.ForwarderDomain, relayer common.Address) *Client {
	return &Client{
		backend: backend,
		address: domain.VerifyingContract,
		domain:  domain,
		relayer: relayer,
	}
}

// SetGasLimit sets the gas limit of relay transactions, zero uses the ledger default.
func (c *Client) SetGasLimit(gasLimit uint64) {
	c.gasLimit = gasLimit
}

// Domain returns the EIP-712 domain requests must be signed under.
func (c *Client) Domain() interfaces.ForwarderDomain {
	return c.domain
}

// Relayer returns the account paying for relayed transactions.
func (c *Client) Relayer() common.Address {
	return c.relayer
}

// Nonce returns the next nonce the forwarder expects from the address.
func (c *Client) Nonce(ctx context.Context, from common.Address) (uint64, error) {
	data, err := ABI.Pack("getNonce", from)
	if err != nil {
		return 0, err
	}

	ret, err := c.backend.Call(ctx, ledger.Message{From: c.relayer, To: c.address, Data: data})
	if err != nil {
		return 0, err
	}

	out, err := ledger.UnpackResult(ABI, "getNonce", ret)
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// Verify reports whether the forwarder would accept the request right now.
func (c *Client) Verify(ctx context.Context, req interfaces.ForwardRequest, signature []byte) (bool, error) {
	data, err := ABI.Pack("verify", req.Normalize(), signature)
	if err != nil {
		return false, err
	}

	ret, err := c.backend.Call(ctx, ledger.Message{From: c.relayer, To: c.address, Data: data})
	if err != nil {
		return false, err
	}

	out, err := ledger.UnpackResult(ABI, "verify", ret)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// Relay submits the signed request to the forwarder. The receipt's return data
// holds the result of the forwarded call. On failure the receipt of the
// reverted transaction is returned together with the error.
func (c *Client) Relay(ctx context.Context, req interfaces.ForwardRequest, signature []byte) (*interfaces.Receipt, error) {
	if c.relayer == (common.Address{}) {
		return nil, ErrNoRelayer
	}

	req = req.Normalize()
	data, err := ABI.Pack("execute", req, signature)
	if err != nil {
		return nil, fmt.Errorf("could not encode forward request: %w", err)
	}

	receipt, err := c.backend.Transact(ctx, ledger.Message{
		From:  c.relayer,
		To:    c.address,
		Value: req.Value,
		Gas:   c.gasLimit,
		Data:  data,
	})
	if err != nil {
		return receipt, err
	}

	out, err := ledger.UnpackResult(ABI, "execute", receipt.ReturnData)
	if err != nil {
		return receipt, err
	}
	receipt.ReturnData = out[1].([]byte)
	return receipt, nil
}

// SignAndRelay fills in the sender's current nonce, signs the request and relays it.
func (c *Client) SignAndRelay(ctx context.Context, signer Signer, req interfaces.ForwardRequest) (*interfaces.Receipt, error) {
	nonce, err := c.Nonce(ctx, req.From)
	if err != nil {
		return nil, err
	}
	req.Nonce = new(big.Int).SetUint64(nonce)

	signature, err := signer.SignForwardRequest(c.domain, req)
	if err != nil {
		return nil, err
	}
	return c.Relay(ctx, req, signature)
}

// Signer produces EIP-712 signatures over forward requests.
type Signer interface {
	SignForwardRequest(domain interfaces.ForwarderDomain, req interfaces.ForwardRequest) ([]byte, error)
}
