package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/cryptoutils"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/registry"
)

// Client performs registry actions on behalf of a wallet through a relay.
type Client struct {
	Relayer      interfaces.MetaTxRelayer
	Registry     interfaces.IdentityRegistry
	RegistryAddr common.Address
	FeeToken     common.Address
	Signer       *cryptoutils.KeySigner
	Log          *slog.Logger
}

// FeeOptions are the fee and gas parameters of gas-less requests.
type FeeOptions struct {
	Amount    *big.Int
	FeeGas    uint64
	ActionGas uint64
}

// RelayAction signs action as a gas-less request paying the relayer and relays it.
func (c *Client) RelayAction(ctx context.Context, action registry.Action, opts FeeOptions) (*interfaces.Receipt, error) {
	if c.Signer == nil {
		return nil, fmt.Errorf("a private key is required to %s", action.Method)
	}

	nonce, err := c.Relayer.Nonce(ctx, c.Signer.Address())
	if err != nil {
		return nil, fmt.Errorf("could not fetch nonce: %w", err)
	}

	fee := registry.Fee{
		Token:   c.FeeToken,
		Relayer: c.Relayer.Relayer(),
		Amount:  opts.Amount,
		Gas:     opts.FeeGas,
	}
	req, err := registry.BuildGaslessRequest(c.Signer, c.Relayer.Domain(), c.RegistryAddr, nonce, opts.ActionGas, action, fee)
	if err != nil {
		return nil, err
	}

	c.Log.Debug("Relaying gas-less request",
		slog.String("method", action.Method),
		slog.String("from", c.Signer.Address().Hex()),
		slog.Uint64("nonce", nonce))

	receipt, err := c.Relayer.Relay(ctx, req.Request, req.Signature)
	if err != nil {
		if receipt != nil {
			return receipt, fmt.Errorf("%s reverted in %s: %w", action.Method, receipt.TxHash.Hex(), err)
		}
		return nil, fmt.Errorf("could not relay %s: %w", action.Method, err)
	}
	return receipt, nil
}

// RelayOwnerAction signs an owner only registry action and relays it without a fee.
func (c *Client) RelayOwnerAction(ctx context.Context, action registry.Action, gas uint64) (*interfaces.Receipt, error) {
	if c.Signer == nil {
		return nil, fmt.Errorf("a private key is required to %s", action.Method)
	}

	nonce, err := c.Relayer.Nonce(ctx, c.Signer.Address())
	if err != nil {
		return nil, fmt.Errorf("could not fetch nonce: %w", err)
	}

	req, signature, err := registry.BuildForwardedRequest(c.Signer, c.Relayer.Domain(), c.RegistryAddr, nonce, gas, action)
	if err != nil {
		return nil, err
	}

	c.Log.Debug("Relaying owner request",
		slog.String("method", action.Method),
		slog.String("from", c.Signer.Address().Hex()),
		slog.Uint64("nonce", nonce))

	receipt, err := c.Relayer.Relay(ctx, req, signature)
	if err != nil {
		if receipt != nil {
			return receipt, fmt.Errorf("%s reverted in %s: %w", action.Method, receipt.TxHash.Hex(), err)
		}
		return nil, fmt.Errorf("could not relay %s: %w", action.Method, err)
	}
	return receipt, nil
}

// PublishState stores a state document and records its hash for identity.
func (c *Client) PublishState(ctx context.Context, publisher interfaces.ContentPublisher, identity string, data []byte, opts FeeOptions) (string, *interfaces.Receipt, error) {
	hash, err := publisher.Publish(ctx, data)
	if err != nil {
		return "", nil, fmt.Errorf("could not publish state to %s: %w", publisher.Name(), err)
	}
	c.Log.Info("State document published", "hash", hash, "backend", publisher.Name())

	receipt, err := c.RelayAction(ctx, registry.SetStateDataAction(identity, hash), opts)
	if err != nil {
		return hash, receipt, err
	}
	return hash, receipt, nil
}

// FetchState resolves the state record of identity by author and fetches the document.
func (c *Client) FetchState(ctx context.Context, publisher interfaces.ContentPublisher, identity string, author common.Address) ([]byte, error) {
	reference, err := c.Registry.PlayerStateData(ctx, identity, author, false)
	if err != nil {
		return nil, err
	}
	return publisher.Fetch(ctx, strings.TrimPrefix(reference, interfaces.IPFSScheme))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
