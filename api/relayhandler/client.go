package relayhandler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// Client talks to a relay service over HTTP.
// It implements interfaces.MetaTxRelayer and interfaces.FeeToken.
type Client struct {
	url     string
	http    *http.Client
	domain  interfaces.ForwarderDomain
	relayer common.Address
}

// Dial connects to the relay service at url and fetches the forwarder domain and
// relayer, which are needed before any request can be signed.
func Dial(ctx context.Context, url string, httpClient *http.Client) (*Client, error) {
	c := &Client{
		url:  strings.TrimSuffix(url, "/"),
		http: httpClient,
	}

	var resp api.DomainResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, c.url+"/api/forwarder/domain", nil, &resp); err != nil {
		return nil, fmt.Errorf("could not fetch forwarder domain: %w", err)
	}
	c.domain = resp.Domain()

	var info api.RelayInfoResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, c.url+"/api/relay/info", nil, &info); err != nil {
		return nil, fmt.Errorf("could not fetch relay info: %w", err)
	}
	c.relayer = info.Relayer
	return c, nil
}

// Relayer returns the relaying account fetched by Dial.
func (c *Client) Relayer() common.Address {
	return c.relayer
}

// Domain returns the forwarder domain fetched by Dial.
func (c *Client) Domain() interfaces.ForwarderDomain {
	return c.domain
}

// Nonce returns the next nonce the forwarder expects from the address.
func (c *Client) Nonce(ctx context.Context, from common.Address) (uint64, error) {
	var resp api.NonceResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, fmt.Sprintf("%s/api/forwarder/nonce/%s", c.url, from.Hex()), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// Relay submits a signed request. When the transaction executed but reverted
// the returned receipt carries its hash alongside the error.
func (c *Client) Relay(ctx context.Context, req interfaces.ForwardRequest, signature []byte) (*interfaces.Receipt, error) {
	body := api.RelayRequest{
		Request:   api.NewForwardRequest(req),
		Signature: signature,
	}

	var resp api.RelayResponse
	err := api.DoJSON(ctx, c.http, http.MethodPost, c.url+"/api/relay", body, &resp)
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.TxHash != nil {
		return &interfaces.Receipt{TxHash: *apiErr.TxHash, From: req.From, To: req.To, Status: types.ReceiptStatusFailed, Err: err}, err
	}
	if err != nil {
		return nil, err
	}

	return &interfaces.Receipt{
		TxHash:     resp.TxHash,
		From:       req.From,
		To:         req.To,
		Status:     types.ReceiptStatusSuccessful,
		GasUsed:    resp.GasUsed,
		ReturnData: resp.ReturnData,
	}, nil
}

// BalanceOf returns the fee token balance of account.
func (c *Client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var resp api.BalanceResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, fmt.Sprintf("%s/api/tokens/balance/%s", c.url, account.Hex()), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Balance == nil {
		return new(big.Int), nil
	}
	return resp.Balance, nil
}
