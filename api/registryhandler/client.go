package registryhandler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// Client reads the identity registry over HTTP. It implements interfaces.IdentityRegistry.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for the registry service at baseURL.
// A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		url:  strings.TrimSuffix(baseURL, "/"),
		http: httpClient,
	}
}

func (c *Client) playerURL(identity string, suffix string) string {
	return fmt.Sprintf("%s/api/players/%s/%s", c.url, url.PathEscape(identity), suffix)
}

func (c *Client) PlayerPrimaryWallet(ctx context.Context, identity string) (common.Address, error) {
	if identity == "" {
		return common.Address{}, fmt.Errorf("%w: empty identity", interfaces.ErrInvalidIdentity)
	}
	var resp api.PrimaryWalletResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, c.playerURL(identity, "primary-wallet"), nil, &resp); err != nil {
		return common.Address{}, err
	}
	return resp.Wallet, nil
}

func (c *Client) PlayerSecondaryWallets(ctx context.Context, identity string) ([]common.Address, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: empty identity", interfaces.ErrInvalidIdentity)
	}
	var resp api.SecondaryWalletsResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, c.playerURL(identity, "secondary-wallets"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wallets, nil
}

func (c *Client) AssignedWalletPlayer(ctx context.Context, wallet common.Address) (string, error) {
	var resp api.WalletPlayerResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, fmt.Sprintf("%s/api/wallets/%s/player", c.url, wallet.Hex()), nil, &resp); err != nil {
		return "", err
	}
	return resp.Identity, nil
}

// PlayerStateData returns the content reference of a state record.
// Missing records fail with an error matching interfaces.ErrRecordNotFound.
func (c *Client) PlayerStateData(ctx context.Context, identity string, author common.Address, includeGateway bool) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", interfaces.ErrInvalidIdentity)
	}
	target := c.playerURL(identity, "state/"+author.Hex()) + "?gateway=" + strconv.FormatBool(includeGateway)

	var resp api.StateDataResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, target, nil, &resp); err != nil {
		return "", err
	}
	return resp.Reference, nil
}

func (c *Client) PlayerStateDataBatch(ctx context.Context, identities []string, author common.Address, includeGateway bool, allowMissing bool) ([]string, error) {
	body := api.StateDataBatchRequest{
		Identities:   identities,
		Author:       author,
		Gateway:      includeGateway,
		AllowMissing: allowMissing,
	}

	var resp api.StateDataBatchResponse
	if err := api.DoJSON(ctx, c.http, http.MethodPost, c.url+"/api/players/state/batch", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.References) != len(identities) {
		return nil, fmt.Errorf("server returned %d references for %d identities", len(resp.References), len(identities))
	}
	return resp.References, nil
}

func (c *Client) Config(ctx context.Context) (interfaces.AdminConfig, error) {
	resp, err := c.config(ctx)
	if err != nil {
		return interfaces.AdminConfig{}, err
	}
	return resp.Config(), nil
}

// RegistryAddress returns the address gas-less registry requests must target.
func (c *Client) RegistryAddress(ctx context.Context) (common.Address, error) {
	resp, err := c.config(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return resp.Registry, nil
}

func (c *Client) config(ctx context.Context) (*api.ConfigResponse, error) {
	var resp api.ConfigResponse
	if err := api.DoJSON(ctx, c.http, http.MethodGet, c.url+"/api/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
