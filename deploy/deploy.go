// Package deploy puts a complete identity registry system on a ledger: the
// meta-transaction forwarder, the fee token and the registry itself.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
	"github.com/ruteri/identity-registry/registry"
	"github.com/ruteri/identity-registry/token"
)

// DefaultGateway is the IPFS gateway prefix registries are deployed with.
const DefaultGateway = "https://routing.nftworlds.com/ipfs/"

var ErrNoDeployer = errors.New("deployer address is required")

// Params are the constructor parameters of a deployment.
type Params struct {
	// Deployer owns the token and the registry and is the initial primary signer.
	Deployer common.Address

	ForwarderName string
	Gateway       string
	TokenName     string
	TokenSymbol   string

	// ExternalForwarder, when set, is trusted instead of deploying a new forwarder.
	ExternalForwarder common.Address

	// SelfSignedProofs leaves the primary signer unset, so wallets prove bindings themselves.
	SelfSignedProofs bool

	// Genesis fee token balances minted right after deployment.
	Genesis map[common.Address]*big.Int
}

// Deployment holds the deployed contract addresses.
type Deployment struct {
	Forwarder      common.Address
	ForwarderName  string
	Token          common.Address
	Registry       common.Address
	RegistryConfig interfaces.AdminConfig
}

// Deploy deploys the forwarder, the fee token and the registry in that order,
// wiring the forwarder as trusted by the other two.
func Deploy(ctx context.Context, l *ledger.Ledger, params Params, log *slog.Logger) (*Deployment, error) {
	if params.Deployer == (common.Address{}) {
		return nil, ErrNoDeployer
	}
	if log == nil {
		log = slog.Default()
	}
	if params.ForwarderName == "" {
		params.ForwarderName = forwarder.DefaultName
	}
	if params.Gateway == "" {
		params.Gateway = DefaultGateway
	}
	if params.TokenName == "" {
		params.TokenName = "World"
	}
	if params.TokenSymbol == "" {
		params.TokenSymbol = "WRLD"
	}

	d := &Deployment{
		Forwarder:     params.ExternalForwarder,
		ForwarderName: params.ForwarderName,
	}

	if d.Forwarder == (common.Address{}) {
		addr, err := l.Deploy(params.Deployer, func(addr common.Address) (ledger.Contract, error) {
			return forwarder.New(addr, params.ForwarderName, log), nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not deploy forwarder: %w", err)
		}
		d.Forwarder = addr
	}
	log.Info("Forwarder ready", slog.String("address", d.Forwarder.Hex()), slog.String("name", d.ForwarderName))

	tokenAddr, err := l.Deploy(params.Deployer, func(addr common.Address) (ledger.Contract, error) {
		return token.New(addr, token.Config{
			Name:             params.TokenName,
			Symbol:           params.TokenSymbol,
			Owner:            params.Deployer,
			TrustedForwarder: d.Forwarder,
		}, log), nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not deploy fee token: %w", err)
	}
	d.Token = tokenAddr
	log.Info("Fee token deployed", slog.String("address", d.Token.Hex()), slog.String("symbol", params.TokenSymbol))

	d.RegistryConfig = interfaces.AdminConfig{
		Owner:              params.Deployer,
		TrustedForwarder:   d.Forwarder,
		ConvenienceGateway: params.Gateway,
		FeeToken:           d.Token,
	}
	if !params.SelfSignedProofs {
		d.RegistryConfig.PrimarySigner = params.Deployer
	}

	registryAddr, err := l.Deploy(params.Deployer, func(addr common.Address) (ledger.Contract, error) {
		return registry.New(addr, d.RegistryConfig, log), nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not deploy registry: %w", err)
	}
	d.Registry = registryAddr
	log.Info("Registry deployed",
		slog.String("address", d.Registry.Hex()),
		slog.String("gateway", params.Gateway),
		slog.String("primarySigner", d.RegistryConfig.PrimarySigner.Hex()))

	tokenClient := token.NewClient(l, d.Token)
	for account, amount := range params.Genesis {
		if _, err := tokenClient.Mint(ctx, params.Deployer, account, amount); err != nil {
			return nil, fmt.Errorf("could not mint genesis balance of %s: %w", account.Hex(), err)
		}
		log.Debug("Genesis balance minted", slog.String("account", account.Hex()), slog.String("amount", amount.String()))
	}

	return d, nil
}

// ForwarderDomain returns the EIP-712 domain requests to the deployed forwarder are signed under.
func (d *Deployment) ForwarderDomain(chainID *big.Int) interfaces.ForwarderDomain {
	return interfaces.ForwarderDomain{
		Name:              d.ForwarderName,
		Version:           interfaces.ForwarderVersion,
		ChainID:           new(big.Int).Set(chainID),
		VerifyingContract: d.Forwarder,
	}
}
