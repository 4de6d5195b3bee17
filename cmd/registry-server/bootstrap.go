package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ruteri/identity-registry/deploy"
	"github.com/ruteri/identity-registry/ledger"
	"github.com/urfave/cli/v2"
)

var ChainIDFlag = &cli.Int64Flag{
	Name:  "chain-id",
	Value: 31337,
	Usage: "chain id of the in-memory ledger, part of every signed forward request",
}

var DeployerFlag = &cli.StringFlag{
	Name:     "deployer",
	Required: true,
	Usage:    "address that owns the deployed contracts and signs wallet binding proofs",
}

var RelayerFlag = &cli.StringFlag{
	Name:  "relayer",
	Usage: "address that submits relayed requests and receives fees (defaults to the deployer)",
}

var GatewayFlag = &cli.StringFlag{
	Name:  "gateway",
	Value: deploy.DefaultGateway,
	Usage: "IPFS gateway prefix returned by state data reads",
}

var ForwarderNameFlag = &cli.StringFlag{
	Name:  "forwarder-name",
	Usage: "EIP-712 domain name of the forwarder",
}

var TokenNameFlag = &cli.StringFlag{
	Name:  "token-name",
	Value: "World",
	Usage: "name of the fee token",
}

var TokenSymbolFlag = &cli.StringFlag{
	Name:  "token-symbol",
	Value: "WRLD",
	Usage: "symbol of the fee token",
}

var SelfSignedProofsFlag = &cli.BoolFlag{
	Name:  "self-signed-proofs",
	Usage: "deploy without a primary signer, wallets sign their own binding proofs",
}

var GenesisBalanceFlag = &cli.StringSliceFlag{
	Name:  "genesis-balance",
	Usage: "fee token allocation as address=amount, may be repeated",
}

var GenesisNativeBalanceFlag = &cli.StringSliceFlag{
	Name:  "genesis-native-balance",
	Usage: "native balance allocation as address=amount, may be repeated",
}

var RelayGasLimitFlag = &cli.Uint64Flag{
	Name:  "relay-gas-limit",
	Usage: "gas limit of relay transactions (0 uses the ledger default)",
}

var DeployFlags = []cli.Flag{
	ChainIDFlag,
	DeployerFlag,
	RelayerFlag,
	GatewayFlag,
	ForwarderNameFlag,
	TokenNameFlag,
	TokenSymbolFlag,
	SelfSignedProofsFlag,
	GenesisBalanceFlag,
	GenesisNativeBalanceFlag,
	RelayGasLimitFlag,
}

// parseAllocations parses address=amount pairs. Amounts accept decimal or 0x-prefixed hex.
func parseAllocations(entries []string) (map[common.Address]*big.Int, error) {
	allocations := make(map[common.Address]*big.Int, len(entries))
	for _, entry := range entries {
		addr, amount, ok := strings.Cut(entry, "=")
		if !ok || !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid allocation %q, expected address=amount", entry)
		}
		value, ok := math.ParseBig256(amount)
		if !ok || amount == "" || value.Sign() < 0 {
			return nil, fmt.Errorf("invalid amount in allocation %q", entry)
		}
		allocations[common.HexToAddress(addr)] = value
	}
	return allocations, nil
}

// SetupLedger creates the in-memory ledger and deploys the registry system on it.
func SetupLedger(cCtx *cli.Context, logger *slog.Logger) (*ledger.Ledger, *deploy.Deployment, common.Address, error) {
	deployerHex := cCtx.String(DeployerFlag.Name)
	if !common.IsHexAddress(deployerHex) {
		return nil, nil, common.Address{}, fmt.Errorf("invalid deployer address %q", deployerHex)
	}
	deployer := common.HexToAddress(deployerHex)

	relayer := deployer
	if relayerHex := cCtx.String(RelayerFlag.Name); relayerHex != "" {
		if !common.IsHexAddress(relayerHex) {
			return nil, nil, common.Address{}, fmt.Errorf("invalid relayer address %q", relayerHex)
		}
		relayer = common.HexToAddress(relayerHex)
	}

	genesis, err := parseAllocations(cCtx.StringSlice(GenesisBalanceFlag.Name))
	if err != nil {
		return nil, nil, common.Address{}, err
	}
	native, err := parseAllocations(cCtx.StringSlice(GenesisNativeBalanceFlag.Name))
	if err != nil {
		return nil, nil, common.Address{}, err
	}

	l := ledger.New(big.NewInt(cCtx.Int64(ChainIDFlag.Name)), logger)
	for account, amount := range native {
		l.SetBalance(account, amount)
	}

	d, err := deploy.Deploy(context.Background(), l, deploy.Params{
		Deployer:         deployer,
		ForwarderName:    cCtx.String(ForwarderNameFlag.Name),
		Gateway:          cCtx.String(GatewayFlag.Name),
		TokenName:        cCtx.String(TokenNameFlag.Name),
		TokenSymbol:      cCtx.String(TokenSymbolFlag.Name),
		SelfSignedProofs: cCtx.Bool(SelfSignedProofsFlag.Name),
		Genesis:          genesis,
	}, logger)
	if err != nil {
		return nil, nil, common.Address{}, fmt.Errorf("could not deploy registry: %w", err)
	}

	logger.Info("Registry deployed",
		"chainId", l.ChainID().String(),
		"forwarder", d.Forwarder.Hex(),
		"token", d.Token.Hex(),
		"registry", d.Registry.Hex(),
		"relayer", relayer.Hex())

	return l, d, relayer, nil
}
