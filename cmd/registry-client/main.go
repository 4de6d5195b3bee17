package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/api/registryhandler"
	"github.com/ruteri/identity-registry/api/relayhandler"
	"github.com/ruteri/identity-registry/cmd/flags"
	"github.com/ruteri/identity-registry/cryptoutils"
	"github.com/ruteri/identity-registry/registry"
	"github.com/ruteri/identity-registry/storage"
	"github.com/urfave/cli/v2"
)

var flagIdentity = &cli.StringFlag{
	Name:     "identity",
	Required: true,
	Usage:    "player identity (username or system issued uuid)",
}
var flagProof = &cli.StringFlag{
	Name:  "proof",
	Usage: "hex-encoded wallet binding proof from sign-wallet-proof",
}
var flagWallet = &cli.StringFlag{
	Name:  "wallet",
	Usage: "wallet address (defaults to the address of --private-key)",
}
var flagAuthor = &cli.StringFlag{
	Name:  "author",
	Usage: "author of the state record (defaults to the address of --private-key)",
}
var flagGateway = &cli.BoolFlag{
	Name:  "gateway",
	Usage: "return references prefixed with the convenience gateway instead of ipfs://",
}
var flagAllowMissing = &cli.BoolFlag{
	Name:  "allow-missing",
	Usage: "return empty references for identities without a record instead of failing",
}
var flagHash = &cli.StringFlag{
	Name:     "hash",
	Required: true,
	Usage:    "46 character IPFS content hash",
}
var flagFile = &cli.StringFlag{
	Name:     "file",
	Required: true,
	Usage:    "state document to publish",
}
var flagStorage = &cli.StringSliceFlag{
	Name:  "storage",
	Value: cli.NewStringSlice("ipfs://127.0.0.1:5001"),
	Usage: "storage backend URI (ipfs://, file://, s3:// or vault://), may be repeated; IPFS assigns the recorded hash and the others mirror it",
}
var flagFee = &cli.StringFlag{
	Name:  "fee",
	Value: "0",
	Usage: "fee token amount paid to the relayer",
}
var flagFeeGas = &cli.Uint64Flag{
	Name:  "fee-gas",
	Value: registry.DefaultFeeGas,
	Usage: "gas budget of the nested fee transfer",
}
var flagActionGas = &cli.Uint64Flag{
	Name:  "action-gas",
	Value: registry.DefaultActionGas,
	Usage: "gas budget of the gas-less action",
}

var flagGatewayURL = &cli.StringFlag{
	Name:     "url",
	Required: true,
	Usage:    "gateway prefix, e.g. https://ipfs.io/ipfs/ (empty string clears it)",
}

func addressFlag(name, usage string) *cli.StringFlag {
	return &cli.StringFlag{Name: name, Required: true, Usage: usage}
}

var feeFlags = []cli.Flag{flagFee, flagFeeGas, flagActionGas}

func withFee(fs ...cli.Flag) []cli.Flag {
	return append(fs, feeFlags...)
}

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Bind wallets to identities and manage player state through a registry server",
		Flags: append([]cli.Flag{
			flags.ServerAddrFlag,
			flags.PrivateKeyFlag,
			flags.LogServiceFlagFn("registry-client"),
		}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "address",
				Usage: "Print the wallet address of --private-key",
				Action: func(cCtx *cli.Context) error {
					signer, err := loadSigner(cCtx)
					if err != nil {
						return err
					}
					fmt.Println(signer.Address().Hex())
					return nil
				},
			},
			{
				Name:  "new-identity",
				Usage: "Issue a system identity for a player without a username",
				Action: func(cCtx *cli.Context) error {
					fmt.Println(registry.NewSystemIdentity())
					return nil
				},
			},
			{
				Name:        "sign-wallet-proof",
				Usage:       "Sign a wallet binding proof",
				Description: "Run with the primary signer's key, or with the wallet's own key for registries without a primary signer.",
				Flags:       []cli.Flag{flagIdentity, flagWallet},
				Action: func(cCtx *cli.Context) error {
					signer, err := loadSigner(cCtx)
					if err != nil {
						return err
					}
					wallet, err := addressOrSelf(cCtx, flagWallet.Name, signer)
					if err != nil {
						return err
					}
					proof, err := signer.SignPlayerWalletProof(wallet, cCtx.String(flagIdentity.Name))
					if err != nil {
						return err
					}
					fmt.Println(hexutil.Encode(proof))
					return nil
				},
			},
			{
				Name:  "set-primary-wallet",
				Usage: "Bind the wallet of --private-key as primary wallet of an identity",
				Flags: withFee(flagIdentity, flagProof),
				Action: func(cCtx *cli.Context) error {
					proof, err := decodeProof(cCtx)
					if err != nil {
						return err
					}
					return relay(cCtx, registry.SetPrimaryWalletAction(cCtx.String(flagIdentity.Name), proof))
				},
			},
			{
				Name:  "add-secondary-wallet",
				Usage: "Bind the wallet of --private-key as secondary wallet of an identity",
				Flags: withFee(flagIdentity, flagProof),
				Action: func(cCtx *cli.Context) error {
					proof, err := decodeProof(cCtx)
					if err != nil {
						return err
					}
					return relay(cCtx, registry.SetSecondaryWalletAction(cCtx.String(flagIdentity.Name), proof))
				},
			},
			{
				Name:  "remove-secondary-wallet",
				Usage: "Unbind the wallet of --private-key from an identity",
				Flags: withFee(flagIdentity),
				Action: func(cCtx *cli.Context) error {
					return relay(cCtx, registry.RemoveSecondaryWalletAction(cCtx.String(flagIdentity.Name)))
				},
			},
			{
				Name:  "set-state-data",
				Usage: "Record an already published state document",
				Flags: withFee(flagIdentity, flagHash),
				Action: func(cCtx *cli.Context) error {
					hash := cCtx.String(flagHash.Name)
					if err := storage.ValidateIPFSHash(hash); err != nil {
						return err
					}
					return relay(cCtx, registry.SetStateDataAction(cCtx.String(flagIdentity.Name), hash))
				},
			},
			{
				Name:  "remove-state-data",
				Usage: "Remove the state record authored by --private-key",
				Flags: withFee(flagIdentity),
				Action: func(cCtx *cli.Context) error {
					return relay(cCtx, registry.RemoveStateDataAction(cCtx.String(flagIdentity.Name)))
				},
			},
			{
				Name:  "publish-state",
				Usage: "Publish a state document to storage and record its hash",
				Flags: withFee(flagIdentity, flagFile, flagStorage),
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, true)
					if err != nil {
						return err
					}
					data, err := os.ReadFile(cCtx.String(flagFile.Name))
					if err != nil {
						return err
					}
					publisher, err := storage.NewPublisherFactory(c.Log).CreateMultiPublisher(cCtx.StringSlice(flagStorage.Name))
					if err != nil {
						return err
					}
					opts, err := feeOptions(cCtx)
					if err != nil {
						return err
					}
					hash, receipt, err := c.PublishState(cCtx.Context, publisher, cCtx.String(flagIdentity.Name), data, opts)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, map[string]any{"hash": hash, "tx_hash": receipt.TxHash, "gas_used": receipt.GasUsed})
				},
			},
			{
				Name:  "fetch-state",
				Usage: "Resolve a state record and fetch the document from storage",
				Flags: []cli.Flag{flagIdentity, flagAuthor, flagStorage},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					author, err := addressOrSelf(cCtx, flagAuthor.Name, c.Signer)
					if err != nil {
						return err
					}
					publisher, err := storage.NewPublisherFactory(c.Log).CreateMultiPublisher(cCtx.StringSlice(flagStorage.Name))
					if err != nil {
						return err
					}
					data, err := c.FetchState(cCtx.Context, publisher, cCtx.String(flagIdentity.Name), author)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:  "set-gateway",
				Usage: "Set the convenience gateway prefixed to state references (owner only)",
				Flags: []cli.Flag{flagGatewayURL, flagActionGas},
				Action: func(cCtx *cli.Context) error {
					return relayOwner(cCtx, registry.SetConvenienceGatewayAction(cCtx.String(flagGatewayURL.Name)))
				},
			},
			ownerAddressCommand("set-primary-signer", "signer", "Set the primary signer of wallet binding proofs, zero address to disable (owner only)", registry.SetPrimarySignerAction),
			ownerAddressCommand("set-trusted-forwarder", "forwarder", "Set the trusted forwarder (owner only)", registry.SetTrustedForwarderAction),
			ownerAddressCommand("set-fee-token", "token", "Set the fee token gas-less requests pay in (owner only)", registry.SetFeeTokenAction),
			ownerAddressCommand("transfer-ownership", "new-owner", "Transfer registry ownership (owner only)", registry.TransferOwnershipAction),
			{
				Name:  "primary-wallet",
				Usage: "Print the primary wallet of an identity",
				Flags: []cli.Flag{flagIdentity},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					identity := cCtx.String(flagIdentity.Name)
					wallet, err := c.Registry.PlayerPrimaryWallet(cCtx.Context, identity)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.PrimaryWalletResponse{Identity: identity, Wallet: wallet})
				},
			},
			{
				Name:  "secondary-wallets",
				Usage: "Print the secondary wallets of an identity",
				Flags: []cli.Flag{flagIdentity},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					identity := cCtx.String(flagIdentity.Name)
					wallets, err := c.Registry.PlayerSecondaryWallets(cCtx.Context, identity)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.SecondaryWalletsResponse{Identity: identity, Wallets: wallets})
				},
			},
			{
				Name:  "wallet-player",
				Usage: "Print the identity a wallet is bound to",
				Flags: []cli.Flag{flagWallet},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					wallet, err := addressOrSelf(cCtx, flagWallet.Name, c.Signer)
					if err != nil {
						return err
					}
					identity, err := c.Registry.AssignedWalletPlayer(cCtx.Context, wallet)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.WalletPlayerResponse{Wallet: wallet, Identity: identity})
				},
			},
			{
				Name:  "state-data",
				Usage: "Print the state reference of an identity by an author",
				Flags: []cli.Flag{flagIdentity, flagAuthor, flagGateway},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					author, err := addressOrSelf(cCtx, flagAuthor.Name, c.Signer)
					if err != nil {
						return err
					}
					identity := cCtx.String(flagIdentity.Name)
					reference, err := c.Registry.PlayerStateData(cCtx.Context, identity, author, cCtx.Bool(flagGateway.Name))
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.StateDataResponse{Identity: identity, Author: author, Reference: reference})
				},
			},
			{
				Name:      "state-data-batch",
				Usage:     "Print the state references of several identities by an author",
				ArgsUsage: "<identity>...",
				Flags:     []cli.Flag{flagAuthor, flagGateway, flagAllowMissing},
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					author, err := addressOrSelf(cCtx, flagAuthor.Name, c.Signer)
					if err != nil {
						return err
					}
					references, err := c.Registry.PlayerStateDataBatch(cCtx.Context, cCtx.Args().Slice(), author, cCtx.Bool(flagGateway.Name), cCtx.Bool(flagAllowMissing.Name))
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.StateDataBatchResponse{References: references})
				},
			},
			{
				Name:  "config",
				Usage: "Print the registry configuration",
				Action: func(cCtx *cli.Context) error {
					c, err := connect(cCtx, false)
					if err != nil {
						return err
					}
					config, err := c.Registry.Config(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.NewConfigResponse(c.RegistryAddr, config))
				},
			},
			{
				Name:  "balance",
				Usage: "Print the fee token balance of a wallet",
				Flags: []cli.Flag{flagWallet},
				Action: func(cCtx *cli.Context) error {
					relayClient, err := relayhandler.Dial(cCtx.Context, cCtx.String(flags.ServerAddrFlag.Name), nil)
					if err != nil {
						return err
					}
					signer, _ := loadSigner(cCtx)
					wallet, err := addressOrSelf(cCtx, flagWallet.Name, signer)
					if err != nil {
						return err
					}
					balance, err := relayClient.BalanceOf(cCtx.Context, wallet)
					if err != nil {
						return err
					}
					return printJSON(os.Stdout, api.BalanceResponse{Account: wallet, Balance: balance})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadSigner(cCtx *cli.Context) (*cryptoutils.KeySigner, error) {
	key := cCtx.String(flags.PrivateKeyFlag.Name)
	if key == "" {
		return nil, fmt.Errorf("--%s is required", flags.PrivateKeyFlag.Name)
	}
	signer, err := cryptoutils.NewKeySignerFromHex(key)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}
	return signer, nil
}

// addressOrSelf parses the address flag, falling back to the signer's address.
func addressOrSelf(cCtx *cli.Context, name string, signer *cryptoutils.KeySigner) (common.Address, error) {
	value := cCtx.String(name)
	if value == "" {
		if signer == nil {
			return common.Address{}, fmt.Errorf("--%s or --%s is required", name, flags.PrivateKeyFlag.Name)
		}
		return signer.Address(), nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid --%s %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func decodeProof(cCtx *cli.Context) ([]byte, error) {
	proof := cCtx.String(flagProof.Name)
	if proof == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(proof, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagProof.Name, err)
	}
	return decoded, nil
}

func feeOptions(cCtx *cli.Context) (FeeOptions, error) {
	amount, ok := math.ParseBig256(cCtx.String(flagFee.Name))
	if !ok || amount.Sign() < 0 {
		return FeeOptions{}, fmt.Errorf("invalid --%s %q", flagFee.Name, cCtx.String(flagFee.Name))
	}
	return FeeOptions{
		Amount:    amount,
		FeeGas:    cCtx.Uint64(flagFeeGas.Name),
		ActionGas: cCtx.Uint64(flagActionGas.Name),
	}, nil
}

// connect builds a Client for the configured server. The relay connection and
// the signer are only required for commands that send requests.
func connect(cCtx *cli.Context, sending bool) (*Client, error) {
	ctx := cCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := flags.SetupLogger(cCtx)
	serverAddr := cCtx.String(flags.ServerAddrFlag.Name)

	signer, err := loadSigner(cCtx)
	if err != nil && sending {
		return nil, err
	}

	registryClient := registryhandler.NewClient(serverAddr, nil)
	config, err := registryClient.Config(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch registry config: %w", err)
	}
	registryAddr, err := registryClient.RegistryAddress(ctx)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Registry:     registryClient,
		RegistryAddr: registryAddr,
		FeeToken:     config.FeeToken,
		Signer:       signer,
		Log:          logger,
	}

	if sending {
		c.Relayer, err = relayhandler.Dial(ctx, serverAddr, nil)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func relay(cCtx *cli.Context, action registry.Action) error {
	c, err := connect(cCtx, true)
	if err != nil {
		return err
	}
	opts, err := feeOptions(cCtx)
	if err != nil {
		return err
	}
	receipt, err := c.RelayAction(cCtx.Context, action, opts)
	if err != nil {
		return err
	}
	c.Log.Info("Request relayed", slog.String("method", action.Method), slog.String("tx", receipt.TxHash.Hex()))
	return printJSON(os.Stdout, api.RelayResponse{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed, ReturnData: receipt.ReturnData})
}

// ownerAddressCommand builds a command relaying an owner only action that takes one address.
func ownerAddressCommand(name, flagName, usage string, action func(common.Address) registry.Action) *cli.Command {
	flag := addressFlag(flagName, "address argument of "+name)
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{flag, flagActionGas},
		Action: func(cCtx *cli.Context) error {
			value := cCtx.String(flag.Name)
			if !common.IsHexAddress(value) {
				return fmt.Errorf("invalid --%s %q", flag.Name, value)
			}
			return relayOwner(cCtx, action(common.HexToAddress(value)))
		},
	}
}

func relayOwner(cCtx *cli.Context, action registry.Action) error {
	c, err := connect(cCtx, true)
	if err != nil {
		return err
	}
	receipt, err := c.RelayOwnerAction(cCtx.Context, action, cCtx.Uint64(flagActionGas.Name))
	if err != nil {
		return err
	}
	c.Log.Info("Owner request relayed", slog.String("method", action.Method), slog.String("tx", receipt.TxHash.Hex()))
	return printJSON(os.Stdout, api.RelayResponse{TxHash: receipt.TxHash, GasUsed: receipt.GasUsed, ReturnData: receipt.ReturnData})
}
