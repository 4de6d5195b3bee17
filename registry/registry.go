package registry

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

type stateKey struct {
	identity string
	author   common.Address
}

// Registry binds identities to wallets and keeps per-author state pointers.
// Its state is only mutated through ledger journaled writes, so every entry
// point either applies completely or not at all.
type Registry struct {
	address common.Address
	config  interfaces.AdminConfig

	primaryWallet    map[string]common.Address
	secondaryWallets map[string][]common.Address
	walletIdentity   map[common.Address]string
	stateData        map[stateKey]string

	log *slog.Logger
}

// New creates a registry deployed at address. The config carries the
// constructor parameters, its Owner is the only account allowed to change it.
func New(address common.Address, config interfaces.AdminConfig, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		address:          address,
		config:           config,
		primaryWallet:    make(map[string]common.Address),
		secondaryWallets: make(map[string][]common.Address),
		walletIdentity:   make(map[common.Address]string),
		stateData:        make(map[stateKey]string),
		log:              log,
	}
}

// Address returns the address the registry is deployed at.
func (r *Registry) Address() common.Address {
	return r.address
}

// Call dispatches ABI encoded calls. The acting wallet is resolved once here,
// from the forwarding suffix when the trusted forwarder is the caller.
func (r *Registry) Call(env *ledger.Env, input []byte) ([]byte, error) {
	sender, payload, _ := forwarder.ResolveSender(r.config.TrustedForwarder, env.Caller(), input)

	method, args, err := ledger.DecodeCall(ABI, payload)
	if err != nil {
		return nil, err
	}

	if method.IsConstant() {
		return r.view(method, args)
	}

	switch method.Name {
	case "setPlayerPrimaryWallet":
		return nil, r.setPrimaryWallet(env, sender, args[0].(string), args[1].([]byte))
	case "setPlayerSecondaryWallet":
		return nil, r.addSecondaryWallet(env, sender, args[0].(string), args[1].([]byte))
	case "removePlayerSecondaryWallet":
		return nil, r.removeSecondaryWallet(env, sender, args[0].(string))
	case "setPlayerStateData":
		return nil, r.setStateData(env, sender, args[0].(string), args[1].(string))
	case "removePlayerStateData":
		return nil, r.removeStateData(env, sender, args[0].(string))

	case "setPlayerPrimaryWalletGasless":
		return nil, r.gasless(env, sender, args[2:], func() error {
			return r.setPrimaryWallet(env, sender, args[0].(string), args[1].([]byte))
		})
	case "setPlayerSecondaryWalletGasless":
		return nil, r.gasless(env, sender, args[2:], func() error {
			return r.addSecondaryWallet(env, sender, args[0].(string), args[1].([]byte))
		})
	case "removePlayerSecondaryWalletGasless":
		return nil, r.gasless(env, sender, args[1:], func() error {
			return r.removeSecondaryWallet(env, sender, args[0].(string))
		})
	case "setPlayerStateDataGasless":
		return nil, r.gasless(env, sender, args[2:], func() error {
			return r.setStateData(env, sender, args[0].(string), args[1].(string))
		})
	case "removePlayerStateDataGasless":
		return nil, r.gasless(env, sender, args[1:], func() error {
			return r.removeStateData(env, sender, args[0].(string))
		})

	case "setConvenienceGateway":
		return nil, r.setConvenienceGateway(env, sender, args[0].(string))
	case "setPrimarySigner":
		return nil, r.setPrimarySigner(env, sender, args[0].(common.Address))
	case "setTrustedForwarder":
		return nil, r.setTrustedForwarder(env, sender, args[0].(common.Address))
	case "setFeeToken":
		return nil, r.setFeeToken(env, sender, args[0].(common.Address))
	case "transferOwnership":
		return nil, r.transferOwnership(env, sender, args[0].(common.Address))
	}

	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method.Name)
}

func (r *Registry) view(method *abi.Method, args []interface{}) ([]byte, error) {
	switch method.Name {
	case "getPlayerPrimaryWallet":
		wallet, err := r.playerPrimaryWallet(args[0].(string))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(wallet)

	case "getPlayerSecondaryWallets":
		wallets, err := r.playerSecondaryWallets(args[0].(string))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(wallets)

	case "assignedWalletPlayer":
		return method.Outputs.Pack(r.assignedWalletPlayer(args[0].(common.Address)))

	case "getPlayerStateData":
		data, err := r.playerStateData(args[0].(string), args[1].(common.Address), args[2].(bool))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(data)

	case "getPlayerStateDataBatch":
		data, err := r.playerStateDataBatch(args[0].([]string), args[1].(common.Address), args[2].(bool), args[3].(bool))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(data)

	case "adminConfig":
		return method.Outputs.Pack(r.config)
	case "owner":
		return method.Outputs.Pack(r.config.Owner)
	case "convenienceGateway":
		return method.Outputs.Pack(r.config.ConvenienceGateway)
	case "primarySigner":
		return method.Outputs.Pack(r.config.PrimarySigner)
	case "trustedForwarder":
		return method.Outputs.Pack(r.config.TrustedForwarder)
	case "feeToken":
		return method.Outputs.Pack(r.config.FeeToken)
	case "isTrustedForwarder":
		return method.Outputs.Pack(r.isTrustedForwarder(args[0].(common.Address)))
	}

	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method.Name)
}

func (r *Registry) isTrustedForwarder(addr common.Address) bool {
	return addr != (common.Address{}) && addr == r.config.TrustedForwarder
}

// gasless runs action on behalf of the forwarded sender and settles the fee
// carried in feeArgs within the same call.
func (r *Registry) gasless(env *ledger.Env, sender common.Address, feeArgs []interface{}, action func() error) error {
	if !r.isTrustedForwarder(env.Caller()) {
		return fmt.Errorf("%w: gasless entry points are only callable through the trusted forwarder, caller %s", interfaces.ErrUnauthorized, env.Caller().Hex())
	}

	feeRequest := *abi.ConvertType(feeArgs[0], new(interfaces.ForwardRequest)).(*interfaces.ForwardRequest)
	feeSignature := feeArgs[1].([]byte)

	if err := action(); err != nil {
		return err
	}
	return r.settleFee(env, sender, feeRequest.Normalize(), feeSignature)
}
