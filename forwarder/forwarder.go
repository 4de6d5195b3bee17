// Package forwarder implements the meta-transaction forwarder: it verifies
// EIP-712 signed forward requests, enforces strict per-signer nonces and
// relays the call to its target with the signer appended to the call data.
package forwarder

import (
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/cryptoutils"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// DefaultName is the EIP-712 domain name used when none is configured.
const DefaultName = "IdentityForwarder"

// Forwarder is the trusted entry point for gas-less calls.
type Forwarder struct {
	address common.Address
	name    string
	nonces  *NonceStore
	log     *slog.Logger
}

// New creates a forwarder deployed at address with the given EIP-712 domain name.
func New(address common.Address, name string, log *slog.Logger) *Forwarder {
	if name == "" {
		name = DefaultName
	}
	if log == nil {
		log = slog.Default()
	}

	return &Forwarder{
		address: address,
		name:    name,
		nonces:  NewNonceStore(),
		log:     log,
	}
}

// Address returns the address the forwarder is deployed at.
func (f *Forwarder) Address() common.Address {
	return f.address
}

// Domain returns the EIP-712 domain requests must be signed under on chainID.
func (f *Forwarder) Domain(chainID *big.Int) interfaces.ForwarderDomain {
	return interfaces.ForwarderDomain{
		Name:              f.name,
		Version:           interfaces.ForwarderVersion,
		ChainID:           new(big.Int).Set(chainID),
		VerifyingContract: f.address,
	}
}

// Call dispatches ABI encoded calls to the forwarder.
func (f *Forwarder) Call(env *ledger.Env, input []byte) ([]byte, error) {
	method, args, err := ledger.DecodeCall(ABI, input)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "getNonce":
		from := args[0].(common.Address)
		return method.Outputs.Pack(new(big.Int).SetUint64(f.nonces.Get(from)))

	case "verify":
		req, sig := requestArgs(args)
		return method.Outputs.Pack(f.verify(env, req, sig) == nil)

	case "execute":
		req, sig := requestArgs(args)
		ret, err := f.execute(env, req, sig)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true, ret)
	}

	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method.Name)
}

func requestArgs(args []interface{}) (interfaces.ForwardRequest, []byte) {
	req := *abi.ConvertType(args[0], new(interfaces.ForwardRequest)).(*interfaces.ForwardRequest)
	return req.Normalize(), args[1].([]byte)
}

// verify checks the signature and the nonce without consuming it.
func (f *Forwarder) verify(env *ledger.Env, req interfaces.ForwardRequest, sig []byte) error {
	if err := f.verifySignature(env, req, sig); err != nil {
		return err
	}
	if !req.Nonce.IsUint64() || req.Nonce.Uint64() != f.nonces.Get(req.From) {
		return fmt.Errorf("%w: %s sent nonce %s, expected %d", interfaces.ErrNonceMismatch, req.From.Hex(), req.Nonce, f.nonces.Get(req.From))
	}
	return nil
}

func (f *Forwarder) verifySignature(env *ledger.Env, req interfaces.ForwardRequest, sig []byte) error {
	signer, err := cryptoutils.RecoverForwardRequestSigner(f.Domain(env.ChainID()), req, sig)
	if err != nil {
		return err
	}
	if signer != req.From {
		return fmt.Errorf("%w: request from %s signed by %s", interfaces.ErrInvalidSignature, req.From.Hex(), signer.Hex())
	}
	return nil
}

func (f *Forwarder) execute(env *ledger.Env, req interfaces.ForwardRequest, sig []byte) ([]byte, error) {
	if err := f.verifySignature(env, req, sig); err != nil {
		return nil, err
	}

	if !req.Nonce.IsUint64() {
		return nil, fmt.Errorf("%w: %s sent nonce %s, expected %d", interfaces.ErrNonceMismatch, req.From.Hex(), req.Nonce, f.nonces.Get(req.From))
	}
	nonce := req.Nonce.Uint64()
	if err := f.nonces.Consume(env, req.From, nonce); err != nil {
		return nil, err
	}

	gas := uint64(math.MaxUint64)
	if req.Gas.IsUint64() {
		gas = req.Gas.Uint64()
	}

	ret, err := env.Call(req.To, AppendSender(req.Data, req.From), req.Value, gas)
	if err != nil {
		f.log.Debug("Forwarded call reverted",
			slog.String("from", req.From.Hex()),
			slog.String("to", req.To.Hex()),
			slog.Uint64("nonce", nonce),
			"err", err)
		return nil, fmt.Errorf("%w: from %s nonce %d: %w", interfaces.ErrForwardedCallReverted, req.From.Hex(), nonce, err)
	}

	return ret, nil
}
