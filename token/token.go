// Package token implements the fungible fee token relayers are paid in.
// Transfers honour the trusted forwarder, so a signed forward request
// can move tokens on behalf of its signer.
package token

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// Decimals of the token amounts.
const Decimals = 18

// Config holds the constructor parameters of the token.
type Config struct {
	Name             string
	Symbol           string
	Owner            common.Address
	TrustedForwarder common.Address
}

// Token keeps balances of the fee token.
type Token struct {
	address common.Address
	config  Config

	balances    map[common.Address]*big.Int
	totalSupply *big.Int

	log *slog.Logger
}

func New(address common.Address, config Config, log *slog.Logger) *Token {
	if log == nil {
		log = slog.Default()
	}
	return &Token{
		address:     address,
		config:      config,
		balances:    make(map[common.Address]*big.Int),
		totalSupply: new(big.Int),
		log:         log,
	}
}

func (t *Token) Address() common.Address {
	return t.address
}

// Call dispatches ABI encoded calls to the token.
func (t *Token) Call(env *ledger.Env, input []byte) ([]byte, error) {
	sender, payload, _ := forwarder.ResolveSender(t.config.TrustedForwarder, env.Caller(), input)

	method, args, err := ledger.DecodeCall(ABI, payload)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "name":
		return method.Outputs.Pack(t.config.Name)
	case "symbol":
		return method.Outputs.Pack(t.config.Symbol)
	case "decimals":
		return method.Outputs.Pack(uint8(Decimals))
	case "totalSupply":
		return method.Outputs.Pack(new(big.Int).Set(t.totalSupply))
	case "balanceOf":
		return method.Outputs.Pack(t.balanceOf(args[0].(common.Address)))
	case "isTrustedForwarder":
		addr := args[0].(common.Address)
		return method.Outputs.Pack(addr != (common.Address{}) && addr == t.config.TrustedForwarder)

	case "transfer":
		if err := t.transfer(env, sender, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)

	case "mint":
		if sender != t.config.Owner {
			return nil, fmt.Errorf("%w: %s is not the token owner", interfaces.ErrUnauthorized, sender.Hex())
		}
		if err := t.mint(env, args[0].(common.Address), args[1].(*big.Int)); err != nil {
			return nil, err
		}
		return method.Outputs.Pack()
	}

	return nil, fmt.Errorf("%w: %s", interfaces.ErrUnknownMethod, method.Name)
}

func (t *Token) balanceOf(account common.Address) *big.Int {
	if balance, ok := t.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

func (t *Token) transfer(env *ledger.Env, from, to common.Address, amount *big.Int) error {
	fromBalance := t.balanceOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, transfer of %s", interfaces.ErrInsufficientBalance, from.Hex(), fromBalance, amount)
	}
	if from == to {
		return nil
	}

	if err := ledger.Put(env, t.balances, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := ledger.Put(env, t.balances, to, new(big.Int).Add(t.balanceOf(to), amount)); err != nil {
		return err
	}

	t.log.Debug("Token transfer",
		slog.String("from", from.Hex()),
		slog.String("to", to.Hex()),
		slog.String("amount", amount.String()))
	return nil
}

func (t *Token) mint(env *ledger.Env, to common.Address, amount *big.Int) error {
	if err := ledger.Put(env, t.balances, to, new(big.Int).Add(t.balanceOf(to), amount)); err != nil {
		return err
	}
	return ledger.Assign(env, &t.totalSupply, new(big.Int).Add(t.totalSupply, amount))
}
