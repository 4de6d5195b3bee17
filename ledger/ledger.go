// Package ledger provides the in-process execution collaborator the registry
// contracts run on: atomic, totally ordered, single-writer execution of calls
// with nested rollback frames and gas budget metering.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/interfaces"
)

// Gas schedule.
const (
	TxGas           uint64 = 21000
	CallGas         uint64 = 700
	StorageWriteGas uint64 = 5000

	// DefaultGasLimit is used for messages that do not specify a limit.
	DefaultGasLimit uint64 = 10_000_000

	// MaxCallDepth bounds nested calls.
	MaxCallDepth = 64
)

var (
	// ErrOutOfGas is returned when a call frame exhausts its gas budget.
	ErrOutOfGas = errors.New("out of gas")

	// ErrCallDepth is returned when nested calls exceed MaxCallDepth.
	ErrCallDepth = errors.New("max call depth exceeded")

	// ErrContractExists is returned when deploying to an occupied address.
	ErrContractExists = errors.New("contract already deployed at address")
)

// Contract is a module whose state lives on the ledger.
// Call receives the raw call data and must only mutate state through Put, Delete and Assign.
type Contract interface {
	Call(env *Env, input []byte) ([]byte, error)
}

// Message is a top-level call submitted to the ledger.
type Message struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   uint64
	Data  []byte
}

// Ledger executes messages against deployed contracts one at a time.
// Every top-level call either commits all of its effects or none of them.
type Ledger struct {
	mu sync.Mutex

	chainID   *big.Int
	contracts map[common.Address]Contract
	balances  map[common.Address]*big.Int
	txNonces  map[common.Address]uint64
	journal   journal
	log       *slog.Logger
}

// New creates an empty ledger for the given chain id.
func New(chainID *big.Int, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}

	return &Ledger{
		chainID:   new(big.Int).Set(chainID),
		contracts: make(map[common.Address]Contract),
		balances:  make(map[common.Address]*big.Int),
		txNonces:  make(map[common.Address]uint64),
		log:       log,
	}
}

// ChainID returns the chain id signatures are domain separated with.
func (l *Ledger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainID)
}

// Deploy instantiates a contract at the address derived from deployer and its
// transaction nonce, the same way CREATE assigns addresses.
func (l *Ledger) Deploy(deployer common.Address, constructor func(address common.Address) (Contract, error)) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.txNonces[deployer]
	address := crypto.CreateAddress(deployer, nonce)
	if _, exists := l.contracts[address]; exists {
		return common.Address{}, fmt.Errorf("%w: %s", ErrContractExists, address.Hex())
	}

	contract, err := constructor(address)
	if err != nil {
		return common.Address{}, err
	}

	l.txNonces[deployer] = nonce + 1
	l.contracts[address] = contract

	l.log.Debug("Deployed contract",
		slog.String("address", address.Hex()),
		slog.String("deployer", deployer.Hex()),
		slog.Uint64("nonce", nonce))

	return address, nil
}

// SetBalance sets the native balance of an account. Intended for genesis allocation.
func (l *Ledger) SetBalance(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = new(big.Int).Set(amount)
}

// BalanceOf returns the native balance of an account.
func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if balance, ok := l.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

// TxNonce returns the number of transactions sent by account, including deployments.
func (l *Ledger) TxNonce(account common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.txNonces[account]
}

// Transact executes msg as a transaction. On failure every effect is rolled back,
// the returned receipt is marked failed and the error is returned as well.
func (l *Ledger) Transact(ctx context.Context, msg Message) (*interfaces.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	nonce := l.txNonces[msg.From]
	l.txNonces[msg.From] = nonce + 1

	env := l.newEnv(msg)
	receipt := &interfaces.Receipt{
		TxHash: transactionHash(msg, nonce),
		From:   msg.From,
		To:     msg.To,
	}

	ret, err := l.execute(env, msg.Data)
	l.journal.reset()
	receipt.GasUsed = env.gasUsed

	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Err = err
		l.log.Debug("Transaction reverted",
			slog.String("txHash", receipt.TxHash.Hex()),
			slog.String("from", msg.From.Hex()),
			slog.String("to", msg.To.Hex()),
			slog.Uint64("gasUsed", receipt.GasUsed),
			"err", err)
		return receipt, err
	}

	receipt.Status = types.ReceiptStatusSuccessful
	receipt.ReturnData = ret
	l.log.Debug("Transaction executed",
		slog.String("txHash", receipt.TxHash.Hex()),
		slog.String("from", msg.From.Hex()),
		slog.String("to", msg.To.Hex()),
		slog.Uint64("gasUsed", receipt.GasUsed))

	return receipt, nil
}

// Call executes msg without committing any of its effects, like eth_call.
func (l *Ledger) Call(ctx context.Context, msg Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	env := l.newEnv(msg)
	snapshot := l.journal.snapshot()
	ret, err := l.run(env, msg.Data)
	l.journal.revertToSnapshot(snapshot)
	l.journal.reset()

	return ret, err
}

func (l *Ledger) newEnv(msg Message) *Env {
	gas := msg.Gas
	if gas == 0 {
		gas = DefaultGasLimit
	}
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	return &Env{
		ledger:   l,
		origin:   msg.From,
		caller:   msg.From,
		address:  msg.To,
		value:    value,
		gasLimit: gas,
	}
}

func (l *Ledger) execute(env *Env, input []byte) ([]byte, error) {
	if err := env.UseGas(TxGas); err != nil {
		return nil, fmt.Errorf("intrinsic gas too low: %w", err)
	}
	return l.run(env, input)
}

// run executes a single call frame. A failing frame reverts its own writes
// and leaves the decision to continue or fail to the caller.
func (l *Ledger) run(env *Env, input []byte) ([]byte, error) {
	if env.depth > MaxCallDepth {
		return nil, ErrCallDepth
	}
	if err := env.UseGas(CallGas); err != nil {
		return nil, err
	}

	snapshot := l.journal.snapshot()

	if err := l.transferValue(env.caller, env.address, env.value); err != nil {
		l.journal.revertToSnapshot(snapshot)
		return nil, err
	}

	contract, ok := l.contracts[env.address]
	if !ok {
		// Calls to accounts without code only move value.
		return nil, nil
	}

	ret, err := contract.Call(env, input)
	if err != nil {
		l.journal.revertToSnapshot(snapshot)
		return nil, err
	}
	return ret, nil
}

func (l *Ledger) transferValue(from, to common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	if value.Sign() < 0 {
		return fmt.Errorf("negative value %s", value)
	}

	fromBalance := l.balances[from]
	if fromBalance == nil || fromBalance.Cmp(value) < 0 {
		return fmt.Errorf("%w: %s cannot send %s", interfaces.ErrInsufficientBalance, from.Hex(), value)
	}

	toBalance := l.balances[to]
	if toBalance == nil {
		toBalance = new(big.Int)
	}

	l.setBalance(from, new(big.Int).Sub(fromBalance, value))
	l.setBalance(to, new(big.Int).Add(toBalance, value))
	return nil
}

func (l *Ledger) setBalance(account common.Address, amount *big.Int) {
	prev, existed := l.balances[account]
	l.journal.append(func() {
		if existed {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
	l.balances[account] = amount
}

func transactionHash(msg Message, nonce uint64) common.Hash {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	return crypto.Keccak256Hash(msg.From.Bytes(), nonceBytes[:], msg.To.Bytes(), common.BigToHash(value).Bytes(), msg.Data)
}
