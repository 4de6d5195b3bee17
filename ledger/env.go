package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Env is the execution context of a single call frame.
type Env struct {
	ledger *Ledger

	origin  common.Address
	caller  common.Address
	address common.Address
	value   *big.Int
	depth   int

	gasLimit uint64
	gasUsed  uint64
}

// Origin is the account that signed the top-level message.
func (e *Env) Origin() common.Address { return e.origin }

// Caller is the immediate caller of the current frame.
func (e *Env) Caller() common.Address { return e.caller }

// Address is the contract being executed.
func (e *Env) Address() common.Address { return e.address }

// Value returns a copy of the native value sent with the call.
func (e *Env) Value() *big.Int { return new(big.Int).Set(e.value) }

// Depth is the nesting level, zero for the top-level frame.
func (e *Env) Depth() int { return e.depth }

// ChainID is the chain id of the ledger the frame runs on.
func (e *Env) ChainID() *big.Int { return e.ledger.ChainID() }

// GasLeft reports the remaining budget of the frame.
func (e *Env) GasLeft() uint64 {
	return e.gasLimit - e.gasUsed
}

// GasUsed reports how much of the budget has been consumed.
func (e *Env) GasUsed() uint64 {
	return e.gasUsed
}

// UseGas charges amount against the frame budget.
func (e *Env) UseGas(amount uint64) error {
	if left := e.GasLeft(); amount > left {
		e.gasUsed = e.gasLimit
		return fmt.Errorf("%w: need %d, have %d", ErrOutOfGas, amount, left)
	}
	e.gasUsed += amount
	return nil
}

// Call invokes another contract with exactly gas units of budget taken from this frame.
// A failing sub-call reverts its own writes and returns the error; the current frame
// decides whether to propagate it. Calls to addresses without code succeed.
func (e *Env) Call(to common.Address, input []byte, value *big.Int, gas uint64) ([]byte, error) {
	if gas > e.GasLeft() {
		return nil, fmt.Errorf("%w: call requires %d, %d left", ErrOutOfGas, gas, e.GasLeft())
	}
	if value == nil {
		value = new(big.Int)
	}

	child := &Env{
		ledger:   e.ledger,
		origin:   e.origin,
		caller:   e.address,
		address:  to,
		value:    value,
		depth:    e.depth + 1,
		gasLimit: gas,
	}

	ret, err := e.ledger.run(child, input)
	e.gasUsed += child.gasUsed
	return ret, err
}
