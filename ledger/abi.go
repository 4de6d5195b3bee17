package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ruteri/identity-registry/interfaces"
)

// MustParseABI parses a JSON ABI definition and panics on malformed input.
// Intended for package level contract definitions.
func MustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid abi: %v", err))
	}
	return parsed
}

// DecodeCall selects the method addressed by input and unpacks its arguments.
func DecodeCall(contractABI abi.ABI, input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, fmt.Errorf("%w: call data too short (%d bytes)", interfaces.ErrUnknownMethod, len(input))
	}

	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", interfaces.ErrUnknownMethod, input[:4])
	}

	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode %s arguments: %w", method.Name, err)
	}
	return method, args, nil
}

// UnpackResult decodes the return data of method into its Go values.
func UnpackResult(contractABI abi.ABI, method string, data []byte) ([]interface{}, error) {
	out, err := contractABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s result: %w", method, err)
	}
	return out, nil
}

// Backend is the part of the ledger contract clients need.
type Backend interface {
	Transact(ctx context.Context, msg Message) (*interfaces.Receipt, error)
	Call(ctx context.Context, msg Message) ([]byte, error)
	ChainID() *big.Int
}
