package token

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockToken mocks the FeeToken interface
type MockToken struct {
	mock.Mock
}

// BalanceOf mocks the BalanceOf method
func (m *MockToken) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}
