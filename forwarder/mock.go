package forwarder

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRelayer mocks the MetaTxRelayer interface
type MockRelayer struct {
	mock.Mock
}

// Relay mocks the Relay method
func (m *MockRelayer) Relay(ctx context.Context, req interfaces.ForwardRequest, signature []byte) (*interfaces.Receipt, error) {
	args := m.Called(ctx, req, signature)
	receipt, _ := args.Get(0).(*interfaces.Receipt)
	return receipt, args.Error(1)
}

// Nonce mocks the Nonce method
func (m *MockRelayer) Nonce(ctx context.Context, from common.Address) (uint64, error) {
	args := m.Called(ctx, from)
	return args.Get(0).(uint64), args.Error(1)
}

// Relayer mocks the Relayer method
func (m *MockRelayer) Relayer() common.Address {
	args := m.Called()
	return args.Get(0).(common.Address)
}

// Domain mocks the Domain method
func (m *MockRelayer) Domain() interfaces.ForwarderDomain {
	args := m.Called()
	return args.Get(0).(interfaces.ForwarderDomain)
}
