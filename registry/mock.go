package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the IdentityRegistry interface
type MockRegistry struct {
	mock.Mock
}

// PlayerPrimaryWallet mocks the PlayerPrimaryWallet method
func (m *MockRegistry) PlayerPrimaryWallet(ctx context.Context, identity string) (common.Address, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(common.Address), args.Error(1)
}

// PlayerSecondaryWallets mocks the PlayerSecondaryWallets method
func (m *MockRegistry) PlayerSecondaryWallets(ctx context.Context, identity string) ([]common.Address, error) {
	args := m.Called(ctx, identity)
	wallets, _ := args.Get(0).([]common.Address)
	return wallets, args.Error(1)
}

// AssignedWalletPlayer mocks the AssignedWalletPlayer method
func (m *MockRegistry) AssignedWalletPlayer(ctx context.Context, wallet common.Address) (string, error) {
	args := m.Called(ctx, wallet)
	return args.String(0), args.Error(1)
}

// PlayerStateData mocks the PlayerStateData method
func (m *MockRegistry) PlayerStateData(ctx context.Context, identity string, author common.Address, includeGateway bool) (string, error) {
	args := m.Called(ctx, identity, author, includeGateway)
	return args.String(0), args.Error(1)
}

// PlayerStateDataBatch mocks the PlayerStateDataBatch method
func (m *MockRegistry) PlayerStateDataBatch(ctx context.Context, identities []string, author common.Address, includeGateway bool, allowMissing bool) ([]string, error) {
	args := m.Called(ctx, identities, author, includeGateway, allowMissing)
	data, _ := args.Get(0).([]string)
	return data, args.Error(1)
}

// Config mocks the Config method
func (m *MockRegistry) Config(ctx context.Context) (interfaces.AdminConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.AdminConfig), args.Error(1)
}
