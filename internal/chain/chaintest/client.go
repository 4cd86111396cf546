// Package chaintest provides a testify mock of the chain client for service
// tests across packages.
package chaintest

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"

	"carbonchain/internal/chain"
)

type MockClient struct {
	mock.Mock
}

var _ chain.Client = (*MockClient)(nil)

func (m *MockClient) MintCredit(ctx context.Context, recipient string, amount int64, metadataURI string) (*chain.MintResult, error) {
	args := m.Called(ctx, recipient, amount, metadataURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.MintResult), args.Error(1)
}

func (m *MockClient) ListCredit(ctx context.Context, tokenID string, priceWei *big.Int) (string, error) {
	args := m.Called(ctx, tokenID, priceWei)
	return args.String(0), args.Error(1)
}

func (m *MockClient) BuyCredit(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) DelistCredit(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) RetireCredit(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) RateSeller(ctx context.Context, seller string, rating uint8) (string, error) {
	args := m.Called(ctx, seller, rating)
	return args.String(0), args.Error(1)
}

func (m *MockClient) SendPayment(ctx context.Context, to string, amountWei *big.Int) (string, error) {
	args := m.Called(ctx, to, amountWei)
	return args.String(0), args.Error(1)
}

func (m *MockClient) BalanceOf(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClient) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockClient) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) TokenURI(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) GetListingPrice(ctx context.Context, tokenID string) (*big.Int, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockClient) IsListed(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) IsRetired(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) GetSellerRating(ctx context.Context, seller string) (*chain.SellerRating, error) {
	args := m.Called(ctx, seller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.SellerRating), args.Error(1)
}

func (m *MockClient) IsVerifier(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}
