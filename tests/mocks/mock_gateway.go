package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lendstack/lending-engine/internal/gateway"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePlan(ctx context.Context, req *gateway.CreatePlanRequest) (*gateway.Plan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Plan), args.Error(1)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, req *gateway.CreateSubscriptionRequest) (*gateway.Subscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	args := m.Called(ctx, externalSubscriptionID)
	return args.Error(0)
}

func (m *MockGateway) CreatePaymentLink(ctx context.Context, req *gateway.CreatePaymentLinkRequest) (*gateway.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentLink), args.Error(1)
}

func (m *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}
