package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/lendstack/lending-engine/pkg/errors"
)

// stubGateway scripts CreatePaymentLink responses and records calls.
type stubGateway struct {
	SubscriptionGateway
	calls      int
	references []string
	respond    func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error)
}

func (s *stubGateway) CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
	s.calls++
	s.references = append(s.references, req.ReferenceID)
	return s.respond(s.calls, req)
}

func TestPaymentLinkCreator_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubGateway{
		respond: func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
			return &PaymentLink{ID: "plink_1", ReferenceID: req.ReferenceID, ShortURL: "https://pay.test/abc", Status: "created"}, nil
		},
	}

	creator := NewPaymentLinkCreator(stub, 3)
	link, err := creator.Create(context.Background(), "sub_123", decimal.NewFromInt(45000), "INR", "foreclosure", "")

	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "plink_1", link.ID)
	assert.Contains(t, link.ReferenceID, "sub_123+")
}

func TestPaymentLinkCreator_RetriesOnlyReferenceCollisions(t *testing.T) {
	stub := &stubGateway{
		respond: func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
			if attempt < 3 {
				return nil, fmt.Errorf("%w: Reference Id already exists", customError.ErrReferenceExists)
			}
			return &PaymentLink{ID: "plink_3", ReferenceID: req.ReferenceID, Status: "created"}, nil
		},
	}

	creator := NewPaymentLinkCreator(stub, 3)

	link, err := creator.Create(context.Background(), "sub_123", decimal.NewFromInt(8885), "INR", "prepayment", "")

	require.NoError(t, err)
	assert.Equal(t, 3, stub.calls)
	assert.Equal(t, "plink_3", link.ID)
	assert.NotEqual(t, stub.references[0], stub.references[1])
}

func TestPaymentLinkCreator_RegeneratesWithinSameMillisecond(t *testing.T) {
	stub := &stubGateway{
		respond: func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
			if attempt < 3 {
				return nil, fmt.Errorf("%w: Reference Id already exists", customError.ErrReferenceExists)
			}
			return &PaymentLink{ID: "plink_3", ReferenceID: req.ReferenceID, Status: "created"}, nil
		},
	}

	creator := NewPaymentLinkCreator(stub, 3)
	// Freeze the clock: a fast-failing gateway answers collisions inside one
	// millisecond, and the retried reference must still change.
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	creator.now = func() time.Time { return frozen }

	link, err := creator.Create(context.Background(), "sub_123", decimal.NewFromInt(8885), "INR", "prepayment", "")

	require.NoError(t, err)
	require.Len(t, stub.references, 3)
	assert.NotEqual(t, stub.references[0], stub.references[1])
	assert.NotEqual(t, stub.references[1], stub.references[2])
	assert.NotEqual(t, stub.references[0], stub.references[2])
	assert.Equal(t, stub.references[2], link.ReferenceID)
}

func TestPaymentLinkCreator_ExhaustsAfterThreeAttempts(t *testing.T) {
	stub := &stubGateway{
		respond: func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
			return nil, fmt.Errorf("%w: Reference Id already exists", customError.ErrReferenceExists)
		},
	}

	creator := NewPaymentLinkCreator(stub, 3)
	link, err := creator.Create(context.Background(), "sub_123", decimal.NewFromInt(100), "INR", "foreclosure", "")

	assert.Nil(t, link)
	assert.Equal(t, 3, stub.calls, "must stop after exactly 3 attempts")
	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrReferenceExhausted),
		"want distinct exhaustion error, got %v", err)
}

func TestPaymentLinkCreator_OtherErrorsPropagateImmediately(t *testing.T) {
	gatewayDown := errors.New("gateway timeout")
	stub := &stubGateway{
		respond: func(attempt int, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
			return nil, gatewayDown
		},
	}

	creator := NewPaymentLinkCreator(stub, 3)
	link, err := creator.Create(context.Background(), "sub_123", decimal.NewFromInt(100), "INR", "foreclosure", "")

	assert.Nil(t, link)
	assert.Equal(t, 1, stub.calls, "non-collision errors are not retried")
	assert.True(t, errors.Is(err, gatewayDown))
	assert.False(t, errors.Is(err, customError.ErrReferenceExhausted))
}
