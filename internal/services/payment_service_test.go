package services

import (
	"context"
	"testing"
	"time"

	gateway "github.com/nimasrn/payment-gateway/internal/gateways"
	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProcessorGateway struct {
	mock.Mock
}

func (m *MockProcessorGateway) CreatePaymentIntent(ctx context.Context, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) UpdatePaymentIntent(ctx context.Context, id string, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) RetrievePaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) ConfirmPaymentIntent(ctx context.Context, id string, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) CapturePaymentIntent(ctx context.Context, id string, params *gateway.CaptureParams) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) CancelPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentIntent), args.Error(1)
}

func (m *MockProcessorGateway) RetrieveCharge(ctx context.Context, id string) (*gateway.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Charge), args.Error(1)
}

func (m *MockProcessorGateway) CreateRefund(ctx context.Context, params *gateway.RefundParams) (*gateway.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Get(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestForOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestForInvoice(ctx context.Context, invoiceID int64) (*model.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Payment), args.Get(1).(int64), args.Error(2)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Get(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateCardSummary(ctx context.Context, id int64, cardType, cardNumber, cardExpires string) error {
	args := m.Called(ctx, id, cardType, cardNumber, cardExpires)
	return args.Error(0)
}

type MockCustomerResolver struct {
	mock.Mock
}

func (m *MockCustomerResolver) Resolve(ctx context.Context, contactID int64) (string, error) {
	args := m.Called(ctx, contactID)
	return args.String(0), args.Error(1)
}

type paymentServiceFixture struct {
	processor   *MockProcessorGateway
	paymentRepo *MockPaymentRepository
	orderRepo   *MockOrderRepository
	resolver    *MockCustomerResolver
	service     *PaymentService
}

func newPaymentServiceFixture() *paymentServiceFixture {
	f := &paymentServiceFixture{
		processor:   new(MockProcessorGateway),
		paymentRepo: new(MockPaymentRepository),
		orderRepo:   new(MockOrderRepository),
		resolver:    new(MockCustomerResolver),
	}
	f.service = NewPaymentService(f.processor, f.paymentRepo, f.orderRepo, f.resolver, nil, PaymentConfig{
		Currency: "gbp",
	})
	return f
}

func int64Ptr(i int64) *int64 {
	return &i
}

func TestPaymentService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("new order inserts one register row", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)
		f.resolver.On("Resolve", ctx, int64(5)).Return("cus_123", nil)

		f.processor.On("CreatePaymentIntent", ctx, mock.MatchedBy(func(p *gateway.PaymentIntentParams) bool {
			return p.Amount == 4999 &&
				p.Currency == "gbp" &&
				p.CaptureMethod == "automatic" &&
				p.Customer == "cus_123" &&
				p.Metadata["order_id"] == "7"
		})).Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.TransactionType == model.TypeRegister &&
				p.Reference == "pi_123" &&
				p.Status == "requires_payment_method" &&
				p.Amount == 49.99 &&
				*p.OrderID == 7
		})).Return(&model.Payment{ID: 1}, nil)

		ok, errs := f.service.Register(ctx, model.RegisterRequest{
			ContactID: int64Ptr(5),
			OrderID:   int64Ptr(7),
			Total:     49.99,
		})

		assert.True(t, ok)
		assert.Empty(t, errs)
		f.processor.AssertExpectations(t)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("pending register row is re-used, not duplicated", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(&model.Payment{
			ID:              3,
			TransactionType: model.TypeRegister,
			Provider:        model.ProviderStripe,
			Reference:       "pi_existing",
			Amount:          40.00,
			OrderID:         int64Ptr(7),
		}, nil)

		// row already holds a reference, so the intent is retrieved
		f.processor.On("RetrievePaymentIntent", ctx, "pi_existing").
			Return(&gateway.PaymentIntent{ID: "pi_existing", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Update", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.ID == 3 && p.Reference == "pi_existing" && p.Amount == 49.99
		})).Return(nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{
			OrderID: int64Ptr(7),
			Total:   49.99,
		})

		assert.True(t, ok)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.processor.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
	})

	t.Run("register after authorise creates a fresh row", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(&model.Payment{
			ID:              4,
			TransactionType: model.TypeAuthorise,
			Reference:       "pi_old",
		}, nil)

		f.processor.On("CreatePaymentIntent", ctx, mock.Anything).
			Return(&gateway.PaymentIntent{ID: "pi_new", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.ID == 0 && p.Reference == "pi_new"
		})).Return(&model.Payment{ID: 5}, nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{
			OrderID: int64Ptr(7),
			Total:   49.99,
		})

		assert.True(t, ok)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("processor error still persists an error row", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)
		f.processor.On("CreatePaymentIntent", ctx, mock.Anything).
			Return(nil, &gateway.Error{Type: "card_error", Code: "card_declined", Message: "Your card was declined."})

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Status == model.StatusError &&
				p.StatusDetail == "Your card was declined." &&
				p.Amount == 49.99
		})).Return(&model.Payment{ID: 1}, nil)

		ok, errs := f.service.Register(ctx, model.RegisterRequest{
			OrderID: int64Ptr(7),
			Total:   49.99,
		})

		assert.False(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "Your card was declined.", errs[0])
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("customer resolution failure does not block registration", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)
		f.resolver.On("Resolve", ctx, int64(5)).Return("", assert.AnError)

		f.processor.On("CreatePaymentIntent", ctx, mock.MatchedBy(func(p *gateway.PaymentIntentParams) bool {
			return p.Customer == ""
		})).Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.Payment{ID: 1}, nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{
			ContactID: int64Ptr(5),
			OrderID:   int64Ptr(7),
			Total:     49.99,
		})

		assert.True(t, ok)
		f.processor.AssertExpectations(t)
	})

	t.Run("moto with payment method confirms immediately", func(t *testing.T) {
		f := newPaymentServiceFixture()
		f.service = NewPaymentService(f.processor, f.paymentRepo, f.orderRepo, f.resolver, nil, PaymentConfig{
			Currency: "gbp",
			Moto:     true,
		})

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)

		f.processor.On("CreatePaymentIntent", ctx, mock.MatchedBy(func(p *gateway.PaymentIntentParams) bool {
			return p.Confirm &&
				p.Moto &&
				p.PaymentMethod == "pm_123" &&
				p.SetupFutureUsage == "off_session" &&
				len(p.PaymentMethodTypes) == 1 && p.PaymentMethodTypes[0] == "card"
		})).Return(&gateway.PaymentIntent{ID: "pi_123", Status: "succeeded"}, nil)

		f.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.Payment{ID: 1}, nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{
			OrderID:         int64Ptr(7),
			Total:           49.99,
			PaymentMethodID: "pm_123",
		})

		assert.True(t, ok)
		f.processor.AssertExpectations(t)
	})

	t.Run("moto without payment method still requests off-session reuse", func(t *testing.T) {
		f := newPaymentServiceFixture()
		f.service = NewPaymentService(f.processor, f.paymentRepo, f.orderRepo, f.resolver, nil, PaymentConfig{
			Currency: "gbp",
			Moto:     true,
		})

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)

		f.processor.On("CreatePaymentIntent", ctx, mock.MatchedBy(func(p *gateway.PaymentIntentParams) bool {
			return !p.Confirm &&
				p.Moto &&
				p.PaymentMethod == "" &&
				p.SetupFutureUsage == "off_session" &&
				len(p.PaymentMethodTypes) == 1 && p.PaymentMethodTypes[0] == "card"
		})).Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.Payment{ID: 1}, nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{
			OrderID: int64Ptr(7),
			Total:   49.99,
		})

		assert.True(t, ok)
		f.processor.AssertExpectations(t)
	})

	t.Run("invalid request fails without side effects", func(t *testing.T) {
		f := newPaymentServiceFixture()

		ok, errs := f.service.Register(ctx, model.RegisterRequest{Total: -1})

		assert.False(t, ok)
		assert.NotEmpty(t, errs)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Authorise(t *testing.T) {
	ctx := context.Background()

	t.Run("missing prior row is a precondition failure", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(99)).Return(nil, repository.ErrPaymentNotFound)

		ok, errs := f.service.Authorise(ctx, 99, "", "")

		assert.False(t, ok)
		assert.Nil(t, errs)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.processor.AssertNotCalled(t, "RetrievePaymentIntent", mock.Anything, mock.Anything)
	})

	t.Run("confirm with payment method inserts authorised row", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:              1,
			TransactionType: model.TypeRegister,
			Provider:        model.ProviderStripe,
			Reference:       "pi_123",
			OrderID:         int64Ptr(7),
			Moto:            true,
		}, nil)

		f.processor.On("UpdatePaymentIntent", ctx, "pi_123", mock.MatchedBy(func(p *gateway.PaymentIntentParams) bool {
			return p.PaymentMethod == "pm_123"
		})).Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_confirmation"}, nil)

		f.processor.On("ConfirmPaymentIntent", ctx, "pi_123", (*gateway.PaymentIntentParams)(nil)).
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture", Amount: 4999}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.TransactionType == model.TypeAuthorise &&
				p.Status == "requires_capture" &&
				p.Amount == 49.99 &&
				*p.OrderID == 7 &&
				p.Moto
		})).Return(&model.Payment{ID: 2}, nil)

		ok, errs := f.service.Authorise(ctx, 1, "pm_123", "")

		assert.True(t, ok)
		assert.Empty(t, errs)
		f.processor.AssertExpectations(t)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("without params only retrieves intent state", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:        1,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
		}, nil)

		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture", Amount: 4999}, nil)

		f.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.Payment{ID: 2}, nil)

		ok, _ := f.service.Authorise(ctx, 1, "", "")

		assert.True(t, ok)
		f.processor.AssertNotCalled(t, "UpdatePaymentIntent", mock.Anything, mock.Anything, mock.Anything)
		f.processor.AssertNotCalled(t, "ConfirmPaymentIntent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unexpected status fails with the fallback message", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:        1,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
		}, nil)

		// intent answered fine but never reached an accepted status, so
		// there is no processor message to relay
		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.Anything).Return(&model.Payment{ID: 2}, nil)

		ok, errs := f.service.Authorise(ctx, 1, "", "")

		assert.False(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "There was a problem processing your payment. Please try again.", errs[0])
	})
}

func TestPaymentService_Capture(t *testing.T) {
	ctx := context.Background()

	t.Run("records charge id and processor-confirmed amount", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(2)).Return(&model.Payment{
			ID:        2,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
			OrderID:   int64Ptr(7),
		}, nil)

		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture"}, nil)

		// partial capture upstream: amount_received < requested
		f.processor.On("CapturePaymentIntent", ctx, "pi_123", mock.MatchedBy(func(p *gateway.CaptureParams) bool {
			return p.AmountToCapture == 2000
		})).Return(&gateway.PaymentIntent{
			ID:             "pi_123",
			Status:         "succeeded",
			Amount:         2000,
			AmountReceived: 1500,
			LatestCharge:   "ch_123",
		}, nil)

		f.processor.On("RetrieveCharge", ctx, "ch_123").Return(&gateway.Charge{ID: "ch_123", Status: "succeeded"}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.TransactionType == model.TypeCapture &&
				p.Reference == "ch_123" &&
				p.Amount == 15.00 &&
				p.FraudScreened
		})).Return(&model.Payment{ID: 3}, nil)

		ok, _ := f.service.Capture(ctx, 2, 20.00)

		assert.True(t, ok)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("prior row without reference is a precondition failure", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(2)).Return(&model.Payment{ID: 2}, nil)

		ok, errs := f.service.Capture(ctx, 2, 20.00)

		assert.False(t, ok)
		assert.Nil(t, errs)
		f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("stores refunded amount negated", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(3)).Return(&model.Payment{
			ID:        3,
			Provider:  model.ProviderStripe,
			Reference: "ch_123",
			OrderID:   int64Ptr(7),
		}, nil)

		f.processor.On("CreateRefund", ctx, mock.MatchedBy(func(p *gateway.RefundParams) bool {
			return p.Charge == "ch_123" && p.Amount == 2000
		})).Return(&gateway.Refund{ID: "re_123", Status: "pending", Amount: 2000}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.TransactionType == model.TypeRefund &&
				p.Reference == "re_123" &&
				p.Status == "pending" &&
				p.Amount == -20.00 &&
				*p.OrderID == 7
		})).Return(&model.Payment{ID: 4}, nil)

		ok, _ := f.service.Refund(ctx, 3, 20.00)

		assert.True(t, ok)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("processor error yields an error row and message", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(3)).Return(&model.Payment{
			ID:        3,
			Provider:  model.ProviderStripe,
			Reference: "ch_123",
		}, nil)

		f.processor.On("CreateRefund", ctx, mock.Anything).
			Return(nil, &gateway.Error{Type: "invalid_request_error", Code: "charge_already_refunded", Message: "Charge ch_123 has already been refunded."})

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Status == model.StatusError && p.StatusDetail != ""
		})).Return(&model.Payment{ID: 4}, nil)

		ok, errs := f.service.Refund(ctx, 3, 20.00)

		assert.False(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "Charge ch_123 has already been refunded.", errs[0])
	})
}

func TestPaymentService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("flags prior row and inserts cancel row", func(t *testing.T) {
		f := newPaymentServiceFixture()

		prior := &model.Payment{
			ID:        2,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
			Amount:    49.99,
			OrderID:   int64Ptr(7),
		}
		f.paymentRepo.On("Get", ctx, int64(2)).Return(prior, nil)

		f.processor.On("CancelPaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "canceled"}, nil)

		f.paymentRepo.On("Update", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.ID == 2 && p.Cancelled
		})).Return(nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.TransactionType == model.TypeCancel &&
				p.Status == "canceled" &&
				p.Amount == 49.99 &&
				*p.OrderID == 7
		})).Return(&model.Payment{ID: 5}, nil)

		ok, _ := f.service.Cancel(ctx, 2)

		assert.True(t, ok)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("remote failure leaves prior row unflagged", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(2)).Return(&model.Payment{
			ID:        2,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
		}, nil)

		f.processor.On("CancelPaymentIntent", ctx, "pi_123").
			Return(nil, &gateway.Error{Message: "No such payment intent."})

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Status == model.StatusError
		})).Return(&model.Payment{ID: 5}, nil)

		ok, _ := f.service.Cancel(ctx, 2)

		assert.False(t, ok)
		f.paymentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Void(t *testing.T) {
	f := newPaymentServiceFixture()

	ok, errs := f.service.Void(context.Background(), 1)

	assert.False(t, ok)
	assert.Nil(t, errs)
	f.paymentRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_Enrichment(t *testing.T) {
	ctx := context.Background()

	charge := func() *gateway.Charge {
		pass := "pass"
		return &gateway.Charge{
			ID:     "ch_123",
			Status: "succeeded",
			Outcome: &gateway.ChargeOutcome{
				RiskLevel: "normal",
				RiskScore: 23,
			},
			PaymentMethodDetails: &gateway.PaymentMethodDetails{
				Type: "card",
				Card: &gateway.CardDetails{
					Brand:         "american express",
					Last4:         "0005",
					ExpMonth:      3,
					ExpYear:       2028,
					CaptureBefore: time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC).Unix(),
					Checks: &gateway.CardChecks{
						AddressLine1Check: &pass,
						CVCCheck:          &pass,
					},
					ThreeDSecure: &gateway.ThreeDSecureDetails{Result: "authenticated"},
				},
			},
		}
	}

	t.Run("authorise stores card details and hold expiry", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:        1,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
			OrderID:   int64Ptr(7),
		}, nil)

		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture", Amount: 4999, LatestCharge: "ch_123"}, nil)
		f.processor.On("RetrieveCharge", ctx, "ch_123").Return(charge(), nil)

		f.orderRepo.On("UpdateCardSummary", ctx, int64(7), "American Express", "0005", "03/28").Return(nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.FraudScreened &&
				*p.FraudTotalScore == 23 &&
				*p.FraudScreenResult == "normal" &&
				*p.AddressResult == "pass" &&
				p.PostcodeResult == nil &&
				*p.CV2Result == "pass" &&
				*p.CardType == "American Express" &&
				*p.CardNumber == "0005" &&
				*p.CardExpires == "03/28" &&
				p.ThreeDSecure &&
				p.ExpiresOn != nil
		})).Return(&model.Payment{ID: 2}, nil)

		ok, _ := f.service.Authorise(ctx, 1, "", "")

		assert.True(t, ok)
		f.orderRepo.AssertExpectations(t)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("capture does not store hold expiry", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:        1,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
		}, nil)

		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture"}, nil)
		f.processor.On("CapturePaymentIntent", ctx, "pi_123", mock.Anything).
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "succeeded", AmountReceived: 4999, LatestCharge: "ch_123"}, nil)
		f.processor.On("RetrieveCharge", ctx, "ch_123").Return(charge(), nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.ExpiresOn == nil && *p.CardType == "American Express"
		})).Return(&model.Payment{ID: 2}, nil)

		ok, _ := f.service.Capture(ctx, 1, 49.99)

		assert.True(t, ok)
		f.paymentRepo.AssertExpectations(t)
	})

	t.Run("enrichment skipped without a latest charge", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("GetLatestForOrder", ctx, int64(7)).Return(nil, repository.ErrPaymentNotFound)
		f.processor.On("CreatePaymentIntent", ctx, mock.Anything).
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_payment_method"}, nil)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return !p.FraudScreened && p.CardType == nil
		})).Return(&model.Payment{ID: 1}, nil)

		ok, _ := f.service.Register(ctx, model.RegisterRequest{OrderID: int64Ptr(7), Total: 49.99})

		assert.True(t, ok)
		f.processor.AssertNotCalled(t, "RetrieveCharge", mock.Anything, mock.Anything)
	})

	t.Run("charge lookup failure leaves row unenriched but successful", func(t *testing.T) {
		f := newPaymentServiceFixture()

		f.paymentRepo.On("Get", ctx, int64(1)).Return(&model.Payment{
			ID:        1,
			Provider:  model.ProviderStripe,
			Reference: "pi_123",
		}, nil)

		f.processor.On("RetrievePaymentIntent", ctx, "pi_123").
			Return(&gateway.PaymentIntent{ID: "pi_123", Status: "requires_capture", Amount: 4999, LatestCharge: "ch_123"}, nil)
		f.processor.On("RetrieveCharge", ctx, "ch_123").Return(nil, assert.AnError)

		f.paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return !p.FraudScreened
		})).Return(&model.Payment{ID: 2}, nil)

		ok, _ := f.service.Authorise(ctx, 1, "", "")

		assert.True(t, ok)
	})
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Visa", titleCase("visa"))
	assert.Equal(t, "American Express", titleCase("american express"))
	assert.Equal(t, "", titleCase(""))
}
