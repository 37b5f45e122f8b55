package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("create register row", func(t *testing.T) {
		p := &model.Payment{
			TransactionType: model.TypeRegister,
			Provider:        model.ProviderStripe,
			Status:          "requires_payment_method",
			Reference:       "pi_123",
			Amount:          49.99,
			OrderID:         ptr(int64(7)),
		}

		created, err := repo.Create(ctx, p)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, model.TypeRegister, created.TransactionType)
		assert.Equal(t, "pi_123", created.Reference)
		assert.Equal(t, int64(7), *created.OrderID)
		assert.Nil(t, created.InvoiceID)
	})

	t.Run("create refund row with negative amount", func(t *testing.T) {
		p := &model.Payment{
			TransactionType: model.TypeRefund,
			Provider:        model.ProviderStripe,
			Status:          "succeeded",
			Reference:       "re_123",
			Amount:          -20.00,
			OrderID:         ptr(int64(7)),
		}

		created, err := repo.Create(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, -20.00, created.Amount)
	})

	t.Run("create error row keeps status detail", func(t *testing.T) {
		p := &model.Payment{
			TransactionType: model.TypeCapture,
			Provider:        model.ProviderStripe,
			Status:          model.StatusError,
			StatusDetail:    "Your card was declined.",
			Amount:          10.00,
			InvoiceID:       ptr(int64(3)),
		}

		created, err := repo.Create(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, model.StatusError, created.Status)
		assert.Equal(t, "Your card was declined.", created.StatusDetail)
	})
}

func TestPaymentRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, &model.Payment{
		TransactionType: model.TypeRegister,
		Provider:        model.ProviderStripe,
		Status:          "requires_payment_method",
		Reference:       "pi_initial",
		Amount:          15.00,
		OrderID:         ptr(int64(1)),
	})
	require.NoError(t, err)

	t.Run("update in place keeps the row count", func(t *testing.T) {
		created.Reference = "pi_updated"
		created.Status = "requires_confirmation"

		err := repo.Update(ctx, created)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "pi_updated", got.Reference)
		assert.Equal(t, "requires_confirmation", got.Status)

		count, err := repo.CountForOrder(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("update cancelled flag", func(t *testing.T) {
		created.Cancelled = true
		err := repo.Update(ctx, created)
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Cancelled)
	})

	t.Run("update missing row returns not found", func(t *testing.T) {
		err := repo.Update(ctx, &model.Payment{ID: 9999, TransactionType: model.TypeRegister})
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("update without id returns not found", func(t *testing.T) {
		err := repo.Update(ctx, &model.Payment{TransactionType: model.TypeRegister})
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestPaymentRepository_Get(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("missing row returns not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 42)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("round trips nullable fields", func(t *testing.T) {
		expires := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
		created, err := repo.Create(ctx, &model.Payment{
			TransactionType:   model.TypeAuthorise,
			Provider:          model.ProviderStripe,
			Status:            "requires_capture",
			Reference:         "pi_auth",
			Amount:            25.00,
			OrderID:           ptr(int64(2)),
			FraudScreened:     true,
			FraudTotalScore:   ptr(int64(12)),
			FraudScreenResult: strPtr("normal"),
			AddressResult:     strPtr("pass"),
			CV2Result:         strPtr("pass"),
			CardType:          strPtr("Visa"),
			CardNumber:        strPtr("4242"),
			CardExpires:       strPtr("09/27"),
			ThreeDSecure:      true,
			ExpiresOn:         &expires,
		})
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(12), *got.FraudTotalScore)
		assert.Equal(t, "normal", *got.FraudScreenResult)
		assert.Equal(t, "pass", *got.AddressResult)
		assert.Nil(t, got.PostcodeResult)
		assert.Equal(t, "Visa", *got.CardType)
		assert.Equal(t, "09/27", *got.CardExpires)
		assert.True(t, got.ThreeDSecure)
		require.NotNil(t, got.ExpiresOn)
		assert.Equal(t, expires.Unix(), got.ExpiresOn.Unix())
	})
}

func TestPaymentRepository_GetLatest(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("no history returns not found", func(t *testing.T) {
		_, err := repo.GetLatestForOrder(ctx, 10)
		assert.ErrorIs(t, err, ErrPaymentNotFound)

		_, err = repo.GetLatestForInvoice(ctx, 10)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("returns the newest row for the order", func(t *testing.T) {
		for _, typ := range []model.TransactionType{model.TypeRegister, model.TypeAuthorise} {
			_, err := repo.Create(ctx, &model.Payment{
				TransactionType: typ,
				Provider:        model.ProviderStripe,
				Status:          "succeeded",
				Amount:          5.00,
				OrderID:         ptr(int64(10)),
			})
			require.NoError(t, err)
		}

		latest, err := repo.GetLatestForOrder(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, model.TypeAuthorise, latest.TransactionType)
	})

	t.Run("invoice lookup is independent of order lookup", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Payment{
			TransactionType: model.TypeRegister,
			Provider:        model.ProviderStripe,
			Status:          "requires_payment_method",
			Amount:          8.00,
			InvoiceID:       ptr(int64(20)),
		})
		require.NoError(t, err)

		latest, err := repo.GetLatestForInvoice(ctx, 20)
		require.NoError(t, err)
		assert.Equal(t, model.TypeRegister, latest.TransactionType)
	})
}

func TestPaymentRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	orderID := int64(30)
	types := []model.TransactionType{
		model.TypeRegister,
		model.TypeAuthorise,
		model.TypeCapture,
		model.TypeRefund,
	}
	for _, typ := range types {
		_, err := repo.Create(ctx, &model.Payment{
			TransactionType: typ,
			Provider:        model.ProviderStripe,
			Status:          "succeeded",
			Amount:          1.00,
			OrderID:         &orderID,
		})
		require.NoError(t, err)
	}

	t.Run("filter by order", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.PaymentFilter{OrderID: &orderID})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, items, 4)
	})

	t.Run("filter by type", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.PaymentFilter{
			OrderID: &orderID,
			Types:   []model.TransactionType{model.TypeRefund},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, model.TypeRefund, items[0].TransactionType)
	})

	t.Run("limit and descending order", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.PaymentFilter{
			OrderID: &orderID,
			Limit:   2,
			Desc:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, items, 2)
		assert.Equal(t, model.TypeRefund, items[0].TransactionType)
	})
}

func ptr(i int64) *int64 {
	return &i
}

func strPtr(s string) *string {
	return &s
}
