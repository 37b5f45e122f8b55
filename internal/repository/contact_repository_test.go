package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactRepository(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewContactRepository(db)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Contact{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+441632960000",

			BillingLine1:    "1 High Street",
			BillingCity:     "London",
			BillingPostcode: "N1 1AA",
			BillingCountry:  "GB",
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Nil(t, got.ProcessorRef)
		assert.True(t, got.HasBillingAddress())
	})

	t.Run("missing contact returns not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 404)
		assert.ErrorIs(t, err, ErrContactNotFound)
	})

	t.Run("set and clear processor ref", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.Contact{
			FirstName: "Grace",
			LastName:  "Hopper",
			Email:     "grace@example.com",
		})
		require.NoError(t, err)

		err = repo.SetProcessorRef(ctx, created.ID, strPtr("cus_123"))
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ProcessorRef)
		assert.Equal(t, "cus_123", *got.ProcessorRef)

		err = repo.SetProcessorRef(ctx, created.ID, nil)
		require.NoError(t, err)

		got, err = repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ProcessorRef)
	})

	t.Run("set processor ref on missing contact returns not found", func(t *testing.T) {
		err := repo.SetProcessorRef(ctx, 404, strPtr("cus_404"))
		assert.ErrorIs(t, err, ErrContactNotFound)
	})
}
