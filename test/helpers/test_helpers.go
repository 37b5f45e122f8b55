package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/payment-gateway/internal/repository"
	"github.com/nimasrn/payment-gateway/pkg/pg"
	"github.com/nimasrn/payment-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.ContactEntity{},
		&repository.OrderEntity{},
		&repository.PaymentEntity{},
		&repository.PaymentAuditEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestContact(t *testing.T, db *pg.DB, id int64, firstName, lastName string) *repository.ContactEntity {
	ctx := context.Background()
	contact := &repository.ContactEntity{
		ID:              id,
		FirstName:       firstName,
		LastName:        lastName,
		Email:           firstName + "@example.com",
		BillingLine1:    "1 High Street",
		BillingCity:     "London",
		BillingPostcode: "N1 1AA",
		BillingCountry:  "GB",
	}
	err := db.Write(ctx).Create(contact).Error
	require.NoError(t, err)
	return contact
}

func CreateTestOrder(t *testing.T, db *pg.DB, contactID int64, total float64) *repository.OrderEntity {
	ctx := context.Background()
	order := &repository.OrderEntity{
		ContactID: &contactID,
		Total:     total,
	}
	err := db.Write(ctx).Create(order).Error
	require.NoError(t, err)
	return order
}

func CreateTestPayment(t *testing.T, db *pg.DB, orderID int64, transactionType, status, reference string, amount float64) *repository.PaymentEntity {
	ctx := context.Background()
	payment := &repository.PaymentEntity{
		TransactionType: transactionType,
		Provider:        "stripe",
		Status:          status,
		Reference:       reference,
		Amount:          amount,
		OrderID:         &orderID,
		CreatedAt:       time.Now(),
	}
	err := db.Write(ctx).Create(payment).Error
	require.NoError(t, err)
	return payment
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
