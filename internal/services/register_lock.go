package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/pkg/logger"
	"github.com/nimasrn/payment-gateway/pkg/redis"
)

var ErrRegistrationInProgress = errors.New("registration already in progress")

// RegisterLock serialises register calls per order/invoice. The ledger
// lookup that re-uses a pending REGISTER row is racy under concurrent
// registration, so callers take this lock around Register.
type RegisterLock struct {
	redis  redis.RedisAdapter
	ttl    time.Duration
	prefix string
}

func NewRegisterLock(adapter redis.RedisAdapter, ttl time.Duration) *RegisterLock {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &RegisterLock{
		redis:  adapter,
		ttl:    ttl,
		prefix: "register-lock:",
	}
}

// Acquire takes the per-order lock and returns its release func. A held
// lock returns ErrRegistrationInProgress; a redis failure degrades to
// unserialised registration rather than blocking payments.
func (l *RegisterLock) Acquire(ctx context.Context, req model.RegisterRequest) (func(), error) {
	key := l.key(req)
	if key == "" {
		// ad-hoc registration has no serialisation scope
		return func() {}, nil
	}

	value := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := l.redis.SetNX(key, value, l.ttl)
	if err != nil {
		logger.Warn("Failed to acquire register lock", "key", key, "error", err)
		return func() {}, nil
	}
	if !acquired {
		logger.Info("Register lock already held", "key", key)
		return nil, ErrRegistrationInProgress
	}

	release := func() {
		if err := l.redis.Del(key); err != nil {
			logger.Warn("Failed to release register lock", "key", key, "error", err)
		}
	}
	return release, nil
}

func (l *RegisterLock) key(req model.RegisterRequest) string {
	switch {
	case req.OrderID != nil:
		return fmt.Sprintf("%sorder:%d", l.prefix, *req.OrderID)
	case req.InvoiceID != nil:
		return fmt.Sprintf("%sinvoice:%d", l.prefix, *req.InvoiceID)
	}
	return ""
}
