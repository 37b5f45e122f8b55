package repository

import (
	"context"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/pkg/pg"
)

type AuditRepository struct {
	*pg.DB
}

func NewAuditRepository(db *pg.DB) *AuditRepository {
	return &AuditRepository{
		db,
	}
}

func (r *AuditRepository) Create(ctx context.Context, a *model.PaymentAudit) (*model.PaymentAudit, error) {
	entity := toPaymentAuditEntity(a)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPaymentAuditModel(entity), nil
}

// ListForPayment returns the audit trail for one ledger row, oldest first.
func (r *AuditRepository) ListForPayment(ctx context.Context, paymentID int64) ([]*model.PaymentAudit, error) {
	var entities []*PaymentAuditEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	audits := make([]*model.PaymentAudit, len(entities))
	for i, e := range entities {
		audits[i] = toPaymentAuditModel(e)
	}
	return audits, nil
}
