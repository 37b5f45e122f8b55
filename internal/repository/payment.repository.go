package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(p)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toPaymentModel(entity), nil
}

// Update persists all fields of an existing row. Used for register-row
// reuse and for flagging a prior authorisation as cancelled.
func (r *PaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	if p.ID == 0 {
		return ErrPaymentNotFound
	}

	entity := toPaymentEntity(p)

	result := r.Write(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(entity)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (*model.Payment, error) {
	var entity PaymentEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return toPaymentModel(&entity), nil
}

// GetLatestForOrder returns the most recent ledger row for an order, or
// ErrPaymentNotFound when the order has no payment history yet.
func (r *PaymentRepository) GetLatestForOrder(ctx context.Context, orderID int64) (*model.Payment, error) {
	return r.getLatest(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) GetLatestForInvoice(ctx context.Context, invoiceID int64) (*model.Payment, error) {
	return r.getLatest(ctx, "invoice_id = ?", invoiceID)
}

func (r *PaymentRepository) getLatest(ctx context.Context, cond string, arg int64) (*model.Payment, error) {
	var entity PaymentEntity

	err := r.Read(ctx).WithContext(ctx).
		Where(cond, arg).
		Order("id DESC").
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return toPaymentModel(&entity), nil
}

func (r *PaymentRepository) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&PaymentEntity{})

	if f.OrderID != nil {
		q = q.Where("order_id = ?", *f.OrderID)
	}
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if len(f.Types) > 0 {
		q = q.Where("transaction_type IN ?", f.Types)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "id ASC"
	if f.Desc {
		order = "id DESC"
	}
	q = q.Order(order)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var entities []*PaymentEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toPaymentModels(entities), total, nil
}

// CountForOrder is used by tests and reconciliation to assert the
// at-most-one-live-register invariant.
func (r *PaymentRepository) CountForOrder(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&PaymentEntity{}).
		Where("order_id = ?", orderID).
		Count(&count).
		Error
	return count, err
}
