package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/internal/queue"
	"github.com/nimasrn/payment-gateway/pkg/logger"
	"github.com/nimasrn/payment-gateway/pkg/prom"
)

type AuditRepository interface {
	Create(ctx context.Context, a *model.PaymentAudit) (*model.PaymentAudit, error)
}

// PaymentEventProcessor consumes payment events off the stream and
// persists them as audit rows. Events are observational: a processing
// failure here never affects the ledger itself.
type PaymentEventProcessor struct {
	auditRepo   AuditRepository
	idempotency *IdempotencyService
}

func NewPaymentEventProcessor(auditRepo AuditRepository, idempotency *IdempotencyService) *PaymentEventProcessor {
	return &PaymentEventProcessor{
		auditRepo:   auditRepo,
		idempotency: idempotency,
	}
}

func (p *PaymentEventProcessor) GetType() string {
	return "payment-event"
}

// Process parses one payment event and records it with idempotency guarantees.
func (p *PaymentEventProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	// Step 1: Parse event
	var event model.PaymentEvent
	if err := json.Unmarshal(queueMessage.Data, &event); err != nil {
		logger.Error("Failed to unmarshal payment event", "error", err)
		prom.IncPaymentEvent("unknown", "invalid")
		// Malformed payload will never parse on retry - move to DLQ
		return err
	}

	eventID := queueMessage.ID

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// Event already recorded - ACK to remove from stream
			logger.Info("Event already processed, skipping", "event_id", eventID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded for payment event",
				"event_id", eventID,
				"payment_id", event.PaymentID)
			prom.IncPaymentEvent(string(event.TransactionType), "dropped")
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer is processing - NACK to retry later
			logger.Info("Lock held by another consumer, will retry", "event_id", eventID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "event_id", eventID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Debug("Processing payment event",
		"event_id", eventID,
		"payment_id", event.PaymentID,
		"transaction_type", event.TransactionType,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Persist audit row
	audit := &model.PaymentAudit{
		PaymentID:       event.PaymentID,
		TransactionType: event.TransactionType,
		Status:          event.Status,
		Success:         event.Success,
		Amount:          event.Amount,
		OrderID:         event.OrderID,
		InvoiceID:       event.InvoiceID,
	}

	if _, err := p.auditRepo.Create(ctx, audit); err != nil {
		logger.Error("Failed to persist payment audit",
			"event_id", eventID,
			"payment_id", event.PaymentID,
			"error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", eventID, "error", markErr)
		}
		return err // NACK to retry from stream
	}

	// Step 4: Mark processed so redeliveries are skipped
	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "event_id", eventID, "error", markErr)
		// Continue - the audit row is already written
	}

	prom.IncPaymentEvent(string(event.TransactionType), "recorded")

	logger.Debug("Payment event recorded",
		"event_id", eventID,
		"payment_id", event.PaymentID,
		"transaction_type", event.TransactionType)

	return nil
}
