package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	gateway "github.com/nimasrn/payment-gateway/internal/gateways"
	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/internal/repository"
	"github.com/nimasrn/payment-gateway/pkg/logger"
	"github.com/nimasrn/payment-gateway/pkg/prom"
)

// ProcessorGateway is the slice of the processor API the payment
// lifecycle needs.
type ProcessorGateway interface {
	CreatePaymentIntent(ctx context.Context, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, id string, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, id string, params *gateway.PaymentIntentParams) (*gateway.PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, id string, params *gateway.CaptureParams) (*gateway.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error)
	RetrieveCharge(ctx context.Context, id string) (*gateway.Charge, error)
	CreateRefund(ctx context.Context, params *gateway.RefundParams) (*gateway.Refund, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
	Get(ctx context.Context, id int64) (*model.Payment, error)
	GetLatestForOrder(ctx context.Context, orderID int64) (*model.Payment, error)
	GetLatestForInvoice(ctx context.Context, invoiceID int64) (*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) // results, totalCount
}

type OrderRepository interface {
	Get(ctx context.Context, id int64) (*model.Order, error)
	UpdateCardSummary(ctx context.Context, id int64, cardType, cardNumber, cardExpires string) error
}

// CustomerResolver maps a local contact onto the processor-side
// customer, creating or repairing the link as needed.
type CustomerResolver interface {
	Resolve(ctx context.Context, contactID int64) (string, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type PaymentConfig struct {
	Currency           string
	Moto               bool
	PaymentMethodTypes []string
}

// PaymentService drives a payment through
// register -> authorise -> capture/cancel -> refund, one ledger row per
// attempt. Every operation returns the boolean outcome plus the
// accumulated display messages for the caller.
type PaymentService struct {
	processor   ProcessorGateway
	paymentRepo PaymentRepository
	orderRepo   OrderRepository
	resolver    CustomerResolver
	events      EventPublisher
	config      PaymentConfig
}

func NewPaymentService(processor ProcessorGateway, paymentRepo PaymentRepository, orderRepo OrderRepository, resolver CustomerResolver, events EventPublisher, config PaymentConfig) *PaymentService {
	if config.Currency == "" {
		config.Currency = "gbp"
	}
	if len(config.PaymentMethodTypes) == 0 {
		config.PaymentMethodTypes = []string{"card"}
	}

	return &PaymentService{
		processor:   processor,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		resolver:    resolver,
		events:      events,
		config:      config,
	}
}

// Register creates (or idempotently re-uses) the payment intent for an
// order or invoice. Re-registering before authorisation updates the
// pending REGISTER row in place rather than inserting a second one.
func (s *PaymentService) Register(ctx context.Context, req model.RegisterRequest) (bool, []string) {
	if err := req.Validate(); err != nil {
		return false, []string{err.Error()}
	}

	payment := &model.Payment{
		TransactionType: model.TypeRegister,
		Provider:        model.ProviderStripe,
		Amount:          req.Total,
		OrderID:         req.OrderID,
		InvoiceID:       req.InvoiceID,
		Moto:            s.config.Moto,
	}

	if prior, err := s.latestFor(ctx, req.OrderID, req.InvoiceID); err == nil && prior.TransactionType == model.TypeRegister {
		prior.Amount = req.Total
		prior.Moto = s.config.Moto
		payment = prior
	}

	// Best effort: a missing or failing customer never blocks registration.
	customerID := ""
	if req.ContactID != nil {
		id, err := s.resolver.Resolve(ctx, *req.ContactID)
		if err != nil {
			logger.Warn("Customer resolution failed, registering without customer", "contact_id", *req.ContactID, "error", err)
		} else {
			customerID = id
		}
	}

	params := &gateway.PaymentIntentParams{
		Amount:        model.MinorUnits(req.Total),
		Currency:      s.config.Currency,
		CaptureMethod: "automatic",
		Customer:      customerID,
		Metadata:      referenceMetadata(req.OrderID, req.InvoiceID),
	}
	if s.config.Moto {
		params.PaymentMethodTypes = []string{"card"}
		params.SetupFutureUsage = "off_session"
		params.Moto = true
		if req.PaymentMethodID != "" {
			params.PaymentMethod = req.PaymentMethodID
			params.Confirm = true
		}
	} else {
		params.PaymentMethodTypes = s.config.PaymentMethodTypes
	}

	var intent *gateway.PaymentIntent
	var callErr error
	if payment.Reference != "" {
		intent, callErr = s.processor.RetrievePaymentIntent(ctx, payment.Reference)
	} else {
		intent, callErr = s.processor.CreatePaymentIntent(ctx, params)
	}

	if callErr != nil {
		payment.Status = model.StatusError
		payment.StatusDetail = processorMessage(callErr)
	} else {
		payment.Status = intent.Status
		payment.Reference = intent.ID
		s.enrich(ctx, payment, intent, req.OrderID)
	}

	s.persist(ctx, payment)

	return s.resolve(ctx, payment, params, intent, callErr)
}

// Authorise confirms (or inspects) the intent registered for a prior
// payment row and inserts a new AUTHORISE row with the result.
func (s *PaymentService) Authorise(ctx context.Context, paymentID int64, paymentMethodID, returnURL string) (bool, []string) {
	prior, ok := s.priorRow(ctx, paymentID)
	if !ok {
		return false, nil
	}

	payment := &model.Payment{
		TransactionType: model.TypeAuthorise,
		Provider:        prior.Provider,
		OrderID:         prior.OrderID,
		InvoiceID:       prior.InvoiceID,
		Moto:            prior.Moto,
	}

	var params *gateway.PaymentIntentParams
	var intent *gateway.PaymentIntent
	var callErr error

	if paymentMethodID != "" || returnURL != "" {
		params = &gateway.PaymentIntentParams{
			PaymentMethod: paymentMethodID,
			ReturnURL:     returnURL,
		}
		intent, callErr = s.processor.UpdatePaymentIntent(ctx, prior.Reference, params)
		if callErr == nil {
			intent, callErr = s.processor.ConfirmPaymentIntent(ctx, prior.Reference, nil)
		}
	} else {
		intent, callErr = s.processor.RetrievePaymentIntent(ctx, prior.Reference)
	}

	if callErr != nil {
		payment.Status = model.StatusError
		payment.StatusDetail = processorMessage(callErr)
	} else {
		payment.Status = intent.Status
		payment.Reference = intent.ID
		payment.Amount = model.MajorUnits(intent.Amount)
		s.enrich(ctx, payment, intent, prior.OrderID)
	}

	s.persist(ctx, payment)

	return s.resolve(ctx, payment, params, intent, callErr)
}

// Capture settles an authorised intent. The row records the charge id
// as reference and the processor-confirmed received amount, which may
// be less than requested on a partial capture.
func (s *PaymentService) Capture(ctx context.Context, paymentID int64, amount float64) (bool, []string) {
	prior, ok := s.priorRow(ctx, paymentID)
	if !ok {
		return false, nil
	}

	payment := &model.Payment{
		TransactionType: model.TypeCapture,
		Provider:        prior.Provider,
		OrderID:         prior.OrderID,
		InvoiceID:       prior.InvoiceID,
		Moto:            prior.Moto,
	}

	params := &gateway.CaptureParams{AmountToCapture: model.MinorUnits(amount)}

	intent, callErr := s.processor.RetrievePaymentIntent(ctx, prior.Reference)
	if callErr == nil {
		intent, callErr = s.processor.CapturePaymentIntent(ctx, intent.ID, params)
	}

	if callErr != nil {
		payment.Status = model.StatusError
		payment.StatusDetail = processorMessage(callErr)
	} else {
		payment.Status = intent.Status
		payment.Reference = intent.LatestCharge
		payment.Amount = model.MajorUnits(intent.AmountReceived)
		s.enrich(ctx, payment, intent, prior.OrderID)
	}

	s.persist(ctx, payment)

	return s.resolve(ctx, payment, params, intent, callErr)
}

// Refund refunds against the charge referenced by a prior CAPTURE row.
// The refunded amount is stored negated.
func (s *PaymentService) Refund(ctx context.Context, paymentID int64, amount float64) (bool, []string) {
	prior, ok := s.priorRow(ctx, paymentID)
	if !ok {
		return false, nil
	}

	payment := &model.Payment{
		TransactionType: model.TypeRefund,
		Provider:        prior.Provider,
		OrderID:         prior.OrderID,
		Moto:            prior.Moto,
	}

	params := &gateway.RefundParams{
		Charge: prior.Reference,
		Amount: model.MinorUnits(amount),
	}

	refund, callErr := s.processor.CreateRefund(ctx, params)

	if callErr != nil {
		payment.Status = model.StatusError
		payment.StatusDetail = processorMessage(callErr)
	} else {
		payment.Status = refund.Status
		payment.Reference = refund.ID
		payment.Amount = -amount
	}

	s.persist(ctx, payment)

	return s.resolve(ctx, payment, params, refund, callErr)
}

// Cancel voids the intent on a prior row. The prior row keeps its
// history but is flagged cancelled; a new CANCEL row records the
// outcome.
func (s *PaymentService) Cancel(ctx context.Context, paymentID int64) (bool, []string) {
	prior, ok := s.priorRow(ctx, paymentID)
	if !ok {
		return false, nil
	}

	payment := &model.Payment{
		TransactionType: model.TypeCancel,
		Provider:        prior.Provider,
		OrderID:         prior.OrderID,
		Amount:          prior.Amount,
		Moto:            prior.Moto,
	}

	intent, callErr := s.processor.CancelPaymentIntent(ctx, prior.Reference)

	if callErr != nil {
		payment.Status = model.StatusError
		payment.StatusDetail = processorMessage(callErr)
	} else {
		payment.Status = intent.Status
		payment.Reference = intent.ID

		prior.Cancelled = true
		if err := s.paymentRepo.Update(ctx, prior); err != nil {
			logger.Error("Failed to flag cancelled payment row", "payment_id", prior.ID, "error", err)
		}
	}

	s.persist(ctx, payment)

	return s.resolve(ctx, payment, prior.Reference, intent, callErr)
}

// Void is not supported by this processor integration. No row is
// written and nothing is logged.
func (s *PaymentService) Void(ctx context.Context, paymentID int64) (bool, []string) {
	return false, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (*model.Payment, error) {
	return s.paymentRepo.Get(ctx, id)
}

func (s *PaymentService) List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	return s.paymentRepo.List(ctx, f)
}

// priorRow loads the antecedent row a dependent operation acts on. A
// missing row or missing processor reference is a precondition failure:
// no side effects, no log entry.
func (s *PaymentService) priorRow(ctx context.Context, paymentID int64) (*model.Payment, bool) {
	prior, err := s.paymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, false
	}
	if prior.Reference == "" {
		return nil, false
	}
	return prior, true
}

func (s *PaymentService) latestFor(ctx context.Context, orderID, invoiceID *int64) (*model.Payment, error) {
	switch {
	case orderID != nil:
		return s.paymentRepo.GetLatestForOrder(ctx, *orderID)
	case invoiceID != nil:
		return s.paymentRepo.GetLatestForInvoice(ctx, *invoiceID)
	}
	return nil, repository.ErrPaymentNotFound
}

// persist writes the row exactly once per lifecycle call: an update
// when the operation re-used an existing row, an insert otherwise.
func (s *PaymentService) persist(ctx context.Context, payment *model.Payment) {
	if payment.ID != 0 {
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			logger.Error("Failed to update payment row", "payment_id", payment.ID, "error", err)
		}
		return
	}

	created, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		logger.Error("Failed to insert payment row", "transaction_type", string(payment.TransactionType), "error", err)
		return
	}
	payment.ID = created.ID
	payment.CreatedAt = created.CreatedAt
}

// resolve maps the recorded row onto the caller's boolean contract and
// logs the full exchange: DEBUG on success, ERROR on failure.
func (s *PaymentService) resolve(ctx context.Context, payment *model.Payment, request, response interface{}, callErr error) (bool, []string) {
	label := fmt.Sprintf("%s (%s)", titleCase(string(payment.Provider)), payment.TransactionType)

	success := payment.Status != model.StatusError
	if success {
		switch payment.TransactionType {
		case model.TypeUpdate, model.TypeRegister, model.TypeCancel:
			// successful on any non-error outcome
		default:
			success = model.IsSuccessStatus(payment.Provider, payment.TransactionType, payment.Status)
		}
	}

	outcome := "failure"
	if success {
		outcome = "success"
	}
	prom.IncPaymentTransaction(string(payment.TransactionType), outcome)
	s.publishEvent(ctx, payment, success)

	if success {
		logger.Debug(label, "request", request, "response", response)
		return true, nil
	}

	logger.Error(label, "request", request, "response", response, "error", callErr)

	message := defaultDisplayMessage
	if callErr != nil {
		message = displayMessage(callErr)
	}
	return false, []string{message}
}

func (s *PaymentService) publishEvent(ctx context.Context, payment *model.Payment, success bool) {
	if s.events == nil {
		return
	}

	event := model.PaymentEvent{
		PaymentID:       payment.ID,
		TransactionType: payment.TransactionType,
		Status:          payment.Status,
		Success:         success,
		Amount:          payment.Amount,
		OrderID:         payment.OrderID,
		InvoiceID:       payment.InvoiceID,
	}
	if _, err := s.events.PublishJSON(ctx, event, nil); err != nil {
		logger.Warn("Failed to publish payment event", "payment_id", payment.ID, "error", err)
	}
}

// defaultDisplayMessage is surfaced when the processor answered without
// an error but the recorded status is not an accepted one, so there is
// no processor message to show.
const defaultDisplayMessage = "There was a problem processing your payment. Please try again."

// displayMessages maps processor error codes to customer-facing copy.
// Codes without an entry fall back to the processor's own message.
var displayMessages = map[string]string{}

func displayMessage(err error) string {
	var apiErr *gateway.Error
	if errors.As(err, &apiErr) {
		if msg, ok := displayMessages[apiErr.Code]; ok {
			return msg
		}
		return apiErr.Message
	}
	return err.Error()
}

func processorMessage(err error) string {
	var apiErr *gateway.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func referenceMetadata(orderID, invoiceID *int64) map[string]string {
	meta := make(map[string]string)
	if orderID != nil {
		meta["order_id"] = strconv.FormatInt(*orderID, 10)
	}
	if invoiceID != nil {
		meta["invoice_id"] = strconv.FormatInt(*invoiceID, 10)
	}
	return meta
}
