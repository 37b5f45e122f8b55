package services

import (
	"context"
	"strconv"
	"strings"

	gateway "github.com/nimasrn/payment-gateway/internal/gateways"
	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/pkg/logger"
)

type CustomerGateway interface {
	CreateCustomer(ctx context.Context, params *gateway.CustomerParams) (*gateway.Customer, error)
	UpdateCustomer(ctx context.Context, id string, params *gateway.CustomerParams) (*gateway.Customer, error)
	RetrieveCustomer(ctx context.Context, id string) (*gateway.Customer, error)
	ListPaymentMethods(ctx context.Context, customerID, methodType string) ([]gateway.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) (*gateway.PaymentMethod, error)
}

type ContactRepository interface {
	Get(ctx context.Context, id int64) (*model.Contact, error)
	SetProcessorRef(ctx context.Context, id int64, ref *string) error
}

// CustomerService keeps local contacts linked to processor-side
// customer records. A stale link (deleted remote customer, or a
// retrieval failure) is cleared and replaced with a fresh customer
// rather than reused.
type CustomerService struct {
	gateway     CustomerGateway
	contactRepo ContactRepository
}

func NewCustomerService(gw CustomerGateway, contactRepo ContactRepository) *CustomerService {
	return &CustomerService{
		gateway:     gw,
		contactRepo: contactRepo,
	}
}

// Resolve returns the processor customer id for a contact, creating the
// remote customer and persisting the link on first use.
func (s *CustomerService) Resolve(ctx context.Context, contactID int64) (string, error) {
	contact, err := s.contactRepo.Get(ctx, contactID)
	if err != nil {
		return "", err
	}

	if contact.ProcessorRef == nil || *contact.ProcessorRef == "" {
		return s.createCustomer(ctx, contact)
	}

	remote, err := s.gateway.RetrieveCustomer(ctx, *contact.ProcessorRef)
	if err != nil || remote.Deleted {
		logger.Warn("Stale customer link, recreating", "contact_id", contact.ID, "customer_id", *contact.ProcessorRef, "error", err)
		if clearErr := s.contactRepo.SetProcessorRef(ctx, contact.ID, nil); clearErr != nil {
			logger.Warn("Failed to clear stale customer link", "contact_id", contact.ID, "error", clearErr)
		}
		return s.createCustomer(ctx, contact)
	}

	if _, err := s.gateway.UpdateCustomer(ctx, remote.ID, s.customerParams(contact)); err != nil {
		return "", err
	}
	return remote.ID, nil
}

// PaymentMethods lists the stored cards for a contact's linked
// customer. An unlinked contact has none.
func (s *CustomerService) PaymentMethods(ctx context.Context, contactID int64) ([]gateway.PaymentMethod, error) {
	contact, err := s.contactRepo.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact.ProcessorRef == nil || *contact.ProcessorRef == "" {
		return nil, nil
	}
	return s.gateway.ListPaymentMethods(ctx, *contact.ProcessorRef, "card")
}

func (s *CustomerService) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	_, err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID)
	return err
}

func (s *CustomerService) createCustomer(ctx context.Context, contact *model.Contact) (string, error) {
	customer, err := s.gateway.CreateCustomer(ctx, s.customerParams(contact))
	if err != nil {
		return "", err
	}

	if err := s.contactRepo.SetProcessorRef(ctx, contact.ID, &customer.ID); err != nil {
		logger.Warn("Failed to persist customer link", "contact_id", contact.ID, "customer_id", customer.ID, "error", err)
	}
	return customer.ID, nil
}

func (s *CustomerService) customerParams(contact *model.Contact) *gateway.CustomerParams {
	params := &gateway.CustomerParams{
		Name:  strings.TrimSpace(contact.FirstName + " " + contact.LastName),
		Email: contact.Email,
		Phone: contact.Phone,
		Metadata: map[string]string{
			"contact_id": strconv.FormatInt(contact.ID, 10),
		},
	}
	if contact.HasBillingAddress() {
		params.Address = &gateway.Address{
			Line1:      contact.BillingLine1,
			Line2:      contact.BillingLine2,
			City:       contact.BillingCity,
			State:      contact.BillingRegion,
			PostalCode: contact.BillingPostcode,
			Country:    contact.BillingCountry,
		}
	}
	return params
}
