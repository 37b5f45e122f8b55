package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	gateway "github.com/nimasrn/payment-gateway/internal/gateways"
	"github.com/nimasrn/payment-gateway/internal/model"
	"github.com/nimasrn/payment-gateway/pkg/logger"
)

// enrich augments a successful row with fraud and card details from the
// intent's latest charge. It only runs when the intent carries one; a
// failed charge lookup degrades to an unenriched row.
func (s *PaymentService) enrich(ctx context.Context, payment *model.Payment, intent *gateway.PaymentIntent, orderID *int64) {
	if intent == nil || intent.LatestCharge == "" {
		return
	}

	charge, err := s.processor.RetrieveCharge(ctx, intent.LatestCharge)
	if err != nil {
		logger.Warn("Failed to retrieve charge for enrichment", "charge_id", intent.LatestCharge, "error", err)
		return
	}

	payment.FraudScreened = true
	if charge.Outcome != nil {
		score := charge.Outcome.RiskScore
		level := charge.Outcome.RiskLevel
		payment.FraudTotalScore = &score
		payment.FraudScreenResult = &level
	}

	if charge.PaymentMethodDetails == nil || charge.PaymentMethodDetails.Card == nil {
		return
	}
	card := charge.PaymentMethodDetails.Card

	// Nil checks mean the processor did not perform that verification.
	if card.Checks != nil {
		payment.AddressResult = copyString(card.Checks.AddressLine1Check)
		payment.PostcodeResult = copyString(card.Checks.AddressPostalCodeCheck)
		payment.CV2Result = copyString(card.Checks.CVCCheck)
	}

	brand := titleCase(card.Brand)
	last4 := card.Last4
	expiry := fmt.Sprintf("%02d/%02d", card.ExpMonth, card.ExpYear%100)

	payment.CardType = &brand
	payment.CardNumber = &last4
	payment.CardExpires = &expiry
	payment.ThreeDSecure = card.ThreeDSecure != nil && card.ThreeDSecure.Result == "authenticated"

	if payment.TransactionType == model.TypeAuthorise && card.CaptureBefore > 0 {
		expiresOn := time.Unix(card.CaptureBefore, 0).UTC()
		payment.ExpiresOn = &expiresOn
	}

	if orderID != nil {
		if err := s.orderRepo.UpdateCardSummary(ctx, *orderID, brand, last4, expiry); err != nil {
			logger.Warn("Failed to copy card summary onto order", "order_id", *orderID, "error", err)
		}
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
