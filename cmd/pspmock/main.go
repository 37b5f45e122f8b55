package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Intent statuses mirrored from the real processor
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresCapture       = "requires_capture"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

type Customer struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Deleted bool              `json:"deleted,omitempty"`
	Name    string            `json:"name,omitempty"`
	Email   string            `json:"email,omitempty"`
	Phone   string            `json:"phone,omitempty"`
	Meta    map[string]string `json:"metadata,omitempty"`
}

type PaymentIntent struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency"`
	Customer       string `json:"customer,omitempty"`
	LatestCharge   string `json:"latest_charge,omitempty"`
	ClientSecret   string `json:"client_secret"`
}

type Charge struct {
	ID                   string               `json:"id"`
	Object               string               `json:"object"`
	Status               string               `json:"status"`
	Amount               int64                `json:"amount"`
	Outcome              ChargeOutcome        `json:"outcome"`
	PaymentMethodDetails PaymentMethodDetails `json:"payment_method_details"`
}

type ChargeOutcome struct {
	RiskLevel     string `json:"risk_level"`
	RiskScore     int64  `json:"risk_score"`
	SellerMessage string `json:"seller_message"`
	Type          string `json:"type"`
}

type PaymentMethodDetails struct {
	Type string      `json:"type"`
	Card CardDetails `json:"card"`
}

type CardDetails struct {
	Brand         string        `json:"brand"`
	Last4         string        `json:"last4"`
	ExpMonth      int64         `json:"exp_month"`
	ExpYear       int64         `json:"exp_year"`
	CaptureBefore int64         `json:"capture_before,omitempty"`
	Checks        CardChecks    `json:"checks"`
	ThreeDSecure  *ThreeDSecure `json:"three_d_secure,omitempty"`
}

type CardChecks struct {
	AddressLine1Check      string `json:"address_line1_check"`
	AddressPostalCodeCheck string `json:"address_postal_code_check"`
	CVCCheck               string `json:"cvc_check"`
}

type ThreeDSecure struct {
	Result string `json:"result"`
}

type Refund struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	Charge string `json:"charge"`
}

// MockProcessor simulates a card processor with configurable declines
type MockProcessor struct {
	mu          sync.Mutex
	declineRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	rng         *rand.Rand

	customers map[string]*Customer
	intents   map[string]*PaymentIntent
	charges   map[string]*Charge
	refunds   map[string]*Refund
}

func NewMockProcessor(declineRate float64, minDelay, maxDelay time.Duration) *MockProcessor {
	return &MockProcessor{
		declineRate: declineRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		customers:   make(map[string]*Customer),
		intents:     make(map[string]*PaymentIntent),
		charges:     make(map[string]*Charge),
		refunds:     make(map[string]*Refund),
	}
}

func (m *MockProcessor) simulateLatency() {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		time.Sleep(m.minDelay)
		return
	}
	time.Sleep(m.minDelay + time.Duration(m.rng.Int63n(int64(delta))))
}

func (m *MockProcessor) shouldDecline() bool {
	return m.rng.Float64() < m.declineRate
}

func (m *MockProcessor) newCharge(amount int64) *Charge {
	charge := &Charge{
		ID:     "ch_" + uuid.New().String()[:24],
		Object: "charge",
		Status: StatusSucceeded,
		Amount: amount,
		Outcome: ChargeOutcome{
			RiskLevel:     "normal",
			RiskScore:     m.rng.Int63n(40),
			SellerMessage: "Payment complete.",
			Type:          "authorized",
		},
		PaymentMethodDetails: PaymentMethodDetails{
			Type: "card",
			Card: CardDetails{
				Brand:         "visa",
				Last4:         "4242",
				ExpMonth:      int64(m.rng.Intn(12) + 1),
				ExpYear:       int64(time.Now().Year() + 1 + m.rng.Intn(3)),
				CaptureBefore: time.Now().Add(7 * 24 * time.Hour).Unix(),
				Checks: CardChecks{
					AddressLine1Check:      "pass",
					AddressPostalCodeCheck: "pass",
					CVCCheck:               "pass",
				},
				ThreeDSecure: &ThreeDSecure{Result: "authenticated"},
			},
		},
	}
	m.charges[charge.ID] = charge
	return charge
}

func stripeError(c *gin.Context, status int, errType, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{
		"type":    errType,
		"code":    code,
		"message": message,
	}})
}

func declined(c *gin.Context) {
	stripeError(c, http.StatusPaymentRequired, "card_error", "card_declined", "Your card was declined.")
}

type Handler struct {
	processor *MockProcessor
}

func NewHandler(processor *MockProcessor) *Handler {
	return &Handler{processor: processor}
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	customer := &Customer{
		ID:     "cus_" + uuid.New().String()[:14],
		Object: "customer",
		Name:   c.PostForm("name"),
		Email:  c.PostForm("email"),
		Phone:  c.PostForm("phone"),
	}
	m.customers[customer.ID] = customer

	log.Info().Str("customer_id", customer.ID).Str("name", customer.Name).Msg("Customer created")
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	customer, ok := m.customers[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such customer: "+c.Param("id"))
		return
	}
	if v := c.PostForm("name"); v != "" {
		customer.Name = v
	}
	if v := c.PostForm("email"); v != "" {
		customer.Email = v
	}
	if v := c.PostForm("phone"); v != "" {
		customer.Phone = v
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	m := h.processor
	m.mu.Lock()
	defer m.mu.Unlock()

	customer, ok := m.customers[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such customer: "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) ListPaymentMethods(c *gin.Context) {
	m := h.processor
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[c.Param("id")]; !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such customer: "+c.Param("id"))
		return
	}

	// One stored card per customer is enough to exercise the flows
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data": []gin.H{{
			"id":       "pm_" + uuid.New().String()[:24],
			"object":   "payment_method",
			"type":     "card",
			"customer": c.Param("id"),
		}},
	})
}

func (h *Handler) DetachPaymentMethod(c *gin.Context) {
	h.processor.simulateLatency()
	c.JSON(http.StatusOK, gin.H{
		"id":     c.Param("id"),
		"object": "payment_method",
		"type":   "card",
	})
}

func (h *Handler) CreateIntent(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	amount, err := strconv.ParseInt(c.PostForm("amount"), 10, 64)
	if err != nil || amount <= 0 {
		stripeError(c, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_integer", "Invalid positive integer for amount")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	intent := &PaymentIntent{
		ID:           "pi_" + uuid.New().String()[:24],
		Object:       "payment_intent",
		Status:       StatusRequiresPaymentMethod,
		Amount:       amount,
		Currency:     c.DefaultPostForm("currency", "gbp"),
		Customer:     c.PostForm("customer"),
		ClientSecret: "pi_secret_" + uuid.New().String()[:16],
	}

	// A confirmed create behaves like create+confirm (MOTO flow)
	if c.PostForm("confirm") == "true" {
		if m.shouldDecline() {
			log.Warn().Str("intent_id", intent.ID).Msg("Payment declined")
			declined(c)
			return
		}
		intent.Status = StatusRequiresCapture
		intent.LatestCharge = m.newCharge(amount).ID
	}

	m.intents[intent.ID] = intent
	log.Info().Str("intent_id", intent.ID).Int64("amount", amount).Str("status", intent.Status).Msg("Payment intent created")
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) UpdateIntent(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+c.Param("id"))
		return
	}
	if v := c.PostForm("amount"); v != "" {
		if amount, err := strconv.ParseInt(v, 10, 64); err == nil && amount > 0 {
			intent.Amount = amount
		}
	}
	if v := c.PostForm("customer"); v != "" {
		intent.Customer = v
	}
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) GetIntent(c *gin.Context) {
	m := h.processor
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) ConfirmIntent(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+c.Param("id"))
		return
	}
	if intent.Status == StatusCanceled {
		stripeError(c, http.StatusBadRequest, "invalid_request_error", "payment_intent_unexpected_state", "This PaymentIntent has been canceled.")
		return
	}
	if m.shouldDecline() {
		log.Warn().Str("intent_id", intent.ID).Msg("Payment declined")
		declined(c)
		return
	}

	intent.Status = StatusRequiresCapture
	intent.LatestCharge = m.newCharge(intent.Amount).ID

	log.Info().Str("intent_id", intent.ID).Str("charge_id", intent.LatestCharge).Msg("Payment authorised")
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) CaptureIntent(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+c.Param("id"))
		return
	}
	if intent.Status != StatusRequiresCapture {
		stripeError(c, http.StatusBadRequest, "invalid_request_error", "payment_intent_unexpected_state", "PaymentIntent is not in a capturable state.")
		return
	}

	captured := intent.Amount
	if v := c.PostForm("amount_to_capture"); v != "" {
		if amount, err := strconv.ParseInt(v, 10, 64); err == nil && amount > 0 && amount <= intent.Amount {
			captured = amount
		}
	}

	intent.Status = StatusSucceeded
	intent.AmountReceived = captured
	if charge, ok := m.charges[intent.LatestCharge]; ok {
		charge.Amount = captured
	}

	log.Info().Str("intent_id", intent.ID).Int64("amount_received", captured).Msg("Payment captured")
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) CancelIntent(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+c.Param("id"))
		return
	}
	if intent.Status == StatusSucceeded {
		stripeError(c, http.StatusBadRequest, "invalid_request_error", "payment_intent_unexpected_state", "A captured PaymentIntent cannot be canceled.")
		return
	}

	intent.Status = StatusCanceled
	log.Info().Str("intent_id", intent.ID).Msg("Payment intent canceled")
	c.JSON(http.StatusOK, intent)
}

func (h *Handler) GetCharge(c *gin.Context) {
	m := h.processor
	m.mu.Lock()
	defer m.mu.Unlock()

	charge, ok := m.charges[c.Param("id")]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such charge: "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, charge)
}

func (h *Handler) CreateRefund(c *gin.Context) {
	m := h.processor
	m.simulateLatency()

	m.mu.Lock()
	defer m.mu.Unlock()

	chargeID := c.PostForm("charge")
	charge, ok := m.charges[chargeID]
	if !ok {
		stripeError(c, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such charge: "+chargeID)
		return
	}

	amount := charge.Amount
	if v := c.PostForm("amount"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			amount = n
		}
	}

	for _, r := range m.refunds {
		if r.Charge == chargeID {
			stripeError(c, http.StatusBadRequest, "invalid_request_error", "charge_already_refunded", "Charge "+chargeID+" has already been refunded.")
			return
		}
	}

	refund := &Refund{
		ID:     "re_" + uuid.New().String()[:24],
		Object: "refund",
		Status: StatusSucceeded,
		Amount: amount,
		Charge: chargeID,
	}
	m.refunds[refund.ID] = refund

	log.Info().Str("refund_id", refund.ID).Str("charge_id", chargeID).Int64("amount", amount).Msg("Refund created")
	c.JSON(http.StatusOK, refund)
}

func (h *Handler) RegisterApplePayDomain(c *gin.Context) {
	domain := c.PostForm("domain_name")
	if domain == "" {
		stripeError(c, http.StatusBadRequest, "invalid_request_error", "parameter_missing", "Missing required param: domain_name.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          "apwc_" + uuid.New().String()[:24],
		"object":      "apple_pay_domain",
		"domain_name": domain,
	})
}

// UpdateConfig allows changing the decline rate at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeclineRate *float64 `json:"decline_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeclineRate != nil {
		if *config.DeclineRate >= 0 && *config.DeclineRate <= 1.0 {
			h.processor.declineRate = *config.DeclineRate
			log.Info().Float64("rate", *config.DeclineRate).Msg("Updated decline rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Configuration updated",
		"decline_rate": h.processor.declineRate,
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"decline_rate": h.processor.declineRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/customers", handler.CreateCustomer)
		v1.POST("/customers/:id", handler.UpdateCustomer)
		v1.GET("/customers/:id", handler.GetCustomer)
		v1.GET("/customers/:id/payment_methods", handler.ListPaymentMethods)
		v1.POST("/payment_methods/:id/detach", handler.DetachPaymentMethod)

		v1.POST("/payment_intents", handler.CreateIntent)
		v1.POST("/payment_intents/:id", handler.UpdateIntent)
		v1.GET("/payment_intents/:id", handler.GetIntent)
		v1.POST("/payment_intents/:id/confirm", handler.ConfirmIntent)
		v1.POST("/payment_intents/:id/capture", handler.CaptureIntent)
		v1.POST("/payment_intents/:id/cancel", handler.CancelIntent)

		v1.GET("/charges/:id", handler.GetCharge)
		v1.POST("/refunds", handler.CreateRefund)
		v1.POST("/apple_pay/domains", handler.RegisterApplePayDomain)
	}

	router.PUT("/config", handler.UpdateConfig)
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	declineRate := getEnvFloat("DECLINE_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 400*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("decline_rate", declineRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Card Processor")

	processor := NewMockProcessor(declineRate, minDelay, maxDelay)
	handler := NewHandler(processor)
	router := SetupRouter(handler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
