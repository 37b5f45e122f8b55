package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/payment-gateway/pkg/logger"
	"github.com/nimasrn/payment-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

const DefaultBaseURL = "https://api.stripe.com/v1"

type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	MaxConns        int
	ReadBufferSize  int
	WriteBufferSize int
}

// Client talks to the Stripe HTTP API. All mutating requests carry an
// idempotency key so a retried request cannot double-charge.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		timeout: timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
		},
	}

	logger.Info("Stripe client initialized", "base_url", baseURL, "timeout", timeout)

	return client, nil
}

func (c *Client) CreateCustomer(ctx context.Context, params *CustomerParams) (*Customer, error) {
	var customer Customer
	if err := c.call(ctx, "create_customer", "POST", "/customers", params.Encode(), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, id string, params *CustomerParams) (*Customer, error) {
	var customer Customer
	if err := c.call(ctx, "update_customer", "POST", "/customers/"+id, params.Encode(), &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.call(ctx, "retrieve_customer", "GET", "/customers/"+id, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListPaymentMethods returns the customer's stored payment methods of
// the given type ("card" for everything this service registers).
func (c *Client) ListPaymentMethods(ctx context.Context, customerID, methodType string) ([]PaymentMethod, error) {
	query := url.Values{}
	query.Set("type", methodType)

	var list paymentMethodList
	if err := c.call(ctx, "list_payment_methods", "GET", "/customers/"+customerID+"/payment_methods", query, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) DetachPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error) {
	var method PaymentMethod
	if err := c.call(ctx, "detach_payment_method", "POST", "/payment_methods/"+id+"/detach", nil, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params *PaymentIntentParams) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.call(ctx, "create_payment_intent", "POST", "/payment_intents", params.Encode(), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) UpdatePaymentIntent(ctx context.Context, id string, params *PaymentIntentParams) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.call(ctx, "update_payment_intent", "POST", "/payment_intents/"+id, params.Encode(), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.call(ctx, "retrieve_payment_intent", "GET", "/payment_intents/"+id, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) ConfirmPaymentIntent(ctx context.Context, id string, params *PaymentIntentParams) (*PaymentIntent, error) {
	var form url.Values
	if params != nil {
		form = params.Encode()
	}

	var intent PaymentIntent
	if err := c.call(ctx, "confirm_payment_intent", "POST", "/payment_intents/"+id+"/confirm", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) CapturePaymentIntent(ctx context.Context, id string, params *CaptureParams) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.call(ctx, "capture_payment_intent", "POST", "/payment_intents/"+id+"/capture", params.Encode(), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.call(ctx, "cancel_payment_intent", "POST", "/payment_intents/"+id+"/cancel", nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) RetrieveCharge(ctx context.Context, id string) (*Charge, error) {
	var charge Charge
	if err := c.call(ctx, "retrieve_charge", "GET", "/charges/"+id, nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (c *Client) CreateRefund(ctx context.Context, params *RefundParams) (*Refund, error) {
	var refund Refund
	if err := c.call(ctx, "create_refund", "POST", "/refunds", params.Encode(), &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// RegisterApplePayDomain registers the merchant domain for Apple Pay.
// Safe to call repeatedly, the processor treats it as an upsert.
func (c *Client) RegisterApplePayDomain(ctx context.Context, domain string) error {
	form := url.Values{}
	form.Set("domain_name", domain)

	var out struct {
		ID string `json:"id"`
	}
	return c.call(ctx, "register_apple_pay_domain", "POST", "/apple_pay/domains", form, &out)
}

func (c *Client) call(ctx context.Context, operation, method, path string, form url.Values, out interface{}) error {
	body, err := c.doRequest(ctx, operation, method, path, form)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs one HTTP request against the processor and decodes
// its error envelope on a non-2xx response.
func (c *Client) doRequest(ctx context.Context, operation, method, path string, form url.Values) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if method == fasthttp.MethodGet && len(form) > 0 {
		uri += "?" + form.Encode()
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	if method == fasthttp.MethodPost {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.Header.Set("Idempotency-Key", uuid.New().String())
		if len(form) > 0 {
			req.SetBodyString(form.Encode())
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}

	startTime := time.Now()
	err := c.client.DoDeadline(req, resp, deadline)
	prom.AddProcessorRequestDuration(time.Since(startTime).Seconds(), operation)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	logger.Debug("Processor request completed", "operation", operation, "status_code", statusCode, "latency_ms", time.Since(startTime).Milliseconds())

	if statusCode < fasthttp.StatusOK || statusCode >= fasthttp.StatusMultipleChoices {
		var wrapper errorWrapper
		if err := json.Unmarshal(resp.Body(), &wrapper); err == nil && wrapper.Error != nil {
			return nil, wrapper.Error
		}
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}
