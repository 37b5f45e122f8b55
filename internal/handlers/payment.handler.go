package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	gateway "github.com/nimasrn/payment-gateway/internal/gateways"
	"github.com/nimasrn/payment-gateway/internal/model"
	xhttp "github.com/nimasrn/payment-gateway/pkg/http"
)

type PaymentService interface {
	Register(ctx context.Context, req model.RegisterRequest) (bool, []string)
	Authorise(ctx context.Context, paymentID int64, paymentMethodID, returnURL string) (bool, []string)
	Capture(ctx context.Context, paymentID int64, amount float64) (bool, []string)
	Refund(ctx context.Context, paymentID int64, amount float64) (bool, []string)
	Cancel(ctx context.Context, paymentID int64) (bool, []string)
	Void(ctx context.Context, paymentID int64) (bool, []string)
	Get(ctx context.Context, id int64) (*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
}

type CustomerService interface {
	PaymentMethods(ctx context.Context, contactID int64) ([]gateway.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
}

// RegisterLocker serialises register calls per order/invoice. Optional;
// a nil locker leaves registration unserialised.
type RegisterLocker interface {
	Acquire(ctx context.Context, req model.RegisterRequest) (func(), error)
}

type PaymentHandler struct {
	svc       PaymentService
	customers CustomerService
	lock      RegisterLocker
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments/register", h.Register)
	e.POST("/payments/{id}/authorise", h.Authorise)
	e.POST("/payments/{id}/capture", h.Capture)
	e.POST("/payments/{id}/refund", h.Refund)
	e.POST("/payments/{id}/cancel", h.Cancel)
	e.POST("/payments/{id}/void", h.Void)
	e.GET("/payments", h.ListPayments)
	e.GET("/payments/{id}", h.GetPayment)
	e.GET("/contacts/{id}/payment-methods", h.ListPaymentMethods)
	e.POST("/payment-methods/{id}/detach", h.DetachPaymentMethod)
}

func NewPaymentHandler(paymentService PaymentService, customerService CustomerService, lock RegisterLocker) *PaymentHandler {
	return &PaymentHandler{
		svc:       paymentService,
		customers: customerService,
		lock:      lock,
	}
}

type registerRequest struct {
	ContactID       *int64  `json:"contact_id"`
	OrderID         *int64  `json:"order_id"`
	InvoiceID       *int64  `json:"invoice_id"`
	Total           float64 `json:"total"`
	PaymentMethodID string  `json:"payment_method_id"`
	ReturnURL       string  `json:"return_url"`
}

type confirmRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	ReturnURL       string `json:"return_url"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type outcomeResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

type listResponse struct {
	Items []*model.Payment `json:"items"`
	Total int64            `json:"total"`
}

type paymentMethodsResponse struct {
	Items []gateway.PaymentMethod `json:"items"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) Register(ctx *xhttp.RequestCtx) {
	var req registerRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.RegisterRequest{
		ContactID:       req.ContactID,
		OrderID:         req.OrderID,
		InvoiceID:       req.InvoiceID,
		Total:           req.Total,
		PaymentMethodID: req.PaymentMethodID,
		ReturnURL:       req.ReturnURL,
	}
	if err := p.Validate(); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	if h.lock != nil {
		release, err := h.lock.Acquire(ctx, p)
		if err != nil {
			writeError(ctx, 409, "registration already in progress")
			return
		}
		defer release()
	}

	ok, errs := h.svc.Register(ctx, p)
	writeOutcome(ctx, ok, errs)
}

func (h *PaymentHandler) Authorise(ctx *xhttp.RequestCtx) {
	id, ok := h.paymentID(ctx)
	if !ok {
		return
	}

	var req confirmRequest
	if len(ctx.PostBody()) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, 400, "invalid JSON: "+err.Error())
			return
		}
	}

	success, errs := h.svc.Authorise(ctx, id, req.PaymentMethodID, req.ReturnURL)
	writeOutcome(ctx, success, errs)
}

func (h *PaymentHandler) Capture(ctx *xhttp.RequestCtx) {
	id, ok := h.paymentID(ctx)
	if !ok {
		return
	}

	var req amountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(ctx, 400, "amount must be positive")
		return
	}

	success, errs := h.svc.Capture(ctx, id, req.Amount)
	writeOutcome(ctx, success, errs)
}

func (h *PaymentHandler) Refund(ctx *xhttp.RequestCtx) {
	id, ok := h.paymentID(ctx)
	if !ok {
		return
	}

	var req amountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(ctx, 400, "amount must be positive")
		return
	}

	success, errs := h.svc.Refund(ctx, id, req.Amount)
	writeOutcome(ctx, success, errs)
}

func (h *PaymentHandler) Cancel(ctx *xhttp.RequestCtx) {
	id, ok := h.paymentID(ctx)
	if !ok {
		return
	}

	success, errs := h.svc.Cancel(ctx, id)
	writeOutcome(ctx, success, errs)
}

func (h *PaymentHandler) Void(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid payment id")
		return
	}

	success, errs := h.svc.Void(ctx, id)
	if !success {
		writeJSON(ctx, 501, outcomeResponse{Success: false, Errors: errs})
		return
	}
	writeOutcome(ctx, success, errs)
}

func (h *PaymentHandler) GetPayment(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid payment id")
		return
	}

	payment, err := h.svc.Get(ctx, id)
	if err != nil {
		writeError(ctx, 404, "payment not found")
		return
	}
	writeJSON(ctx, 200, payment)
}

func (h *PaymentHandler) ListPayments(ctx *xhttp.RequestCtx) {
	var f model.PaymentFilter

	if v := query(ctx, "order_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.OrderID = &id
		}
	}
	if v := query(ctx, "invoice_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.InvoiceID = &id
		}
	}
	if v := query(ctx, "type"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Types = append(f.Types, model.TransactionType(strings.ToUpper(parts[i])))
			}
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, listResponse{Items: items, Total: total})
}

func (h *PaymentHandler) ListPaymentMethods(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid contact id")
		return
	}

	methods, err := h.customers.PaymentMethods(ctx, id)
	if err != nil {
		writeError(ctx, 404, "contact not found")
		return
	}
	if methods == nil {
		methods = []gateway.PaymentMethod{}
	}
	writeJSON(ctx, 200, paymentMethodsResponse{Items: methods})
}

func (h *PaymentHandler) DetachPaymentMethod(ctx *xhttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		writeError(ctx, 400, "invalid payment method id")
		return
	}

	if err := h.customers.DetachPaymentMethod(ctx, id); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, outcomeResponse{Success: true})
}

// paymentID parses the path id and verifies the row exists, writing the
// error response itself when it does not.
func (h *PaymentHandler) paymentID(ctx *xhttp.RequestCtx) (int64, bool) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid payment id")
		return 0, false
	}
	if _, err := h.svc.Get(ctx, id); err != nil {
		writeError(ctx, 404, "payment not found")
		return 0, false
	}
	return id, true
}

func writeOutcome(ctx *xhttp.RequestCtx, success bool, errs []string) {
	status := 200
	if !success {
		status = 402
	}
	writeJSON(ctx, status, outcomeResponse{Success: success, Errors: errs})
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	idStr, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(idStr, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
