package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/backend"
)

// ProviderFomoPay names the only payment provider currently wired.
const ProviderFomoPay = "fomopay"

// Customer is the contact snapshot attached to a payment order.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// OrderRequest is the payload forwarded to the backend to open a payment
// order. Amount is a fixed two-decimal string such as "89.00".
type OrderRequest struct {
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	OrderNo     string   `json:"orderNo"`
	ReturnPath  string   `json:"returnPath"`
	BackPath    string   `json:"backPath"`
	Customer    Customer `json:"customer"`
}

// Order is the backend's answer to a creation request. URL is the hosted
// payment page the browser is sent to.
type Order struct {
	OrderID string `json:"orderId"`
	URL     string `json:"url"`
}

// OrderStatus is the backend's view of an order when queried by id. The
// status field name varies across backend versions, hence both mappings.
type OrderStatus struct {
	OrderID     string `json:"orderId"`
	OrderNo     string `json:"orderNo"`
	Status      string `json:"status"`
	OrderStatus string `json:"orderStatus"`
	Amount      string `json:"amount"`
}

// Reported returns whichever status field the backend populated.
func (s OrderStatus) Reported() string {
	if s.Status != "" {
		return s.Status
	}
	return s.OrderStatus
}

// CreationError carries the backend's own message so the buyer sees the
// real reason an order was refused, not a generic failure.
type CreationError struct {
	StatusCode int
	Message    string
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("payment: order creation failed (%d): %s", e.StatusCode, e.Message)
}

// Gateway creates and queries payment orders through the backend API.
type Gateway struct {
	Backend *backend.Client
	Logger  zerolog.Logger
}

// CreateOrder opens a payment order with the provider via the backend. A
// non-2xx backend answer becomes a *CreationError with the backend's message
// intact. The returned Order is only valid when err is nil and OrderID is
// non-empty.
func (g *Gateway) CreateOrder(ctx context.Context, provider string, req OrderRequest) (Order, error) {
	var order Order
	path := fmt.Sprintf("/payments/%s/create", url.PathEscape(provider))
	err := g.Backend.PostJSON(ctx, path, req, &order)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) {
			g.Logger.Warn().
				Str("provider", provider).
				Str("order_no", req.OrderNo).
				Int("status", se.StatusCode).
				Msg("payment order refused")
			return Order{}, &CreationError{StatusCode: se.StatusCode, Message: se.Message()}
		}
		return Order{}, err
	}
	if order.OrderID == "" || order.URL == "" {
		return Order{}, &CreationError{StatusCode: 502, Message: "payment order response incomplete"}
	}
	return order, nil
}

// QueryOrder fetches the current state of an order from the backend.
func (g *Gateway) QueryOrder(ctx context.Context, provider, orderID string) (OrderStatus, error) {
	var st OrderStatus
	path := fmt.Sprintf("/payments/%s/orders/%s", url.PathEscape(provider), url.PathEscape(orderID))
	if err := g.Backend.GetJSON(ctx, path, &st); err != nil {
		return OrderStatus{}, err
	}
	return st, nil
}
