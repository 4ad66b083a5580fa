package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/booking"
	"github.com/lioncity-tours/gateway/internal/catalog"
	"github.com/lioncity-tours/gateway/internal/common"
	"github.com/lioncity-tours/gateway/internal/obs"
	"github.com/lioncity-tours/gateway/internal/payment"
	"github.com/lioncity-tours/gateway/internal/session"
)

// Currency is the only settlement currency the gateway books in.
const Currency = "SGD"

// Selection identifies the slot a buyer is checking out.
type Selection struct {
	TourID    int64  `json:"tourId" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time" validate:"required"`
	Quantity  int    `json:"quantity"`
	Remaining *int   `json:"remaining,omitempty"`
}

// Quote prices a selection without touching the backend's order machinery.
type Quote struct {
	TourName   string `json:"tourName,omitempty"`
	Quantity   int    `json:"quantity"`
	Ceiling    int    `json:"ceiling"`
	PriceKnown bool   `json:"priceKnown"`
	UnitPrice  string `json:"unitPrice,omitempty"`
	Total      string `json:"total,omitempty"`
}

// InitiateRequest is the full checkout submission.
type InitiateRequest struct {
	Selection
	Contact booking.Contact `json:"contact"`
}

// InitiateResponse hands the browser everything it needs to continue: the
// backend-issued order id and the hosted payment page URL.
type InitiateResponse struct {
	OrderID string `json:"orderId"`
	URL     string `json:"url"`
}

// Result is the reconciled outcome shown on the result view.
type Result struct {
	Status  payment.Status `json:"status"`
	OrderID string         `json:"orderId,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// Service drives the checkout flow: pricing, validation, order initiation
// against the backend, and result reconciliation. It keeps no order state of
// its own beyond the per-session snapshot in Sessions.
type Service struct {
	Catalog  *catalog.Service
	Gateway  *payment.Gateway
	Sessions *session.Store
	Provider string

	ReturnPath string
	BackPath   string

	Logger zerolog.Logger

	// now is swappable in tests so orderNo values are deterministic.
	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) provider() string {
	if s.Provider == "" {
		return payment.ProviderFomoPay
	}
	return s.Provider
}

// ceiling resolves the effective capacity ceiling for a selection.
func ceiling(remaining *int) int {
	if remaining == nil || *remaining < 1 {
		return booking.DefaultMaxQuantity
	}
	return *remaining
}

// QuoteSelection clamps the requested quantity and prices the selection.
// When the unit price is not yet known the quote still carries the clamped
// quantity; PriceKnown false tells the caller payment cannot start yet.
func (s *Service) QuoteSelection(ctx context.Context, sel Selection) (Quote, error) {
	limit := ceiling(sel.Remaining)
	qty := booking.ClampQuantity(sel.Quantity, limit)

	name, unitCents, known, err := s.Catalog.TourPrice(ctx, sel.TourID)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{TourName: name, Quantity: qty, Ceiling: limit, PriceKnown: known}
	if known {
		if total, ok := booking.Total(qty, unitCents); ok {
			q.UnitPrice = booking.FormatCents(unitCents)
			q.Total = booking.FormatCents(total)
		} else {
			q.PriceKnown = false
		}
	}
	return q, nil
}

// Initiate runs the authoritative pre-payment checks and opens a payment
// order with the backend. The session write happens strictly after the
// backend acknowledges the order and strictly before the hosted payment URL
// is released to the caller; losing that ordering loses the order id needed
// for reconciliation.
func (s *Service) Initiate(ctx context.Context, sid string, req InitiateRequest) (InitiateResponse, error) {
	contact := req.Contact.Trimmed()
	if fields := booking.ValidateContact(contact); len(fields) > 0 {
		return InitiateResponse{}, &common.AppError{
			Code:       "VALIDATION_FAILED",
			Message:    "Please correct the highlighted fields.",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    fields,
		}
	}

	name, unitCents, known, err := s.Catalog.TourPrice(ctx, req.TourID)
	if err != nil || !known {
		obs.OrderCreateTotal.WithLabelValues(s.provider(), "price_unknown").Inc()
		return InitiateResponse{}, &common.AppError{
			Code:       "PRICE_UNAVAILABLE",
			Message:    "Pricing for this tour is unavailable right now. Please try again.",
			HTTPStatus: http.StatusConflict,
			Err:        err,
		}
	}

	qty := booking.ClampQuantity(req.Quantity, ceiling(req.Remaining))
	totalCents, ok := booking.Total(qty, unitCents)
	if !ok {
		obs.OrderCreateTotal.WithLabelValues(s.provider(), "price_unknown").Inc()
		return InitiateResponse{}, &common.AppError{
			Code:       "PRICE_UNAVAILABLE",
			Message:    "Pricing for this tour is unavailable right now. Please try again.",
			HTTPStatus: http.StatusConflict,
		}
	}

	// Fresh per attempt so an abandoned checkout never collides with a
	// later one.
	orderNo := fmt.Sprintf("book-%d", s.clock().UnixNano())

	order, err := s.Gateway.CreateOrder(ctx, s.provider(), payment.OrderRequest{
		Amount:      booking.FormatCents(totalCents),
		Currency:    Currency,
		Subject:     fmt.Sprintf("%s x %d", name, qty),
		Description: fmt.Sprintf("%s on %s at %s for %d", name, req.Date, req.Time, qty),
		OrderNo:     orderNo,
		ReturnPath:  s.ReturnPath,
		BackPath:    s.BackPath,
		Customer: payment.Customer{
			Name:  contact.Name,
			Email: contact.Email,
			Phone: contact.Phone,
		},
	})
	if err != nil {
		var ce *payment.CreationError
		if errors.As(err, &ce) {
			obs.OrderCreateTotal.WithLabelValues(s.provider(), "refused").Inc()
			return InitiateResponse{}, &common.AppError{
				Code:       "ORDER_REFUSED",
				Message:    ce.Message,
				HTTPStatus: http.StatusBadGateway,
				Err:        ce,
			}
		}
		obs.OrderCreateTotal.WithLabelValues(s.provider(), "backend_error").Inc()
		return InitiateResponse{}, &common.AppError{
			Code:       "BACKEND_UNAVAILABLE",
			Message:    "Could not reach the booking service. Please try again.",
			HTTPStatus: http.StatusBadGateway,
			Err:        err,
		}
	}

	if err := s.Sessions.SaveCheckout(ctx, sid, session.Checkout{
		OrderID: order.OrderID,
		Contact: contact,
	}); err != nil {
		// Without the session snapshot the result page cannot reconcile,
		// so the payment URL is withheld.
		obs.OrderCreateTotal.WithLabelValues(s.provider(), "session_error").Inc()
		s.Logger.Error().Err(err).Str("order_id", order.OrderID).Msg("checkout session write failed")
		return InitiateResponse{}, &common.AppError{
			Code:       "SESSION_UNAVAILABLE",
			Message:    "Could not start checkout. Please try again.",
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        err,
		}
	}

	obs.OrderCreateTotal.WithLabelValues(s.provider(), "created").Inc()
	s.Logger.Info().
		Str("order_id", order.OrderID).
		Str("order_no", orderNo).
		Str("amount", booking.FormatCents(totalCents)).
		Int("quantity", qty).
		Msg("payment order created")
	return InitiateResponse{OrderID: order.OrderID, URL: order.URL}, nil
}

// Reconcile resolves the final order status for the result view. The session
// snapshot wins over the query parameter; with neither the status is UNKNOWN
// and no backend call is made.
func (s *Service) Reconcile(ctx context.Context, sid, queryOrderID string) Result {
	orderID := queryOrderID
	if sid != "" {
		if state, ok, err := s.Sessions.LoadCheckout(ctx, sid); err == nil && ok && state.OrderID != "" {
			orderID = state.OrderID
		} else if err != nil {
			s.Logger.Warn().Err(err).Msg("checkout session read failed")
		}
	}
	if orderID == "" {
		obs.ReconcileTotal.WithLabelValues(s.provider(), "no_order_id").Inc()
		return Result{
			Status: payment.StatusUnknown,
			Detail: "No order reference found. If you completed a payment, please contact support.",
		}
	}

	st, err := s.Gateway.QueryOrder(ctx, s.provider(), orderID)
	if err != nil {
		obs.ReconcileTotal.WithLabelValues(s.provider(), "query_error").Inc()
		s.Logger.Warn().Err(err).Str("order_id", orderID).Msg("order status query failed")
		return Result{
			Status:  payment.StatusUnknown,
			OrderID: orderID,
			Detail:  "Payment status could not be determined. Please contact support.",
		}
	}

	status := payment.MapStatus(st.Reported())
	obs.ReconcileTotal.WithLabelValues(s.provider(), string(status)).Inc()
	res := Result{Status: status, OrderID: orderID}
	if status == payment.StatusUnknown {
		res.Detail = "Payment status could not be determined. Please contact support."
	}
	return res
}

// ContactSnapshot returns the contact saved for the session, for prefilling
// a repeat checkout. The second return reports whether one existed.
func (s *Service) ContactSnapshot(ctx context.Context, sid string) (booking.Contact, bool) {
	state, ok, err := s.Sessions.LoadCheckout(ctx, sid)
	if err != nil || !ok {
		return booking.Contact{}, false
	}
	return state.Contact, true
}
