package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lioncity-tours/gateway/internal/common"
	"github.com/lioncity-tours/gateway/internal/session"
)

// Handler exposes the checkout flow over HTTP.
type Handler struct {
	Svc      *Service
	Cookies  session.Cookies
	Validate *validator.Validate
}

// NewHandler wires a handler with a fresh validator.
func NewHandler(svc *Service, cookies session.Cookies) *Handler {
	return &Handler{Svc: svc, Cookies: cookies, Validate: validator.New()}
}

func (h *Handler) decodeSelection(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body must be valid JSON.", nil)
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Missing or invalid selection fields.", nil)
		return false
	}
	return true
}

// Quote handles POST /checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var sel Selection
	if !h.decodeSelection(w, r, &sel) {
		return
	}
	quote, err := h.Svc.QuoteSelection(r.Context(), sel)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Could not price this selection right now.", nil)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}

// Initiate handles POST /checkout.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if !h.decodeSelection(w, r, &req) {
		return
	}
	sid := h.Cookies.ID(w, r)
	resp, err := h.Svc.Initiate(r.Context(), sid, req)
	if err != nil {
		var ae *common.AppError
		if errors.As(err, &ae) {
			common.JSONError(w, ae.HTTPStatus, ae.Code, ae.Message, ae.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "Checkout failed.", nil)
		return
	}
	common.JSON(w, http.StatusCreated, resp)
}

// Result handles GET /checkout/result.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		orderID = r.URL.Query().Get("id")
	}
	sid, _ := h.Cookies.Peek(r)
	common.JSON(w, http.StatusOK, h.Svc.Reconcile(r.Context(), sid, orderID))
}

// Contact handles GET /checkout/contact, prefilling a repeat checkout.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	sid, ok := h.Cookies.Peek(r)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "No saved contact for this session.", nil)
		return
	}
	contact, found := h.Svc.ContactSnapshot(r.Context(), sid)
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "No saved contact for this session.", nil)
		return
	}
	common.JSON(w, http.StatusOK, contact)
}
