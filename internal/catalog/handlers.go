package catalog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/common"
)

// Handler exposes the read-only catalog endpoints consumed by the storefront.
type Handler struct {
	Svc *Service
}

// Tours lists the available tour products.
func (h *Handler) Tours(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	tours, err := h.Svc.Tours(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "unable to load tours", nil)
		return
	}
	common.JSON(w, http.StatusOK, tours)
}

// Availability relays a month-availability query for one tour.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	tourID, ok := tourIDParam(w, r)
	if !ok {
		return
	}
	h.Svc.Backend.Forward(w, r, fmt.Sprintf("/tours/%d/availability", tourID), backend.ForwardOptions{Target: "catalog"})
}

// DaySlots relays the timeslot listing for one tour and date.
func (h *Handler) DaySlots(w http.ResponseWriter, r *http.Request) {
	tourID, ok := tourIDParam(w, r)
	if !ok {
		return
	}
	date := strings.TrimSpace(chi.URLParam(r, "date"))
	if date == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date is required", nil)
		return
	}
	h.Svc.Backend.Forward(w, r, fmt.Sprintf("/tours/%d/day/%s", tourID, date), backend.ForwardOptions{Target: "catalog"})
}

func tourIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "tourID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tour id", nil)
		return 0, false
	}
	return id, true
}
