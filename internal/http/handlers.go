package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fleetops/busbooking/internal/booking"
	"github.com/fleetops/busbooking/internal/config"
	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/idempotency"
	"github.com/fleetops/busbooking/internal/observability"
)

// Handlers are thin adapters: decode, call the core, encode. All seat
// logic lives behind the four core components.
type Handlers struct {
	cfg       *config.Config
	inventory *booking.Inventory
	holds     *booking.HoldManager
	lifecycle *booking.Lifecycle
	payments  *booking.PaymentPolicy
	idemp     *idempotency.Idempotency
	logger    observability.Logger
}

func NewHandlers(cfg *config.Config, inventory *booking.Inventory, holds *booking.HoldManager, lifecycle *booking.Lifecycle, payments *booking.PaymentPolicy, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		inventory: inventory,
		holds:     holds,
		lifecycle: lifecycle,
		payments:  payments,
		idemp:     idemp,
		logger:    logger,
	}
}

func (h *Handlers) AvailableSeats(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid trip id"))
		return
	}
	avail, err := h.inventory.Availability(r.Context(), tripID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAvailabilityResponse(avail))
}

func (h *Handlers) CreateHold(w http.ResponseWriter, r *http.Request) {
	if h.replayIdempotent(w, r) {
		return
	}

	var req struct {
		TripID           uuid.UUID `json:"trip_id"`
		SeatNo           int       `json:"seat_no"`
		ExpiresInMinutes int       `json:"expires_in_minutes"`
		Channel          string    `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	holderID, err := callerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ttl := h.cfg.HoldTTL
	if req.Channel == "agent" {
		ttl = h.cfg.AgentHoldTTL
	}
	if req.ExpiresInMinutes > 0 {
		ttl = time.Duration(req.ExpiresInMinutes) * time.Minute
	}

	hold, err := h.holds.Acquire(r.Context(), req.TripID, req.SeatNo, holderID, ttl)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondIdempotent(w, r, http.StatusCreated, map[string]any{"hold": toHoldResponse(hold)})
}

func (h *Handlers) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	holdID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Idempotent by contract: a malformed or unknown id still gets 200.
		h.writeJSON(w, http.StatusOK, map[string]any{"released": false})
		return
	}
	holderID, err := callerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.holds.ReleaseByID(r.Context(), holdID, holderID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"released": true})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	if h.replayIdempotent(w, r) {
		return
	}

	var req struct {
		TripID         uuid.UUID `json:"trip_id"`
		SeatNo         int       `json:"seat_no"`
		PassengerID    uuid.UUID `json:"passenger_id"`
		PassengerName  string    `json:"passenger_name"`
		PassengerPhone string    `json:"passenger_phone"`
		Price          float64   `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	holderID, err := callerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	b, err := h.lifecycle.Create(r.Context(), booking.CreateParams{
		TripID:         req.TripID,
		SeatNo:         req.SeatNo,
		PassengerID:    req.PassengerID,
		PassengerName:  req.PassengerName,
		PassengerPhone: req.PassengerPhone,
		Amount:         req.Price,
		HolderID:       holderID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondIdempotent(w, r, http.StatusCreated, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}
	b, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if h.replayIdempotent(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}

	var req struct {
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"payment_method"`
		TransactionID string  `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	amount := req.Amount
	if amount == 0 {
		// No amount means settle the outstanding balance.
		b, err := h.lifecycle.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		amount = domain.RoundMoney(b.TotalAmount - b.AmountPaid)
	}

	b, err := h.payments.ApplyPayment(r.Context(), id, amount, req.PaymentMethod, req.TransactionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondIdempotent(w, r, http.StatusOK, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	if h.replayIdempotent(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	b, refunded, err := h.payments.Refund(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondIdempotent(w, r, http.StatusOK, map[string]any{
		"booking":  toBookingResponse(b),
		"refunded": refunded,
	})
}

func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}
	operatorID, err := callerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	b, err := h.lifecycle.CheckIn(r.Context(), id, operatorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	b, err := h.lifecycle.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid booking id"))
		return
	}
	b, err := h.lifecycle.MarkNoShow(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"booking": toBookingResponse(b)})
}

func (h *Handlers) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	ticketNo := chi.URLParam(r, "ticketNo")
	tripID, err := uuid.Parse(r.URL.Query().Get("trip_id"))
	if err != nil {
		h.writeError(w, errors.Wrap(domain.ErrInvalidInput, "invalid trip id"))
		return
	}
	result, err := h.lifecycle.ValidateTicket(r.Context(), ticketNo, tripID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := map[string]any{"state": result.State, "reason": result.Reason}
	if result.Booking != nil {
		resp["booking"] = toBookingResponse(*result.Booking)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// callerID resolves the actor identity set by the auth layer upstream.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.UUID{}, errors.Wrap(domain.ErrInvalidInput, "missing X-User-ID header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.Wrap(domain.ErrInvalidInput, "invalid X-User-ID header")
	}
	return id, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) []byte {
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to marshal response: ", err)
		w.WriteHeader(http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "INTERNAL"

	switch {
	case domain.Kind(err) != "":
		kind = domain.Kind(err)
		status = http.StatusBadRequest
		if errors.Is(err, domain.ErrTripNotFound) {
			status = http.StatusNotFound
		}
	case errors.Is(err, domain.ErrNotFound):
		kind = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		kind = "INVALID_INPUT"
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSerializationFailure):
		// Retries exhausted in the core; the client may try again.
		kind = "CONFLICT"
		status = http.StatusConflict
	default:
		h.logger.Error("request failed: ", err)
	}

	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{"kind": kind, "message": err.Error()},
	})
}

// replayIdempotent serves a cached response when the Idempotency-Key was
// seen before. Reports true when the request was handled.
func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("Idempotency-Key")
	cached, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		h.logger.Warn("idempotency lookup failed: ", err)
		return false
	}
	if cached == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(cached.Status)
	w.Write(cached.Result)
	return true
}

func (h *Handlers) respondIdempotent(w http.ResponseWriter, r *http.Request, status int, body any) {
	data := h.writeJSON(w, status, body)
	if data == nil {
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: data}); err != nil {
		h.logger.Warn("idempotency store failed: ", err)
	}
}
