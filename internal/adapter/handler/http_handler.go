package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/market-checkout/internal/core/domain"
	"github.com/rl1809/market-checkout/internal/core/service"
)

// HealthChecker reports whether the marketplace backend is reachable.
type HealthChecker interface {
	Healthy() bool
}

type HTTPHandler struct {
	session  *service.SessionService
	cart     *service.CartService
	checkout *service.CheckoutService
	history  *service.HistoryService
	health   HealthChecker
	logger   *zap.Logger
}

func NewHTTPHandler(
	session *service.SessionService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	history *service.HistoryService,
	health HealthChecker,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		session:  session,
		cart:     cart,
		checkout: checkout,
		history:  history,
		health:   health,
		logger:   logger,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/login", h.Login)
		r.Get("/session", h.GetSession)
		r.Post("/session/promo", h.ClaimPromo)
		r.Put("/session/profile", h.UpdateProfile)
		r.Delete("/session", h.Logout)

		r.Get("/cart", h.GetCart)
		r.Put("/cart/{lineID}", h.UpdateQuantity)

		r.Post("/checkout", h.Checkout)
		r.Get("/checkout/{id}", h.GetCheckout)

		r.Get("/history", h.GetHistory)
	})
	return r
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: true, Message: "invalid request body"})
		return
	}

	sess, err := h.session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(h.session.Current()))
}

func (h *HTTPHandler) ClaimPromo(w http.ResponseWriter, r *http.Request) {
	if !h.session.Current().Authenticated() {
		h.writeError(w, domain.ErrNotLoggedIn)
		return
	}
	if err := h.session.ClaimPromo(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(h.session.Current()))
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: true, Message: "invalid request body"})
		return
	}
	if !h.session.Current().Authenticated() {
		h.writeError(w, domain.ErrNotLoggedIn)
		return
	}
	if err := h.session.UpdateProfile(r.Context(), req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(h.session.Current()))
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCart reloads the cart from the backend and returns its view state. A
// failed reload still answers with the error state.
func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	_, err := h.cart.Load(r.Context(), h.session.Current().Token)
	h.writeCartState(w, err)
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: true, Message: "invalid request body"})
		return
	}

	lineID := chi.URLParam(r, "lineID")
	_, err := h.cart.SetQuantity(r.Context(), h.session.Current().Token, lineID, req.Quantity)
	h.writeCartState(w, err)
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: true, Message: "invalid request body"})
		return
	}

	outcome, err := h.checkout.Checkout(r.Context(), req.toDomain())
	if outcome == nil {
		h.writeError(w, err)
		return
	}

	view := newCheckoutView(*outcome)
	status, state := http.StatusOK, domain.Success(view)
	switch {
	case errors.Is(err, service.ErrPartialCheckout):
		status, state = http.StatusMultiStatus, domain.Failure[CheckoutView](outcome.Summary())
	case errors.Is(err, service.ErrCheckoutFailed):
		status, state = http.StatusUnprocessableEntity, domain.Failure[CheckoutView](outcome.FirstFailure())
	}

	writeJSON(w, status, CheckoutResponse{View: state, Outcome: view})
}

func (h *HTTPHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.checkout.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if outcome == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: true, Message: "checkout not found"})
		return
	}
	writeJSON(w, http.StatusOK, newCheckoutView(*outcome))
}

func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	_, err := h.history.Load(r.Context())
	if errors.Is(err, domain.ErrNotLoggedIn) {
		h.writeError(w, err)
		return
	}
	writeJSON(w, statusFor(err), domain.MapState(h.history.State(), newHistoryView))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	api := "up"
	if h.health != nil && !h.health.Healthy() {
		api = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "api": api})
}

func (h *HTTPHandler) writeCartState(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotLoggedIn) || errors.Is(err, domain.ErrInvalidQuantity) {
		h.writeError(w, err)
		return
	}
	stale := h.cart.IsStale()
	state := domain.MapState(h.cart.State(), func(c domain.Cart) CartView {
		return newCartView(c, stale)
	})
	writeJSON(w, statusFor(err), state)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: true, Message: domain.ErrorMessage(err)})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDuplicateCheckout), errors.Is(err, domain.ErrStaleCart):
		return http.StatusConflict
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsApplicationError(err):
		return http.StatusUnprocessableEntity
	case domain.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
