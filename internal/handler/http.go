package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/internal/middleware"
	"github.com/SergeyBogomolovv/storefront-orders/internal/service"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/utils"
)

type OrderService interface {
	CreateOrder(ctx context.Context, who entities.Identity, draft entities.OrderDraft) (entities.Order, error)
	GetOrder(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error)
	ListOrdersForUser(ctx context.Context, who entities.Identity, userID, pageToken string, limit int) (service.Page, error)

	CreatePaymentIntent(ctx context.Context, who entities.Identity, orderID string) (string, error)
	CapturePayment(ctx context.Context, who entities.Identity, orderID, intentRef string) (entities.Order, error)
	ConfirmPayment(ctx context.Context, who entities.Identity, orderID string, capture entities.Capture) (entities.Order, error)

	MarkDelivered(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error)
}

type HTTPHandler struct {
	logger       *slog.Logger
	validate     *validator.Validate
	svc          OrderService
	authenticate func(http.Handler) http.Handler
	paypal       PayPalConfig
}

func NewHTTPHandler(logger *slog.Logger, svc OrderService, authenticate func(http.Handler) http.Handler, paypal PayPalConfig) *HTTPHandler {
	return &HTTPHandler{
		logger:       logger.With(slog.String("handler", "http")),
		validate:     validator.New(),
		svc:          svc,
		authenticate: authenticate,
		paypal:       paypal,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Get("/api/config/paypal", h.GetPayPalConfig)

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(h.authenticate, middleware.RequireIdentity)

		r.Post("/", h.CreateOrder)
		r.Get("/mine", h.ListMyOrders)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(checkID)

			r.Get("/", h.GetOrder)
			r.Post("/payment-intent", h.CreatePaymentIntent)
			r.Post("/capture", h.CapturePayment)
			r.Put("/pay", h.ConfirmPayment)
			r.Put("/deliver", h.MarkDelivered)
		})
	})
}

// checkID rejects ids that can never name an order before any lookup happens.
func checkID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := uuid.Validate(id); err != nil {
			utils.WriteError(w, fmt.Sprintf("invalid order id: %s", id), http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPayPalConfig returns the public PayPal settings.
// @Summary      PayPal client configuration
// @Description  Returns the PayPal client id and the currency used by the storefront
// @Tags         config
// @Produce      json
// @Success      200  {object}  PayPalConfig
// @Router       /api/config/paypal [get]
func (h *HTTPHandler) GetPayPalConfig(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.paypal, http.StatusOK)
}

// CreateOrder places a new order for the caller.
// @Summary      Place an order
// @Description  Prices the items from the catalog, computes totals and stores the order as placed
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        order  body      CreateOrderRequest  true  "Order"
// @Success      201    {object}  Order
// @Failure      400    {object}  utils.ValidationErrorResponse "Invalid request"
// @Failure      401    {object}  utils.ErrorResponse "Not authenticated"
// @Failure      503    {object}  utils.ErrorResponse "Store unavailable"
// @Router       /api/orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.CreateOrder(ctx, middleware.IdentityFromContext(ctx), CreateOrderJSONToEntity(req))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

// ListMyOrders returns the caller's orders, newest first.
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        limit       query     int     false  "Page size (default 25, max 100)"
// @Param        page_token  query     string  false  "Token from the previous page"
// @Success      200         {object}  OrdersPage
// @Failure      400         {object}  utils.ErrorResponse "Invalid page token"
// @Failure      401         {object}  utils.ErrorResponse "Not authenticated"
// @Router       /api/orders/mine [get]
func (h *HTTPHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who := middleware.IdentityFromContext(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.WriteError(w, fmt.Sprintf("invalid limit: %s", raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	page, err := h.svc.ListOrdersForUser(ctx, who, who.ID, r.URL.Query().Get("page_token"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	res := OrdersPage{
		Orders:        make([]Order, 0, len(page.Orders)),
		NextPageToken: page.NextPageToken,
	}
	for _, o := range page.Orders {
		res.Orders = append(res.Orders, OrderEntityToJSON(o))
	}
	utils.WriteJSON(w, res, http.StatusOK)
}

// GetOrder returns an order to its owner or an admin.
// @Summary      Get order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  Order
// @Failure      400  {object}  utils.ErrorResponse "Invalid id"
// @Failure      403  {object}  utils.ErrorResponse "Not the owner"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Router       /api/orders/{id} [get]
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.svc.GetOrder(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// CreatePaymentIntent opens a provider checkout for the order total.
// @Summary      Create payment intent
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  IntentResponse
// @Failure      403  {object}  utils.ErrorResponse "Not the owner"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Order already paid"
// @Failure      502  {object}  utils.ErrorResponse "Payment provider failure"
// @Router       /api/orders/{id}/payment-intent [post]
func (h *HTTPHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ref, err := h.svc.CreatePaymentIntent(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, IntentResponse{IntentRef: ref}, http.StatusOK)
}

// CapturePayment captures an approved intent and marks the order paid.
// @Summary      Capture payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Order id"
// @Param        capture  body      CaptureRequest  true  "Intent to capture"
// @Success      200      {object}  Order
// @Failure      403      {object}  utils.ErrorResponse "Not the owner"
// @Failure      404      {object}  utils.ErrorResponse "Order not found"
// @Failure      409      {object}  utils.ErrorResponse "Amount mismatch or duplicate payment"
// @Failure      502      {object}  utils.ErrorResponse "Payment provider failure"
// @Router       /api/orders/{id}/capture [post]
func (h *HTTPHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CaptureRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.svc.CapturePayment(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"), req.IntentRef)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ConfirmPayment applies a capture the client completed with the provider.
// @Summary      Mark order as paid
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Order id"
// @Param        capture  body      ConfirmPaymentRequest  true  "Capture details"
// @Success      200      {object}  Order
// @Failure      403      {object}  utils.ErrorResponse "Not the owner"
// @Failure      404      {object}  utils.ErrorResponse "Order not found"
// @Failure      409      {object}  utils.ErrorResponse "Amount mismatch or duplicate payment"
// @Router       /api/orders/{id}/pay [put]
func (h *HTTPHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ConfirmPaymentRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	capture := entities.Capture{
		TransactionID: req.TransactionID,
		Amount:        MoneyJSONToEntity(req.Amount),
	}
	order, err := h.svc.ConfirmPayment(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"), capture)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// MarkDelivered moves a paid order to delivered.
// @Summary      Mark order as delivered
// @Description  Admin only
// @Tags         fulfillment
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order id"
// @Success      200  {object}  Order
// @Failure      403  {object}  utils.ErrorResponse "Not an admin"
// @Failure      404  {object}  utils.ErrorResponse "Order not found"
// @Failure      409  {object}  utils.ErrorResponse "Not paid or already delivered"
// @Router       /api/orders/{id}/deliver [put]
func (h *HTTPHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.svc.MarkDelivered(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entities.ErrEmptyOrder),
		errors.Is(err, entities.ErrInvalidLineItem),
		errors.Is(err, entities.ErrCatalogMismatch),
		errors.Is(err, entities.ErrInvalidCapture),
		errors.Is(err, service.ErrInvalidPageToken):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, entities.ErrForbidden):
		utils.WriteError(w, "forbidden", http.StatusForbidden)

	case errors.Is(err, entities.ErrOrderNotFound):
		utils.WriteError(w, "order not found", http.StatusNotFound)

	case errors.Is(err, entities.ErrAmountMismatch),
		errors.Is(err, entities.ErrDuplicatePaymentAttempt),
		errors.Is(err, entities.ErrAlreadyPaid),
		errors.Is(err, entities.ErrNotPaid),
		errors.Is(err, entities.ErrAlreadyDelivered):
		utils.WriteError(w, err.Error(), http.StatusConflict)

	case errors.Is(err, entities.ErrPaymentGateway):
		h.logger.ErrorContext(r.Context(), "payment provider failed", slog.Any("error", err))
		utils.WriteError(w, "payment provider unavailable", http.StatusBadGateway)

	case errors.Is(err, entities.ErrStoreUnavailable), errors.Is(err, context.Canceled):
		h.logger.ErrorContext(r.Context(), "store unavailable", slog.Any("error", err))
		w.Header().Set("Retry-After", "1")
		utils.WriteError(w, "service temporarily unavailable", http.StatusServiceUnavailable)

	default:
		h.logger.ErrorContext(r.Context(), "unexpected error", slog.Any("error", err), slog.String("path", r.URL.Path))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}
