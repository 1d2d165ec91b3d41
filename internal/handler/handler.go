// Package handler exposes the order factory over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-factory/internal/domain/order"
	"github.com/xenking/order-factory/pkg/httpmiddleware"
)

// maxBodyBytes bounds the checkout payload.
const maxBodyBytes = 1 << 20

// OrderCreator is implemented by *order.Factory.
type OrderCreator interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Order, error)
}

// Handler serves the order API.
type Handler struct {
	orders OrderCreator
}

// NewHandler returns a Handler creating orders through orders.
func NewHandler(orders OrderCreator) *Handler {
	return &Handler{orders: orders}
}

// Routes mounts the API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := decodeCreateRequest(jx.Decode(body, 4096))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	o, err := h.orders.Create(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	zctx.From(ctx).Info("Order created",
		zap.Int64("order_id", o.ID),
		zap.String("number", o.Number),
		zap.Int("lines", len(o.Lines)),
	)

	var e jx.Encoder
	encodeOrder(&e, o)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(e.Bytes())
}

// requestError marks a payload that could not be decoded.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		reqErr     *requestError
		addrErr    *order.AddressDataError
		notFound   *order.ProductNotFoundError
		maxBodyErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBodyErr):
		httpmiddleware.WriteError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.As(err, &reqErr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, order.ErrInvalidOrderType):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid_order_type", err.Error())
	case errors.Is(err, order.ErrEmptyOrder):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "empty_order", err.Error())
	case errors.As(err, &addrErr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "address_data", err.Error())
	case errors.As(err, &notFound):
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, "product_not_found", err.Error())
	default:
		zctx.From(ctx).Error("Create order", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
