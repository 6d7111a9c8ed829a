package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	alertdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	cartdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/cart/domain"
	catalogdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	gatewaydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError translates domain errors into HTTP responses. Gateway and
// storage internals never leak to clients.
func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, cartdomain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "empty_cart",
			Message: "cart has no lines",
		}
	case errors.Is(err, cartdomain.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_quantity",
			Message: "line quantity out of range",
		}
	case errors.Is(err, cartdomain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "product_unavailable",
			Message: "a cart line references an unavailable product",
		}
	case errors.Is(err, gatewaydomain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable, retry later",
		}
	case errors.Is(err, gatewaydomain.ErrInvalidSignature),
		errors.Is(err, gatewaydomain.ErrInvalidPayload),
		errors.Is(err, gatewaydomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_callback",
			Message: "callback rejected",
		}
	case errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, alertdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
