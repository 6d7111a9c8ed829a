package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/cart/domain"
	gatewaydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
)

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req cartdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.cartSvc.Checkout(c.Request.Context(), buyerRef(c), req)
	if err != nil {
		// A reachable draft is returned even when the gateway is down so
		// the client can retry payment against the same order.
		if errors.Is(err, gatewaydomain.ErrGatewayUnavailable) && resp != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"order": resp.Order,
				"error": errorPayload{
					Type:    "gateway_unavailable",
					Message: "payment gateway unavailable, retry later",
				},
			})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), buyerRef(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListOrders(c *gin.Context) {
	resp, err := s.orderSvc.List(c.Request.Context(), buyerRef(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}
