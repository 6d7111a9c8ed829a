package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	gatewaydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

// handlePaymentWebhook verifies, records and applies a gateway callback.
// Every verified delivery is acknowledged with 200 so the gateway stops
// retrying; only verification failures earn a 4xx.
func (s *Server) handlePaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.gatewaySvc.VerifyCallback(payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
			return
		}
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.ApplyPaymentNotice(c.Request.Context(), orderdomain.PaymentNotice{
		EventID:   event.EventID,
		IntentRef: event.IntentRef,
		Status:    event.Status,
		Amount:    event.Amount,
		Currency:  event.Currency,
		Payload:   event.Payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, orderdomain.ErrEventAlreadyProcessed),
			errors.Is(err, orderdomain.ErrUnmatchedIntent),
			errors.Is(err, orderdomain.ErrOrderNotPayable),
			errors.Is(err, orderdomain.ErrAmountMismatch):
			// Recorded on the ledger; nothing more to apply.
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
		default:
			AbortWithError(c, err)
		}
		return
	}

	applied := order != nil && order.Status == orderdomain.StatusPaid
	if applied {
		// Fulfillment failure after a successful MarkPaid still acks the
		// delivery; the sweeper re-drives fulfillment.
		if _, err := s.grantorSvc.Fulfill(c.Request.Context(), order.ID); err != nil {
			s.log.Warn("fulfillment deferred to sweeper",
				zap.Int64("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "applied": applied})
}
