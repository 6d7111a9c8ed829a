package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	entitlementdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
)

func (s *Server) handleListEntitlements(c *gin.Context) {
	kind := entitlementdomain.Kind(c.Query("kind"))

	entitlements, err := s.grantorSvc.ListByBuyer(c.Request.Context(), buyerRef(c), kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entitlements": entitlements})
}
