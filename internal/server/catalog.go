package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListCatalog(c *gin.Context) {
	items, err := s.catalogSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
