package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/helpers"
)

// checkDecision runs after the governance middleware admitted the request and echoes its decision.
func (s *Server) checkDecision(c echo.Context) error {
	d, err := helpers.GetDecisionFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
