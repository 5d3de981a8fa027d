package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/governance"
	"github.com/avatarctic/tenant-governance/go/internal/core/ports"
	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/tenant-governance/go/internal/utils"
)

// GovernanceMiddleware runs admission control once per request before any handler work.
type GovernanceMiddleware struct {
	governor ports.Governor
	clock    utils.Clock
	logger   *logrus.Logger
}

func NewGovernanceMiddleware(governor ports.Governor, clock utils.Clock, logger *logrus.Logger) *GovernanceMiddleware {
	return &GovernanceMiddleware{governor: governor, clock: utils.ClockOrSystem(clock), logger: logger}
}

// RejectionBody is written for throttled and denied requests.
type RejectionBody struct {
	Error             string `json:"error"`
	Reason            string `json:"reason"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func (g *GovernanceMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, _ := helpers.GetTenantIDRaw(c)
			d := g.governor.Check(c.Request().Context(), tenantID, g.clock.Now())
			helpers.SetDecision(c, d)

			h := c.Response().Header()
			h.Set("X-Governance-Action", d.Action.String())
			h.Set("X-Governance-Reason", d.Reason.String())
			if d.Degraded {
				h.Set("X-Governance-Degraded", "true")
			}

			switch d.Action {
			case governance.ActionAllow:
				return next(c)
			case governance.ActionThrottle:
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(d.RetryAfterSeconds))
				return c.JSON(http.StatusTooManyRequests, RejectionBody{
					Error:             "request throttled",
					Reason:            d.Reason.String(),
					RetryAfterSeconds: d.RetryAfterSeconds,
				})
			case governance.ActionDeny:
				if g.logger != nil {
					g.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "reason": d.Reason.String(), "path": c.Path()}).Info("request denied")
				}
				return c.JSON(helpers.StatusForDecision(d), RejectionBody{Error: "request denied", Reason: d.Reason.String()})
			default:
				return next(c)
			}
		}
	}
}
