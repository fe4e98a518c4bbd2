package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// ctxActor extracts the acting user injected by the Auth middleware and
// performs a fast-fail check before any service call: both user_id and role
// must be present, their absence means the middleware did not run or the
// token predates the current claim set.
func ctxActor(c echo.Context) (domain.Actor, error) {
	role, _ := c.Get("role").(string)
	if role == "" {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing user identity")
	}

	return domain.Actor{UserID: userID, Role: role}, nil
}
