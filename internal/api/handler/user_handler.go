package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// UserHandler handles profile and user listing endpoints.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type updateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"  validate:"omitempty,min=8"`
}

type listUsersResponse struct {
	Data []*userResponse `json:"data"`
}

// Me handles GET /v1/users/me.
//
// @Summary      Get the authenticated user's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateMe handles PATCH /v1/users/me. Absent fields are left unchanged.
//
// @Summary      Update the authenticated user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to update"
// @Success      200   {object}  userResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), actor.UserID, ports.UpdateProfileInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}

// List handles GET /v1/users (admin only, enforced by route middleware).
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Items to skip"
// @Param        limit  query     int  false  "Page size (default 20, max 100)"
// @Success      200    {object}  listUsersResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	skip, limit := paginationParams(c)
	users, err := h.authService.ListUsers(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListUsersResponse(users))
}

// Couriers handles GET /v1/users/couriers. Any authenticated user may look
// up couriers, e.g. to pick a preferred one.
//
// @Summary      List courier accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Items to skip"
// @Param        limit  query     int  false  "Page size (default 20, max 100)"
// @Success      200    {object}  listUsersResponse
// @Failure      401    {object}  errorResponse
// @Router       /v1/users/couriers [get]
func (h *UserHandler) Couriers(c echo.Context) error {
	skip, limit := paginationParams(c)
	users, err := h.authService.ListCouriers(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListUsersResponse(users))
}

func paginationParams(c echo.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.QueryParam("skip"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	return skip, limit
}

func toListUsersResponse(users []*domain.User) listUsersResponse {
	out := listUsersResponse{Data: make([]*userResponse, 0, len(users))}
	for _, u := range users {
		out.Data = append(out.Data, toUserResponse(u))
	}
	return out
}
