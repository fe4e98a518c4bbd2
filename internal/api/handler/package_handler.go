package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// PackageHandler handles HTTP requests for package operations. Status changes
// go through the lifecycle service, everything else through the package
// service.
type PackageHandler struct {
	packages  ports.PackageService
	lifecycle ports.LifecycleService
}

func NewPackageHandler(packages ports.PackageService, lifecycle ports.LifecycleService) *PackageHandler {
	return &PackageHandler{packages: packages, lifecycle: lifecycle}
}

// Create handles POST /v1/packages.
//
// @Summary      Register a new package
// @Tags         packages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createPackageRequest  true  "Package details"
// @Success      201   {object}  packageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/packages [post]
func (h *PackageHandler) Create(c echo.Context) error {
	if _, err := ctxActor(c); err != nil {
		return err
	}

	var req createPackageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	pkg, err := h.packages.Create(c.Request().Context(), ports.CreatePackageInput{
		TrackingNumber:   req.TrackingNumber,
		DestinationPoint: req.DestinationPoint,
		FromAddress:      req.FromAddress,
		WeightKg:         req.WeightKg,
		Price:            req.Price,
		Urgency:          req.Urgency,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toPackageResponse(pkg))
}

// Get handles GET /v1/packages/:tracking_number.
//
// @Summary      Get a package by tracking number
// @Tags         packages
// @Produce      json
// @Security     BearerAuth
// @Param        tracking_number  path      string  true  "Tracking number (e.g. PVZ-7A8B9C2D)"
// @Success      200              {object}  packageResponse
// @Failure      401              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /v1/packages/{tracking_number} [get]
func (h *PackageHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	pkg, err := h.packages.Get(c.Request().Context(), ports.GetPackageInput{
		TrackingNumber: c.Param("tracking_number"),
		Actor:          actor,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPackageResponse(pkg))
}

// List handles GET /v1/packages with optional status, urgency and pagination
// query parameters.
//
// @Summary      List packages
// @Tags         packages
// @Produce      json
// @Security     BearerAuth
// @Param        status   query     string  false  "Filter by status"
// @Param        urgency  query     string  false  "Filter by urgency"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Page size (default 20, max 100)"
// @Success      200      {object}  listPackagesResponse
// @Failure      401      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Router       /v1/packages [get]
func (h *PackageHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.packages.List(c.Request().Context(), ports.ListPackagesInput{
		Actor:   actor,
		Status:  c.QueryParam("status"),
		Urgency: c.QueryParam("urgency"),
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return err
	}

	items := make([]packageSummaryResponse, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toPackageSummary(p))
	}

	return c.JSON(http.StatusOK, listPackagesResponse{
		Data: items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// Pay handles PUT /v1/packages/:tracking_number/pay. Payment is modelled as
// the created → paid transition and assigns the payer as the package owner.
//
// @Summary      Pay for a package
// @Tags         packages
// @Produce      json
// @Security     BearerAuth
// @Param        tracking_number  path      string  true  "Tracking number"
// @Success      200              {object}  packageResponse
// @Failure      401              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/packages/{tracking_number}/pay [put]
func (h *PackageHandler) Pay(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	pkg, err := h.lifecycle.Pay(c.Request().Context(), c.Param("tracking_number"), actor)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPackageResponse(pkg))
}

// UpdateStatus handles PUT /v1/packages/:tracking_number/status.
//
// @Summary      Advance a package's status
// @Tags         packages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tracking_number  path      string               true  "Tracking number"
// @Param        body             body      updateStatusRequest  true  "Target status"
// @Success      200              {object}  packageResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/packages/{tracking_number}/status [put]
func (h *PackageHandler) UpdateStatus(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	pkg, err := h.lifecycle.RequestTransition(c.Request().Context(), ports.TransitionInput{
		TrackingNumber: c.Param("tracking_number"),
		Target:         target,
		Actor:          actor,
		Via:            ports.ViaAPI,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPackageResponse(pkg))
}

// UpdateLocation handles PUT /v1/packages/:tracking_number/location.
//
// @Summary      Update a package's current location
// @Tags         packages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tracking_number  path      string                 true  "Tracking number"
// @Param        body             body      updateLocationRequest  true  "New location"
// @Success      204              "No Content"
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /v1/packages/{tracking_number}/location [put]
func (h *PackageHandler) UpdateLocation(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var req updateLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.packages.UpdateLocation(c.Request().Context(), c.Param("tracking_number"), req.Location, actor); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
