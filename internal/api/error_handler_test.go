package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

func renderError(t *testing.T, err error) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)
	return rec, c
}

func TestErrorHandler_DomainErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrPackageNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrDuplicateTracking, http.StatusConflict},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrUserExists, http.StatusConflict},
	}

	for _, tc := range cases {
		rec, _ := renderError(t, tc.err)
		if rec.Code != tc.code {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestErrorHandler_WrappedErrorsResolve(t *testing.T) {
	rec, _ := renderError(t, fmt.Errorf("persist transition: %w", domain.ErrConflict))
	if rec.Code != http.StatusConflict {
		t.Fatalf("wrapped conflict not resolved, got %d", rec.Code)
	}
}

func TestErrorHandler_InvalidTransitionNamesPair(t *testing.T) {
	rec, _ := renderError(t, domain.TransitionError(domain.StatusDelivered, domain.StatusShipped))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "delivered") || !strings.Contains(body, "shipped") {
		t.Fatalf("transition pair missing from body: %q", body)
	}
}

func TestErrorHandler_EchoHTTPErrorPassthrough(t *testing.T) {
	rec, _ := renderError(t, echo.NewHTTPError(http.StatusTeapot, "short and stout"))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}

func TestErrorHandler_UnknownErrorIsOpaque(t *testing.T) {
	rec, _ := renderError(t, errors.New("mongo topology closed"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "topology") {
		t.Fatalf("internal details leaked: %q", rec.Body.String())
	}
}
