package handler

import (
	"time"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type createPackageRequest struct {
	// TrackingNumber is optional; the service generates one when omitted.
	TrackingNumber   string  `json:"tracking_number"   validate:"omitempty,min=6"`
	DestinationPoint string  `json:"destination_point" validate:"required"`
	FromAddress      string  `json:"from_address"      validate:"required"`
	WeightKg         float64 `json:"weight_kg"         validate:"required,gt=0"`
	Price            float64 `json:"price"             validate:"required,gt=0"`
	Urgency          string  `json:"urgency"           validate:"omitempty,oneof=standard express"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid processing shipped delivered completed"`
}

type updateLocationRequest struct {
	Location string `json:"location" validate:"required"`
}

type statusHistoryItemResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type packageResponse struct {
	TrackingNumber   string                      `json:"tracking_number"`
	Status           string                      `json:"status"`
	OwnerUserID      string                      `json:"owner_user_id,omitempty"`
	DestinationPoint string                      `json:"destination_point"`
	FromAddress      string                      `json:"from_address"`
	WeightKg         float64                     `json:"weight_kg"`
	Price            float64                     `json:"price"`
	Urgency          string                      `json:"urgency"`
	CurrentLocation  string                      `json:"current_location,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
	StatusHistory    []statusHistoryItemResponse `json:"status_history"`
}

// packageSummaryResponse is the lightweight item used in list responses.
// It intentionally omits status_history to keep payloads small.
type packageSummaryResponse struct {
	TrackingNumber   string    `json:"tracking_number"`
	Status           string    `json:"status"`
	OwnerUserID      string    `json:"owner_user_id,omitempty"`
	DestinationPoint string    `json:"destination_point"`
	Urgency          string    `json:"urgency"`
	CurrentLocation  string    `json:"current_location,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listPackagesResponse struct {
	Data       []packageSummaryResponse `json:"data"`
	Pagination paginationResponse       `json:"pagination"`
}

func toPackageResponse(p *domain.Package) packageResponse {
	history := make([]statusHistoryItemResponse, 0, len(p.StatusHistory))
	for _, h := range p.StatusHistory {
		history = append(history, statusHistoryItemResponse{
			Status:    string(h.Status),
			Timestamp: h.Timestamp,
			Notes:     h.Notes,
		})
	}

	return packageResponse{
		TrackingNumber:   p.TrackingNumber,
		Status:           string(p.Status),
		OwnerUserID:      p.OwnerUserID,
		DestinationPoint: p.DestinationPoint,
		FromAddress:      p.FromAddress,
		WeightKg:         p.WeightKg,
		Price:            p.Price,
		Urgency:          p.Urgency,
		CurrentLocation:  p.CurrentLocation,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		StatusHistory:    history,
	}
}

func toPackageSummary(p *domain.Package) packageSummaryResponse {
	return packageSummaryResponse{
		TrackingNumber:   p.TrackingNumber,
		Status:           string(p.Status),
		OwnerUserID:      p.OwnerUserID,
		DestinationPoint: p.DestinationPoint,
		Urgency:          p.Urgency,
		CurrentLocation:  p.CurrentLocation,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
