package handler

import "time"

type scanEventRequest struct {
	TrackingNumber string    `json:"tracking_number" validate:"required"`
	Status         string    `json:"status"          validate:"required,oneof=paid processing shipped delivered completed"`
	Timestamp      time.Time `json:"timestamp"       validate:"required"`
	Location       string    `json:"location"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}
