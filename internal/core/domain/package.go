package domain

import (
	"errors"
	"fmt"
	"time"
)

// PackageStatus represents the lifecycle state of a package.
type PackageStatus string

const (
	StatusCreated    PackageStatus = "created"
	StatusPaid       PackageStatus = "paid"
	StatusProcessing PackageStatus = "processing"
	StatusShipped    PackageStatus = "shipped"
	StatusDelivered  PackageStatus = "delivered"
	StatusCompleted  PackageStatus = "completed"
)

// validTransitions defines the allowed state machine transitions. The chain
// is strictly linear: each state has exactly one successor, completed is
// terminal.
var validTransitions = map[PackageStatus]PackageStatus{
	StatusCreated:    StatusPaid,
	StatusPaid:       StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
	StatusDelivered:  StatusCompleted,
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrConflict = errors.New("package was modified concurrently")
var ErrPackageNotFound = errors.New("package not found")
var ErrDuplicateTracking = errors.New("tracking number already exists")
var ErrForbidden = errors.New("access forbidden")

// CanTransitionTo reports whether a transition from the current status to
// next is valid. Unknown current statuses are denied unconditionally.
func (s PackageStatus) CanTransitionTo(next PackageStatus) bool {
	successor, ok := validTransitions[s]
	return ok && successor == next
}

// ParseStatus converts a raw string into a PackageStatus, rejecting values
// outside the known lifecycle.
func ParseStatus(raw string) (PackageStatus, error) {
	s := PackageStatus(raw)
	switch s {
	case StatusCreated, StatusPaid, StatusProcessing, StatusShipped, StatusDelivered, StatusCompleted:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// TransitionError carries the rejected from/to pair so callers can name it.
func TransitionError(from, to PackageStatus) error {
	return fmt.Errorf("%w (from %s to %s)", ErrInvalidTransition, from, to)
}

// StatusHistoryEntry records a single status change on a package.
type StatusHistoryEntry struct {
	Status    PackageStatus `json:"status" bson:"status"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Notes     string        `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Package is the core aggregate root. Status is mutable only through the
// lifecycle service; shipment metadata is set at creation and immutable
// afterwards.
type Package struct {
	ID               string               `json:"id" bson:"_id,omitempty"`
	TrackingNumber   string               `json:"tracking_number" bson:"tracking_number"`
	OwnerUserID      string               `json:"owner_user_id,omitempty" bson:"owner_user_id,omitempty"`
	Status           PackageStatus        `json:"status" bson:"status"`
	DestinationPoint string               `json:"destination_point" bson:"destination_point"`
	FromAddress      string               `json:"from_address,omitempty" bson:"from_address,omitempty"`
	WeightKg         float64              `json:"weight_kg,omitempty" bson:"weight_kg,omitempty"`
	Price            float64              `json:"price,omitempty" bson:"price,omitempty"`
	Urgency          string               `json:"urgency,omitempty" bson:"urgency,omitempty"`
	CurrentLocation  string               `json:"current_location,omitempty" bson:"current_location,omitempty"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" bson:"updated_at"`
	StatusHistory    []StatusHistoryEntry `json:"status_history" bson:"status_history"`
}
