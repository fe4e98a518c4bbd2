package ports

import (
	"context"
	"time"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// CreatePackageInput carries all data needed to register a new package.
type CreatePackageInput struct {
	// TrackingNumber is optional; one is generated when empty.
	TrackingNumber   string
	DestinationPoint string
	FromAddress      string
	WeightKg         float64
	Price            float64
	Urgency          string
}

// GetPackageInput carries the parameters for retrieving a single package.
type GetPackageInput struct {
	TrackingNumber string
	Actor          domain.Actor
}

// ListPackagesInput carries all parameters for the list endpoint.
type ListPackagesInput struct {
	Actor   domain.Actor
	Status  string
	Urgency string
	Page    int
	Limit   int
}

// ListPackagesResult is returned by ListPackages.
type ListPackagesResult struct {
	Items      []*domain.Package
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// PackageService defines use-case operations for packages outside the status
// lifecycle.
type PackageService interface {
	Create(ctx context.Context, in CreatePackageInput) (*domain.Package, error)
	Get(ctx context.Context, in GetPackageInput) (*domain.Package, error)
	List(ctx context.Context, in ListPackagesInput) (*ListPackagesResult, error)
	UpdateLocation(ctx context.Context, trackingNumber, location string, actor domain.Actor) error
}

// ScanEventInput is the DTO passed from the transport layer to ScanService.
type ScanEventInput struct {
	TrackingNumber string
	Status         string
	Timestamp      time.Time
	Location       string // optional free-text location from the scanner
	Actor          domain.Actor
}

// ScanService processes courier device scan events asynchronously.
type ScanService interface {
	Process(ctx context.Context, in ScanEventInput) error
}
