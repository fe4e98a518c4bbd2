package ports

import (
	"context"
	"time"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// ListPackagesFilter carries all query parameters for listing packages.
type ListPackagesFilter struct {
	Status  string // optional: filter by package status
	Urgency string // optional: filter by urgency
	OwnerID string // optional: scope to a single owner
	Page    int    // 1-based
	Limit   int    // max rows per page (capped by the service)
}

// StatusUpdate describes a single conditional status write. The write must
// only apply while the stored status still equals From; Matched reports
// whether it did.
type StatusUpdate struct {
	From        domain.PackageStatus
	To          domain.PackageStatus
	OwnerUserID string // assigned when non-empty (payment path)
	Notes       string // stored on the history entry
	Timestamp   time.Time
}

// PackageRepository defines persistence operations for packages.
//
// UpdateStatus is the only mutation path for the status field. It must be
// atomic and conditioned on the current status matching update.From, so two
// racing writers can never both apply a transition from the same source
// state.
type PackageRepository interface {
	Create(ctx context.Context, p *domain.Package) error
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Package, error)
	FindByID(ctx context.Context, id string) (*domain.Package, error)
	// List returns a page of packages matching filter and the total count.
	List(ctx context.Context, filter ListPackagesFilter) ([]*domain.Package, int64, error)
	// UpdateStatus applies a conditional status write and reports whether the
	// condition matched. A false return with a nil error means the package
	// either no longer exists or its status moved since it was read.
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) (bool, error)
	// UpdateLocation sets the free-text current location of a package.
	UpdateLocation(ctx context.Context, trackingNumber, location string, ts time.Time) error
}

// AuditRepository persists status change events to the audit trail.
type AuditRepository interface {
	InsertStatusEvent(ctx context.Context, event *StatusEvent) error
}

// StatusEvent is a single audit record of an applied transition.
type StatusEvent struct {
	TrackingNumber string
	From           domain.PackageStatus
	To             domain.PackageStatus
	Via            string // "api", "payment", "scan", "auto"
	ActorUserID    string // empty for the deferred auto-advance
	Timestamp      time.Time
}
