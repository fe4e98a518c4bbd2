package ports

import (
	"context"
	"time"

	"github.com/pvzlink/parcel-system/internal/core/domain"
)

// Transition origins, stored on history entries and audit events.
const (
	ViaAPI     = "api"
	ViaPayment = "payment"
	ViaScan    = "scan"
	ViaAuto    = "auto"
)

// TransitionInput carries a request to change a package's status.
type TransitionInput struct {
	TrackingNumber string
	Target         domain.PackageStatus
	Actor          domain.Actor
	// Via discriminates the origin of the request for history notes and
	// telemetry: "api", "payment", "scan" or "auto".
	Via string
}

// LifecycleService is the single authorized entry point for changing a
// package's status.
type LifecycleService interface {
	// RequestTransition validates authorization and the transition table,
	// applies the new status atomically and schedules the deferred
	// auto-advance when the package enters "paid". Returns the refreshed
	// package or one of domain.ErrPackageNotFound, domain.ErrForbidden,
	// domain.ErrInvalidTransition, domain.ErrConflict.
	RequestTransition(ctx context.Context, in TransitionInput) (*domain.Package, error)
	// Pay performs the created → paid transition on behalf of the package's
	// future owner and assigns ownership as a side effect.
	Pay(ctx context.Context, trackingNumber string, actor domain.Actor) (*domain.Package, error)
	// RecoverPending re-schedules auto-advances that were pending when the
	// process last stopped. Called once at startup.
	RecoverPending(ctx context.Context) error
}

// TransitionScheduler schedules one-shot, cancellable deferred actions keyed
// by package id. Schedule never blocks; a second Schedule for the same key
// replaces the pending timer.
type TransitionScheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	// Cancel stops a pending timer and reports whether one existed.
	Cancel(key string) bool
}

// PendingAdvance is a recorded auto-advance that has not fired yet.
type PendingAdvance struct {
	PackageID string
	Due       time.Time
}

// PendingAdvanceStore durably records scheduled auto-advances so they can be
// re-scheduled after a restart. Best effort: losing a mark leaves the package
// stuck in "paid", which an admin or courier can advance manually.
type PendingAdvanceStore interface {
	Mark(ctx context.Context, packageID string, due time.Time) error
	Clear(ctx context.Context, packageID string) error
	All(ctx context.Context) ([]PendingAdvance, error)
}
