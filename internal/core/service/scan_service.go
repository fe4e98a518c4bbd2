package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pvzlink/parcel-system/internal/api/metrics"
	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, trackingNumber, status string, ts time.Time) (bool, error)
	Mark(ctx context.Context, trackingNumber, status string, ts time.Time) error
}

// scanService processes courier device scan events. Each event is a status
// transition request routed through the lifecycle service, so scans obey the
// same transition table and optimistic write path as the API.
type scanService struct {
	lifecycle ports.LifecycleService
	repo      ports.PackageRepository
	dedup     DedupChecker
	log       zerolog.Logger
}

// NewScanService returns a ScanService implementation.
func NewScanService(
	lifecycle ports.LifecycleService,
	repo ports.PackageRepository,
	dedup DedupChecker,
	log zerolog.Logger,
) ports.ScanService {
	return &scanService{
		lifecycle: lifecycle,
		repo:      repo,
		dedup:     dedup,
		log:       log,
	}
}

// Process validates, deduplicates, and applies a single scan event.
func (s *scanService) Process(ctx context.Context, in ports.ScanEventInput) error {
	target, err := domain.ParseStatus(in.Status)
	if err != nil {
		metrics.ScanEventsErrorsTotal.WithLabelValues("unknown_status").Inc()
		return fmt.Errorf("process scan: %w", err)
	}

	// Idempotency check — silently skip duplicates (courier devices retry).
	isDup, err := s.dedup.IsDuplicate(ctx, in.TrackingNumber, in.Status, in.Timestamp)
	if err != nil {
		s.log.Warn().Err(err).Str("tracking", in.TrackingNumber).Msg("dedup check failed, processing anyway")
	} else if isDup {
		metrics.ScanEventsDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Str("tracking", in.TrackingNumber).Str("status", in.Status).Msg("duplicate scan skipped")
		return nil
	}
	metrics.ScanEventsDedupTotal.WithLabelValues("miss").Inc()

	// Mark as processed before writing (prevents duplicate processing on retry).
	if markErr := s.dedup.Mark(ctx, in.TrackingNumber, in.Status, in.Timestamp); markErr != nil {
		s.log.Warn().Err(markErr).Str("tracking", in.TrackingNumber).Msg("failed to set dedup key")
	}

	if _, err := s.lifecycle.RequestTransition(ctx, ports.TransitionInput{
		TrackingNumber: in.TrackingNumber,
		Target:         target,
		Actor:          in.Actor,
		Via:            ports.ViaScan,
	}); err != nil {
		metrics.ScanEventsErrorsTotal.WithLabelValues(rejectReason(err)).Inc()
		return fmt.Errorf("process scan: %w", err)
	}

	if in.Location != "" {
		if err := s.repo.UpdateLocation(ctx, in.TrackingNumber, in.Location, in.Timestamp); err != nil {
			s.log.Warn().Err(err).Str("tracking", in.TrackingNumber).Msg("failed to update scan location")
		}
	}

	metrics.ScanEventsProcessedTotal.WithLabelValues(in.Status).Inc()
	s.log.Info().
		Str("tracking", in.TrackingNumber).
		Str("status", in.Status).
		Str("courier_id", in.Actor.UserID).
		Msg("scan event processed")

	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPackageNotFound):
		return "package_not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	}
	return "store_error"
}
