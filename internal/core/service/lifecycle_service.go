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

// autoAdvanceTimeout bounds the store round-trips made by a fired timer.
const autoAdvanceTimeout = 10 * time.Second

// LifecycleService is the single authorized entry point for changing a
// package's status. Every write goes through the same validated,
// status-conditioned path, so the forward-only invariant holds even when an
// API transition races the deferred auto-advance.
type LifecycleService struct {
	repo      ports.PackageRepository
	audit     ports.AuditRepository
	scheduler ports.TransitionScheduler
	pending   ports.PendingAdvanceStore
	delay     time.Duration
	log       zerolog.Logger
}

func NewLifecycleService(
	repo ports.PackageRepository,
	audit ports.AuditRepository,
	scheduler ports.TransitionScheduler,
	pending ports.PendingAdvanceStore,
	delay time.Duration,
	log zerolog.Logger,
) *LifecycleService {
	return &LifecycleService{
		repo:      repo,
		audit:     audit,
		scheduler: scheduler,
		pending:   pending,
		delay:     delay,
		log:       log,
	}
}

// RequestTransition moves a package to the requested status on behalf of an
// admin or courier.
func (s *LifecycleService) RequestTransition(ctx context.Context, in ports.TransitionInput) (*domain.Package, error) {
	pkg, err := s.repo.FindByTrackingNumber(ctx, in.TrackingNumber)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			metrics.TransitionsRejectedTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	if !domain.CanAdvanceStatus(in.Actor.Role) {
		metrics.TransitionsRejectedTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("role %q may not advance status: %w", in.Actor.Role, domain.ErrForbidden)
	}

	via := in.Via
	if via == "" {
		via = ports.ViaAPI
	}
	return s.apply(ctx, pkg, in.Target, in.Actor.UserID, "", via)
}

// Pay performs the created → paid transition on behalf of the package's
// future owner. Any authenticated user may pay; ownership is assigned as a
// side effect of the successful write.
func (s *LifecycleService) Pay(ctx context.Context, trackingNumber string, actor domain.Actor) (*domain.Package, error) {
	pkg, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			metrics.TransitionsRejectedTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	return s.apply(ctx, pkg, domain.StatusPaid, actor.UserID, actor.UserID, ports.ViaPayment)
}

// apply validates the transition against the table, persists it with the
// optimistic status check, and manages the deferred auto-advance timer. The
// returned package reflects the just-applied status; the later paid →
// processing auto-advance is observable only via a subsequent read.
func (s *LifecycleService) apply(
	ctx context.Context,
	pkg *domain.Package,
	target domain.PackageStatus,
	actorID, ownerID, via string,
) (*domain.Package, error) {
	from := pkg.Status
	if !from.CanTransitionTo(target) {
		metrics.TransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
		return nil, domain.TransitionError(from, target)
	}

	now := time.Now().UTC()
	update := ports.StatusUpdate{
		From:        from,
		To:          target,
		OwnerUserID: ownerID,
		Notes:       via,
		Timestamp:   now,
	}

	matched, err := s.repo.UpdateStatus(ctx, pkg.ID, update)
	if err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	if !matched {
		return nil, s.resolveLostRace(ctx, pkg.TrackingNumber, from, target)
	}

	metrics.TransitionsAppliedTotal.WithLabelValues(string(target), via).Inc()
	s.log.Info().
		Str("tracking_number", pkg.TrackingNumber).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("via", via).
		Msg("status transition applied")

	s.recordAudit(ctx, pkg.TrackingNumber, from, target, via, actorID)

	switch {
	case target == domain.StatusPaid:
		s.scheduleAutoAdvance(ctx, pkg.ID, pkg.TrackingNumber)
	case from == domain.StatusPaid:
		// An explicit transition away from paid suppresses the pending timer.
		// The timer body re-checks the status anyway, so a missed cancel is
		// harmless.
		if s.scheduler.Cancel(pkg.ID) {
			s.log.Debug().Str("package_id", pkg.ID).Msg("pending auto-advance cancelled")
		}
		if err := s.pending.Clear(ctx, pkg.ID); err != nil {
			s.log.Warn().Err(err).Str("package_id", pkg.ID).Msg("failed to clear pending auto-advance mark")
		}
	}

	refreshed := *pkg
	refreshed.Status = target
	refreshed.UpdatedAt = now
	if ownerID != "" {
		refreshed.OwnerUserID = ownerID
	}
	refreshed.StatusHistory = append(refreshed.StatusHistory, domain.StatusHistoryEntry{
		Status:    target,
		Timestamp: now,
		Notes:     via,
	})
	return &refreshed, nil
}

// resolveLostRace classifies a conditional write that matched nothing: the
// package disappeared, or a concurrent transition moved it first. Never a
// silent drop.
func (s *LifecycleService) resolveLostRace(ctx context.Context, trackingNumber string, from, target domain.PackageStatus) error {
	current, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			metrics.TransitionsRejectedTotal.WithLabelValues("not_found").Inc()
			return err
		}
		return fmt.Errorf("re-read after lost race: %w", err)
	}

	if current.Status.CanTransitionTo(target) {
		// Still reachable from the new state; the caller may re-fetch and retry.
		metrics.TransitionsRejectedTotal.WithLabelValues("conflict").Inc()
		return fmt.Errorf("%w (status moved from %s to %s)", domain.ErrConflict, from, current.Status)
	}

	metrics.TransitionsRejectedTotal.WithLabelValues("invalid_transition").Inc()
	return domain.TransitionError(current.Status, target)
}

// scheduleAutoAdvance registers the deferred paid → processing transition.
// It only records state and arms a timer; the caller's response is never
// blocked on it.
func (s *LifecycleService) scheduleAutoAdvance(ctx context.Context, packageID, trackingNumber string) {
	due := time.Now().UTC().Add(s.delay)
	if err := s.pending.Mark(ctx, packageID, due); err != nil {
		s.log.Warn().Err(err).Str("package_id", packageID).Msg("failed to record pending auto-advance")
	}

	s.scheduler.Schedule(packageID, s.delay, s.autoAdvance(packageID))
	metrics.AutoAdvanceScheduledTotal.Inc()
	s.log.Info().
		Str("tracking_number", trackingNumber).
		Str("package_id", packageID).
		Dur("delay", s.delay).
		Msg("auto-advance scheduled")
}

// autoAdvance returns the timer body for one package. When it fires it
// re-reads fresh state and applies paid → processing through the same
// conditional write path. Any failure is terminal for this one attempt and
// observable only through logs and metrics; a package left in paid can still
// be advanced manually.
func (s *LifecycleService) autoAdvance(packageID string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoAdvanceTimeout)
		defer cancel()

		defer func() {
			if err := s.pending.Clear(ctx, packageID); err != nil {
				s.log.Warn().Err(err).Str("package_id", packageID).Msg("failed to clear pending auto-advance mark")
			}
		}()

		pkg, err := s.repo.FindByID(ctx, packageID)
		if err != nil {
			if errors.Is(err, domain.ErrPackageNotFound) {
				metrics.AutoAdvanceFiredTotal.WithLabelValues("noop").Inc()
				s.log.Debug().Str("package_id", packageID).Msg("auto-advance skipped: package gone")
				return
			}
			metrics.AutoAdvanceFiredTotal.WithLabelValues("error").Inc()
			s.log.Error().Err(err).Str("package_id", packageID).Msg("auto-advance read failed")
			return
		}

		if pkg.Status != domain.StatusPaid {
			metrics.AutoAdvanceFiredTotal.WithLabelValues("noop").Inc()
			s.log.Debug().
				Str("package_id", packageID).
				Str("status", string(pkg.Status)).
				Msg("auto-advance skipped: status already moved")
			return
		}

		now := time.Now().UTC()
		matched, err := s.repo.UpdateStatus(ctx, packageID, ports.StatusUpdate{
			From:      domain.StatusPaid,
			To:        domain.StatusProcessing,
			Notes:     ports.ViaAuto,
			Timestamp: now,
		})
		if err != nil {
			metrics.AutoAdvanceFiredTotal.WithLabelValues("error").Inc()
			s.log.Error().Err(err).Str("package_id", packageID).Msg("auto-advance write failed")
			return
		}
		if !matched {
			// Lost the race to a concurrent transition between the read and the
			// write; the other writer won, nothing to do.
			metrics.AutoAdvanceFiredTotal.WithLabelValues("noop").Inc()
			s.log.Debug().Str("package_id", packageID).Msg("auto-advance lost race, skipped")
			return
		}

		metrics.AutoAdvanceFiredTotal.WithLabelValues("advanced").Inc()
		metrics.TransitionsAppliedTotal.WithLabelValues(string(domain.StatusProcessing), ports.ViaAuto).Inc()
		s.log.Info().
			Str("tracking_number", pkg.TrackingNumber).
			Str("package_id", packageID).
			Msg("auto-advance applied: paid → processing")

		s.recordAudit(ctx, pkg.TrackingNumber, domain.StatusPaid, domain.StatusProcessing, ports.ViaAuto, "")
	}
}

// RecoverPending re-schedules auto-advances recorded before the last
// shutdown. Entries already past due fire immediately.
func (s *LifecycleService) RecoverPending(ctx context.Context) error {
	entries, err := s.pending.All(ctx)
	if err != nil {
		return fmt.Errorf("load pending auto-advances: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range entries {
		delay := e.Due.Sub(now)
		if delay < 0 {
			delay = 0
		}
		s.scheduler.Schedule(e.PackageID, delay, s.autoAdvance(e.PackageID))
		s.log.Info().
			Str("package_id", e.PackageID).
			Dur("delay", delay).
			Msg("pending auto-advance recovered")
	}

	if len(entries) > 0 {
		s.log.Info().Int("count", len(entries)).Msg("auto-advance recovery sweep complete")
	}
	return nil
}

// recordAudit appends to the status_events trail; failures are non-fatal.
func (s *LifecycleService) recordAudit(ctx context.Context, trackingNumber string, from, to domain.PackageStatus, via, actorID string) {
	event := &ports.StatusEvent{
		TrackingNumber: trackingNumber,
		From:           from,
		To:             to,
		Via:            via,
		ActorUserID:    actorID,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.audit.InsertStatusEvent(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("tracking_number", trackingNumber).Msg("failed to insert audit event")
	}
}
