package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pvzlink/parcel-system/internal/api/metrics"
	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PackageService implements package registration, lookup and listing.
// Status changes are out of its scope; they belong to LifecycleService.
type PackageService struct {
	repo ports.PackageRepository
	log  zerolog.Logger
}

func NewPackageService(repo ports.PackageRepository, log zerolog.Logger) *PackageService {
	return &PackageService{repo: repo, log: log}
}

// Create registers a new package in status "created". A tracking number is
// generated when the caller does not supply one.
func (s *PackageService) Create(ctx context.Context, in ports.CreatePackageInput) (*domain.Package, error) {
	trackingNumber := in.TrackingNumber
	if trackingNumber == "" {
		trackingNumber = generateTrackingNumber()
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = "standard"
	}

	now := time.Now().UTC()
	pkg := &domain.Package{
		TrackingNumber:   trackingNumber,
		Status:           domain.StatusCreated,
		DestinationPoint: in.DestinationPoint,
		FromAddress:      in.FromAddress,
		WeightKg:         in.WeightKg,
		Price:            in.Price,
		Urgency:          urgency,
		CreatedAt:        now,
		UpdatedAt:        now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusCreated, Timestamp: now},
		},
	}

	if err := s.repo.Create(ctx, pkg); err != nil {
		s.log.Error().Err(err).Str("tracking_number", trackingNumber).Msg("failed to create package")
		return nil, err
	}

	metrics.PackagesCreatedTotal.WithLabelValues(urgency).Inc()
	s.log.Info().
		Str("tracking_number", pkg.TrackingNumber).
		Str("destination_point", pkg.DestinationPoint).
		Msg("package created")

	return pkg, nil
}

// Get retrieves a single package by tracking number. Admins and couriers see
// everything; a customer sees a package only while it is unowned or owned by
// them.
func (s *PackageService) Get(ctx context.Context, in ports.GetPackageInput) (*domain.Package, error) {
	pkg, err := s.repo.FindByTrackingNumber(ctx, in.TrackingNumber)
	if err != nil {
		return nil, err
	}

	if !domain.CanAdvanceStatus(in.Actor.Role) &&
		pkg.OwnerUserID != "" && pkg.OwnerUserID != in.Actor.UserID {
		// Do not reveal that the tracking number exists.
		return nil, domain.ErrPackageNotFound
	}

	return pkg, nil
}

// List returns a page of packages. Restricted to admins and couriers.
func (s *PackageService) List(ctx context.Context, in ports.ListPackagesInput) (*ports.ListPackagesResult, error) {
	if !domain.CanAdvanceStatus(in.Actor.Role) {
		return nil, domain.ErrForbidden
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, total, err := s.repo.List(ctx, ports.ListPackagesFilter{
		Status:  in.Status,
		Urgency: in.Urgency,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListPackagesResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateLocation sets the free-text current location of a package.
// Restricted to admins and couriers.
func (s *PackageService) UpdateLocation(ctx context.Context, trackingNumber, location string, actor domain.Actor) error {
	if !domain.CanAdvanceStatus(actor.Role) {
		return domain.ErrForbidden
	}

	if err := s.repo.UpdateLocation(ctx, trackingNumber, location, time.Now().UTC()); err != nil {
		return err
	}

	s.log.Info().
		Str("tracking_number", trackingNumber).
		Str("location", location).
		Msg("package location updated")
	return nil
}

// generateTrackingNumber returns a unique tracking number in the format PVZ-XXXXXXXX.
func generateTrackingNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("PVZ-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("PVZ-%08X", b)
}
