package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

const collectionPackages = "packages"

type PackageRepository struct {
	col *mongo.Collection
}

func NewPackageRepository(db *mongo.Database) *PackageRepository {
	return &PackageRepository{col: db.Collection(collectionPackages)}
}

// mongoPackage is the persisted shape; the domain type uses a hex string id.
type mongoPackage struct {
	ID               primitive.ObjectID          `bson:"_id,omitempty"`
	TrackingNumber   string                      `bson:"tracking_number"`
	OwnerUserID      string                      `bson:"owner_user_id,omitempty"`
	Status           string                      `bson:"status"`
	DestinationPoint string                      `bson:"destination_point"`
	FromAddress      string                      `bson:"from_address,omitempty"`
	WeightKg         float64                     `bson:"weight_kg,omitempty"`
	Price            float64                     `bson:"price,omitempty"`
	Urgency          string                      `bson:"urgency,omitempty"`
	CurrentLocation  string                      `bson:"current_location,omitempty"`
	CreatedAt        time.Time                   `bson:"created_at"`
	UpdatedAt        time.Time                   `bson:"updated_at"`
	StatusHistory    []domain.StatusHistoryEntry `bson:"status_history"`
}

func toDomain(m *mongoPackage) *domain.Package {
	return &domain.Package{
		ID:               m.ID.Hex(),
		TrackingNumber:   m.TrackingNumber,
		OwnerUserID:      m.OwnerUserID,
		Status:           domain.PackageStatus(m.Status),
		DestinationPoint: m.DestinationPoint,
		FromAddress:      m.FromAddress,
		WeightKg:         m.WeightKg,
		Price:            m.Price,
		Urgency:          m.Urgency,
		CurrentLocation:  m.CurrentLocation,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		StatusHistory:    m.StatusHistory,
	}
}

// Create inserts a new package document and backfills the generated id.
func (r *PackageRepository) Create(ctx context.Context, p *domain.Package) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoPackage{
		TrackingNumber:   p.TrackingNumber,
		OwnerUserID:      p.OwnerUserID,
		Status:           string(p.Status),
		DestinationPoint: p.DestinationPoint,
		FromAddress:      p.FromAddress,
		WeightKg:         p.WeightKg,
		Price:            p.Price,
		Urgency:          p.Urgency,
		CurrentLocation:  p.CurrentLocation,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		StatusHistory:    p.StatusHistory,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateTracking
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

// FindByTrackingNumber retrieves a package by tracking number.
func (r *PackageRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoPackage
	err := r.col.FindOne(ctx, bson.M{"tracking_number": trackingNumber}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

// FindByID retrieves a package by its hex object id.
func (r *PackageRepository) FindByID(ctx context.Context, id string) (*domain.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPackageNotFound
	}

	var m mongoPackage
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, err
	}
	return toDomain(&m), nil
}

// List returns a page of packages matching filter and the total count.
func (r *PackageRepository) List(ctx context.Context, filter ports.ListPackagesFilter) ([]*domain.Package, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Urgency != "" {
		query["urgency"] = filter.Urgency
	}
	if filter.OwnerID != "" {
		query["owner_user_id"] = filter.OwnerID
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []*domain.Package
	for cur.Next(ctx) {
		var m mongoPackage
		if err := cur.Decode(&m); err != nil {
			return nil, 0, err
		}
		out = append(out, toDomain(&m))
	}
	return out, total, cur.Err()
}

// UpdateStatus applies a conditional status write: the filter matches on both
// the id and the expected current status, so a concurrent transition that
// moved the package first makes this a no-op (MatchedCount 0). This is the
// optimistic check that keeps the status chain forward-only under races.
func (r *PackageRepository) UpdateStatus(ctx context.Context, id string, update ports.StatusUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	filter := bson.M{"_id": oid, "status": string(update.From)}
	set := bson.M{
		"status":     string(update.To),
		"updated_at": update.Timestamp,
	}
	if update.OwnerUserID != "" {
		set["owner_user_id"] = update.OwnerUserID
	}
	historyEntry := bson.M{
		"status":    string(update.To),
		"timestamp": update.Timestamp,
		"notes":     update.Notes,
	}

	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$set":  set,
		"$push": bson.M{"status_history": historyEntry},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// UpdateLocation sets the free-text current location of a package.
func (r *PackageRepository) UpdateLocation(ctx context.Context, trackingNumber, location string, ts time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"tracking_number": trackingNumber},
		bson.M{"$set": bson.M{"current_location": location, "updated_at": ts}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the packages collection.
func (r *PackageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tracking_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "owner_user_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
