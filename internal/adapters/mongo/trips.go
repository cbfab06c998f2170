package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetops/busbooking/internal/domain"
	"github.com/fleetops/busbooking/internal/observability"
)

// TripCatalog reads trips from the collection maintained by the
// scheduling subsystem. This core never writes to it.
type TripCatalog struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewTripCatalog(db *mongo.Database, logger observability.Logger) *TripCatalog {
	return &TripCatalog{
		coll:   db.Collection("trips"),
		logger: logger,
	}
}

type tripDoc struct {
	ID          uuid.UUID `bson:"_id"`
	Route       string    `bson:"route"`
	VehicleID   uuid.UUID `bson:"vehicle_id"`
	Capacity    int       `bson:"capacity"`
	DepartureAt time.Time `bson:"departure_at"`
	ArrivalAt   time.Time `bson:"arrival_at"`
	Status      string    `bson:"status"`
}

func (c *TripCatalog) GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	var doc tripDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(domain.ErrTripNotFound, "trip %s", id)
	}
	if err != nil {
		c.logger.Error("failed to get trip: ", err)
		return nil, err
	}
	return &domain.Trip{
		ID:          doc.ID,
		Route:       doc.Route,
		Capacity:    doc.Capacity,
		DepartureAt: doc.DepartureAt,
		ArrivalAt:   doc.ArrivalAt,
		Status:      domain.TripStatus(doc.Status),
	}, nil
}

// UpsertTrip exists for test fixtures and seeding; production trip
// writes belong to the scheduling subsystem.
func (c *TripCatalog) UpsertTrip(ctx context.Context, t domain.Trip) error {
	doc := tripDoc{
		ID:          t.ID,
		Route:       t.Route,
		Capacity:    t.Capacity,
		DepartureAt: t.DepartureAt,
		ArrivalAt:   t.ArrivalAt,
		Status:      string(t.Status),
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, doc, options.Replace().SetUpsert(true))
	return err
}
