package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentwheels/internal/domain/booking"
	domaincars "rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		col:   db.Collection(bookingsCollection),
		locks: db.Collection(bookingLocksCollection),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

// Save must run inside the unit's transaction. For blocking bookings it first
// bumps the car's lock document, so two transactions booking the same car
// write-conflict and one of them is retried or rejected before the overlap
// count below can go stale.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b.Status().Blocking() {
		if err := r.lockCar(ctx, b.CarID); err != nil {
			return err
		}
		filter := overlapFilter(b.CarID, b.Period.Range, b.ID)
		n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			return domainbooking.ErrIntervalTaken
		}
	}

	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	err := versionedUpsert(ctx, r.col, doc.ID, b.Version, doc)
	if errors.Is(err, errVersionMismatch) {
		return domainbooking.ErrConcurrentUpdate
	}
	if err != nil {
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, car domaincars.ID, rng daterange.Range, exclude domainbooking.ID) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}})
	return r.find(ctx, overlapFilter(car, rng, exclude), opts)
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"renter_id": renterID}, opts)
}

func (r *BookingRepository) ListByCars(ctx context.Context, carIDs []domaincars.ID) ([]*domainbooking.Booking, error) {
	if len(carIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(carIDs))
	for _, id := range carIDs {
		ids = append(ids, string(id))
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"car_id": bson.M{"$in": ids}}, opts)
}

func (r *BookingRepository) lockCar(ctx context.Context, car domaincars.ID) error {
	_, err := r.locks.UpdateOne(ctx,
		bson.M{"_id": string(car)},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// overlapFilter selects blocking bookings of car sharing at least one instant with rng.
func overlapFilter(car domaincars.ID, rng daterange.Range, exclude domainbooking.ID) bson.M {
	statuses := make([]string, 0, len(domainbooking.BlockingStatuses))
	for _, s := range domainbooking.BlockingStatuses {
		statuses = append(statuses, string(s))
	}
	filter := bson.M{
		"car_id":      string(car),
		"status":      bson.M{"$in": statuses},
		"range.start": bson.M{"$lte": rng.End.UTC()},
		"range.end":   bson.M{"$gte": rng.Start.UTC()},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	return filter
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
