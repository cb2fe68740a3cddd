package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincars "rentwheels/internal/domain/cars"
)

type CarRepository struct {
	col *mongo.Collection
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{col: db.Collection(carsCollection)}
}

func (r *CarRepository) ByID(ctx context.Context, id domaincars.ID) (*domaincars.Car, error) {
	var doc carDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincars.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CarRepository) Save(ctx context.Context, car *domaincars.Car) error {
	doc := newCarDocument(car)
	doc.Version = car.Version + 1
	err := versionedUpsert(ctx, r.col, doc.ID, car.Version, doc)
	if errors.Is(err, errVersionMismatch) {
		return domaincars.ErrConcurrentUpdate
	}
	if err != nil {
		return err
	}
	car.Version = doc.Version
	return nil
}

// Seed inserts cars that are not stored yet and leaves existing ones untouched.
func (r *CarRepository) Seed(ctx context.Context, cars []*domaincars.Car) error {
	for _, car := range cars {
		doc := newCarDocument(car)
		if doc.Version == 0 {
			doc.Version = 1
		}
		_, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *CarRepository) Search(ctx context.Context, params domaincars.SearchParams) (domaincars.SearchResult, error) {
	params = params.Normalized()
	filter := searchFilter(params)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domaincars.SearchResult{}, err
	}
	opts := options.Find().
		SetSort(searchSort(params.Sort)).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.Limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return domaincars.SearchResult{}, err
	}
	var docs []carDocument
	if err := cur.All(ctx, &docs); err != nil {
		return domaincars.SearchResult{}, err
	}
	items := make([]*domaincars.Car, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toAggregate())
	}
	return domaincars.SearchResult{Items: items, Total: int(total)}, nil
}

// searchFilter expresses SearchParams.Matches as a query.
func searchFilter(p domaincars.SearchParams) bson.M {
	filter := bson.M{}
	if p.OwnerID != "" {
		filter["owner_id"] = p.OwnerID
	}
	if p.OnlyActive {
		filter["status"] = string(domaincars.StatusActive)
		filter["available"] = true
	}
	if p.City != "" {
		filter["city_key"] = p.City
	}
	if p.Country != "" {
		filter["country_key"] = p.Country
	}
	if p.Category != "" {
		filter["category"] = p.Category
	}
	if p.Transmission != "" {
		filter["transmission"] = p.Transmission
	}
	if p.FuelType != "" {
		filter["fuel_type"] = p.FuelType
	}
	if p.MinSeats > 0 {
		filter["seats"] = bson.M{"$gte": p.MinSeats}
	}
	daily := bson.M{}
	if p.PriceMinCents > 0 {
		daily["$gte"] = p.PriceMinCents
	}
	if p.PriceMaxCents > 0 {
		daily["$lte"] = p.PriceMaxCents
	}
	if len(daily) > 0 {
		filter["rates.daily"] = daily
	}
	return filter
}

func searchSort(by domaincars.CatalogSort) bson.D {
	switch by {
	case domaincars.SortByPriceDesc:
		return bson.D{{Key: "rates.daily", Value: -1}, {Key: "_id", Value: 1}}
	case domaincars.SortByRating:
		return bson.D{{Key: "rating.average", Value: -1}, {Key: "_id", Value: 1}}
	case domaincars.SortByNewest:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "rates.daily", Value: 1}, {Key: "_id", Value: 1}}
	}
}

var errVersionMismatch = errors.New("mongo: version mismatch")

// versionedUpsert replaces the document id only if its stored version still
// equals expected. doc must already carry expected+1. A stale or missing
// document makes the upsert collide on _id.
func versionedUpsert(ctx context.Context, col *mongo.Collection, id string, expected int64, doc any) error {
	filter := bson.M{"_id": id, "version": expected}
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errVersionMismatch
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return errVersionMismatch
	}
	return nil
}

var _ domaincars.Repository = (*CarRepository)(nil)
