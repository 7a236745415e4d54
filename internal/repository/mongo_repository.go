package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"anpr-api/internal/domain/anpr"
)

const plateImageField = "plate_image"

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *MongoRepository) CountInRange(ctx context.Context, tr anpr.TimeRange) (int64, error) {
	return r.coll.CountDocuments(ctx, rangeFilter(tr))
}

func (r *MongoRepository) Iterate(ctx context.Context, q ListQuery, fn func(anpr.DetectionRecord) error) error {
	if err := q.validate(); err != nil {
		return err
	}

	cur, err := r.coll.Find(ctx, rangeFilter(q.Range), findOptions(q))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode detection: %w", err)
		}
		if err := fn(decodeRecord(doc)); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*anpr.DetectionRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var doc bson.M
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec := decodeRecord(doc)
	return &rec, nil
}

func (r *MongoRepository) FindImage(ctx context.Context, id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", ErrInvalidID
	}

	var doc bson.M
	opts := options.FindOne().SetProjection(bson.M{plateImageField: 1})
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	image := asImage(doc[plateImageField])
	if image == "" {
		return "", ErrNotFound
	}
	return image, nil
}

// findOptions builds the cursor options for q. Queries that carry images may
// sort more than the 100MB the server allows in memory, so they spill to disk.
func findOptions(q ListQuery) *options.FindOptions {
	opts := options.Find().SetSort(sortDocument(q.Sort))
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.WithImage {
		opts.SetAllowDiskUse(true)
	} else {
		opts.SetProjection(bson.M{plateImageField: 0})
	}
	return opts
}

// effectiveTimestampExpr is the server-side form of anpr.EffectiveTimestamp.
var effectiveTimestampExpr = bson.M{"$ifNull": bson.A{"$" + string(anpr.FieldTimestamp), "$" + string(anpr.FieldCreatedAt)}}

func rangeFilter(tr anpr.TimeRange) bson.M {
	var conds bson.A
	if tr.From != nil {
		conds = append(conds, bson.M{"$gte": bson.A{effectiveTimestampExpr, *tr.From}})
	}
	if tr.To != nil {
		// null sorts below every date, so records without any timestamp
		// would otherwise satisfy an upper bound
		conds = append(conds,
			bson.M{"$ne": bson.A{effectiveTimestampExpr, nil}},
			bson.M{"$lte": bson.A{effectiveTimestampExpr, *tr.To}},
		)
	}
	if len(conds) == 0 {
		return bson.M{}
	}
	return bson.M{"$expr": bson.M{"$and": conds}}
}

func sortDocument(keys []anpr.SortKey) bson.D {
	sort := make(bson.D, 0, len(keys))
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: string(k.Field), Value: dir})
	}
	return sort
}

// decodeRecord maps a raw document onto a DetectionRecord. Fields of an
// unexpected type are treated as missing.
func decodeRecord(doc bson.M) anpr.DetectionRecord {
	rec := anpr.DetectionRecord{
		ID:                asID(doc["_id"]),
		PlateNumber:       asString(doc["plate_number"]),
		RawText:           asString(doc["raw_text"]),
		Confidence:        asFloat(doc["confidence"]),
		OCREngine:         asString(doc["ocr_engine"]),
		Timestamp:         asTime(doc["timestamp"]),
		CreatedAt:         asTime(doc["created_at"]),
		FrameCoords:       plainValue(doc["frame_coords"]),
		VehicleCoords:     plainValue(doc["vehicle_coords"]),
		VehicleConfidence: asFloat(doc["vehicle_confidence"]),
		VehicleClass:      asInt(doc["vehicle_class"]),
		PlateImage:        asImage(doc[plateImageField]),
	}
	if saved, ok := doc["image_saved"].(bool); ok {
		rec.ImageSaved = saved
	}
	return rec
}

func asID(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asImage(v interface{}) string {
	switch img := v.(type) {
	case string:
		return img
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(img.Data)
	default:
		return ""
	}
}

func asFloat(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case primitive.Decimal128:
		parsed, err := parseDecimal(n)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func asInt(v interface{}) *int {
	var i int
	switch n := v.(type) {
	case int32:
		i = int(n)
	case int64:
		i = int(n)
	case float64:
		if math.IsInf(n, 0) || n != math.Trunc(n) {
			return nil
		}
		i = int(n)
	default:
		return nil
	}
	return &i
}

func asTime(v interface{}) *time.Time {
	var t time.Time
	switch d := v.(type) {
	case primitive.DateTime:
		t = d.Time()
	case time.Time:
		t = d
	default:
		return nil
	}
	t = t.UTC()
	return &t
}

func parseDecimal(d primitive.Decimal128) (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}

// plainValue converts bson container types into maps and slices that encode
// to ordinary JSON.
func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = plainValue(e)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = plainValue(e)
		}
		return out
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return anpr.FormatUTC(asTime(val))
	default:
		return val
	}
}
