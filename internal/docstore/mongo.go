package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps each collection to a Mongo collection of
// {_id, createdAt, updatedAt, data} records.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoStore over a database handle.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
	Data      bson.M    `bson:"data"`
}

func (r *mongoRecord) toDocument(collection string) (*Document, error) {
	data, err := normalize(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, r.ID, err)
	}
	return &Document{
		ID:         r.ID,
		Collection: collection,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		Data:       data,
	}, nil
}

func (s *MongoStore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.New().String()
	}
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := mongoRecord{ID: id, CreatedAt: now, UpdatedAt: now, Data: norm}

	if _, err := s.db.Collection(collection).InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
		}
		return nil, err
	}
	return rec.toDocument(collection)
}

func (s *MongoStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	var rec mongoRecord
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, err
	}
	return rec.toDocument(collection)
}

func (s *MongoStore) ListDocuments(ctx context.Context, collection string, queries ...Query) (*DocumentList, error) {
	p, err := planQueries(queries)
	if err != nil {
		return nil, err
	}
	filter, err := mongoFilter(p.filters)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection(collection)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().
		SetSort(mongoSort(p.orders)).
		SetSkip(int64(p.offset)).
		SetLimit(int64(p.limit))

	cursor, err := coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []mongoRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}

	out := &DocumentList{Documents: make([]Document, 0, len(recs)), Total: int(total)}
	for i := range recs {
		doc, err := recs[i].toDocument(collection)
		if err != nil {
			return nil, err
		}
		out.Documents = append(out.Documents, *doc)
	}
	return out, nil
}

func (s *MongoStore) UpdateDocument(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	norm, err := normalize(data)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	for k, v := range norm {
		set["data."+k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec mongoRecord
	err = s.db.Collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return nil, err
	}
	return rec.toDocument(collection)
}

func (s *MongoStore) DeleteDocument(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// mongoFilter translates validated filters into a Mongo filter document.
func mongoFilter(filters []Query) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}
	clauses := make(bson.A, 0, len(filters))
	for _, q := range filters {
		c, err := mongoClause(q)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	if len(clauses) == 1 {
		return clauses[0].(bson.M), nil
	}
	return bson.M{"$and": clauses}, nil
}

// matchNothing is a filter no record satisfies.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

func mongoClause(q Query) (bson.M, error) {
	switch q.Method {
	case MethodAnd, MethodOr:
		if len(q.Queries) == 0 {
			if q.Method == MethodAnd {
				return bson.M{}, nil
			}
			return matchNothing, nil
		}
		subs := make(bson.A, 0, len(q.Queries))
		for _, sub := range q.Queries {
			c, err := mongoClause(sub)
			if err != nil {
				return nil, err
			}
			subs = append(subs, c)
		}
		op := "$and"
		if q.Method == MethodOr {
			op = "$or"
		}
		return bson.M{op: subs}, nil
	}

	values, err := mongoValues(q)
	if err != nil {
		return nil, err
	}
	field := mongoField(q.Attribute)

	switch q.Method {
	case MethodEqual:
		return bson.M{field: bson.M{"$in": values}}, nil
	case MethodNotEqual:
		return bson.M{field: bson.M{"$nin": values}}, nil
	case MethodIsNull:
		return bson.M{"$or": bson.A{bson.M{field: nil}, bson.M{field: bson.A{}}}}, nil
	case MethodContains:
		ors := bson.A{bson.M{field: bson.M{"$elemMatch": bson.M{"$in": values}}}}
		for _, v := range values {
			if s, ok := v.(string); ok {
				ors = append(ors, bson.M{field: bson.M{
					"$not":     bson.M{"$type": "array"},
					"$regex":   regexp.QuoteMeta(s),
					"$options": "i",
				}})
			}
		}
		return bson.M{"$or": ors}, nil
	case MethodGreaterThan, MethodGreaterThanEqual, MethodLessThan, MethodLessThanEqual:
		return bson.M{field: bson.M{mongoOperator(q.Method): values[0]}}, nil
	case MethodSearch:
		text, _ := values[0].(string)
		terms := searchWords(text)
		if len(terms) == 0 {
			return bson.M{}, nil
		}
		ands := make(bson.A, 0, len(terms))
		for _, t := range terms {
			ands = append(ands, bson.M{field: bson.M{"$regex": `\b` + regexp.QuoteMeta(t) + `\b`, "$options": "i"}})
		}
		return bson.M{"$and": ands}, nil
	}
	return nil, fmt.Errorf("%w: unsupported method %q", ErrInvalidQuery, q.Method)
}

// mongoValues normalizes filter values and converts time attribute bounds
// into time.Time so they compare against stored dates.
func mongoValues(q Query) (bson.A, error) {
	out := make(bson.A, 0, len(q.Values))
	for _, v := range q.Values {
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		if q.Attribute == AttrCreatedAt || q.Attribute == AttrUpdatedAt {
			if s, ok := nv.(string); ok {
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return nil, fmt.Errorf("%w: %s wants an RFC3339 time", ErrInvalidQuery, q.Attribute)
				}
				nv = t
			}
		}
		out = append(out, nv)
	}
	return out, nil
}

func mongoField(attribute string) string {
	switch attribute {
	case AttrID:
		return "_id"
	case AttrCreatedAt:
		return "createdAt"
	case AttrUpdatedAt:
		return "updatedAt"
	}
	return "data." + attribute
}

func mongoOperator(m Method) string {
	switch m {
	case MethodGreaterThan:
		return "$gt"
	case MethodGreaterThanEqual:
		return "$gte"
	case MethodLessThan:
		return "$lt"
	default:
		return "$lte"
	}
}

func mongoSort(orders []Query) bson.D {
	sort := make(bson.D, 0, len(orders)+2)
	seen := map[string]bool{}
	for _, o := range orders {
		field := mongoField(o.Attribute)
		if seen[field] {
			continue
		}
		seen[field] = true
		dir := 1
		if o.Method == MethodOrderDesc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	for _, field := range []string{"createdAt", "_id"} {
		if !seen[field] {
			sort = append(sort, bson.E{Key: field, Value: 1})
		}
	}
	return sort
}
