package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/devscout/pkg/httputil"
)

// MongoCollection is the collection saved candidates live in.
const MongoCollection = "saved_candidates"

// MongoStore keeps one document per saved candidate, keyed by the
// lowercased username.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type mongoDoc struct {
	Key   string `bson:"_id"`
	Saved `bson:",inline"`
}

// NewMongoStore connects to uri and verifies the connection with a ping,
// retrying transient failures.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	err = httputil.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return &httputil.RetryableError{Err: err}
		}
		return nil
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if database == "" {
		database = "devscout"
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(MongoCollection),
		now:    time.Now,
	}, nil
}

func (m *MongoStore) Save(ctx context.Context, s Saved) (Saved, error) {
	var prev *Saved
	if p, err := m.Get(ctx, s.Username); err == nil {
		prev = &p
	} else if !errors.Is(err, ErrNotFound) {
		return Saved{}, err
	}
	s, err := prepare(s, prev, m.now())
	if err != nil {
		return Saved{}, err
	}
	key := Key(s.Username)
	_, err = m.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoDoc{Key: key, Saved: s},
		options.Replace().SetUpsert(true))
	if err != nil {
		return Saved{}, fmt.Errorf("save %s: %w", s.Username, err)
	}
	return s, nil
}

func (m *MongoStore) Get(ctx context.Context, username string) (Saved, error) {
	var doc mongoDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": Key(username)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Saved{}, ErrNotFound
	}
	if err != nil {
		return Saved{}, fmt.Errorf("get %s: %w", username, err)
	}
	return doc.Saved, nil
}

func (m *MongoStore) List(ctx context.Context, f Filter) ([]Saved, error) {
	cur, err := m.coll.Find(ctx, mongoFilter(f),
		options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list saved: %w", err)
	}
	defer cur.Close(ctx)

	var out []Saved
	for cur.Next(ctx) {
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode saved: %w", err)
		}
		out = append(out, doc.Saved)
	}
	return out, cur.Err()
}

// mongoFilter translates f into a query document. Labels match
// case-insensitively, like [Filter.Match].
func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Label != "" {
		q["labels"] = bson.M{"$elemMatch": bson.M{
			"$regex":   "^" + regexp.QuoteMeta(f.Label) + "$",
			"$options": "i",
		}}
	}
	return q
}

func (m *MongoStore) UpdateStatus(ctx context.Context, username string, st Status) error {
	if err := checkStatus(st); err != nil {
		return err
	}
	res, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": Key(username)},
		bson.M{"$set": bson.M{"status": st, "updated_at": m.now()}})
	if err != nil {
		return fmt.Errorf("update %s: %w", username, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, username string) error {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": Key(username)})
	if err != nil {
		return fmt.Errorf("delete %s: %w", username, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
