// Package mongo stores transactions as documents in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ledger/internal/core"
	"ledger/internal/store"
)

// ---- Abstractions for testability ----

// DataStore is the subset of collection operations the repository needs.
type DataStore interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	FindDocuments(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]Document, error)
}

// CollectionProvider hands out collections and checks the connection.
type CollectionProvider interface {
	Collection(name string) DataStore
	Ping(ctx context.Context) error
}

// Document is the stored shape of a transaction.
type Document struct {
	ID        string               `bson:"_id"`
	UserID    string               `bson:"user_id"`
	Date      string               `bson:"date"`
	Type      string               `bson:"type"`
	Amount    primitive.Decimal128 `bson:"amount"`
	Category  string               `bson:"category"`
	Title     string               `bson:"title"`
	CreatedAt time.Time            `bson:"created_at"`
}

// MongoCollection adapts *mongo.Collection to DataStore.
type MongoCollection struct {
	*mongo.Collection
}

func (c *MongoCollection) FindDocuments(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]Document, error) {
	cur, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform Find: %w", err)
	}
	var docs []Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{client: client, database: database}
}

func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.client.Database(p.database).Collection(name)}
}

func (p *MongoProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, nil)
}

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	logger.DebugContext(ctx, "Attempting to connect to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.InfoContext(ctx, "Successfully established connection to MongoDB")
	return client, nil
}

var _ store.Gateway = (*Repository)(nil)

// Repository implements store.Gateway on top of a CollectionProvider.
type Repository struct {
	provider CollectionProvider
	newID    func() string
	now      func() time.Time
}

func NewRepository(provider CollectionProvider) *Repository {
	return &Repository{provider: provider, newID: uuid.NewString, now: time.Now}
}

func (r *Repository) collection() DataStore {
	return r.provider.Collection(store.Collection)
}

func (r *Repository) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	docs, err := r.collection().FindDocuments(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		tx, err := d.transaction()
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := store.CheckInsert(tx); err != nil {
		return core.Transaction{}, err
	}
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("encode amount: %w", err)
	}
	tx.ID = r.newID()
	doc := Document{
		ID:        tx.ID,
		UserID:    tx.OwnerID,
		Date:      tx.Date,
		Type:      string(tx.Type),
		Amount:    amount,
		Category:  string(tx.Category),
		Title:     tx.Title,
		CreatedAt: r.now().UTC(),
	}
	if _, err := r.collection().InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (r *Repository) DeleteByID(ctx context.Context, ownerID, id string) error {
	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if res == nil || res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

func (d Document) transaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount of %s: %w", d.ID, err)
	}
	return core.Transaction{
		ID:       d.ID,
		OwnerID:  d.UserID,
		Date:     d.Date,
		Type:     core.TxType(d.Type),
		Amount:   amount,
		Category: core.Category(d.Category),
		Title:    d.Title,
	}, nil
}
