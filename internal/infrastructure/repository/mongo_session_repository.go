package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/infrastructure/repository/entity"
	"shopify-embed-auth/internal/ports"
)

// MongoSessionRepository implements UserSessionRepository using MongoDB.
// The session id is the document id, so the record and the denormalized
// userId it carries always land in one atomic document write.
type MongoSessionRepository struct {
	collection *mongo.Collection
	crypto     ports.EncryptionService
}

// NewMongoSessionRepository creates a new MongoDB session repository.
// crypto encrypts access tokens at rest; nil stores them as-is.
func NewMongoSessionRepository(db *mongo.Database, crypto ports.EncryptionService) *MongoSessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection("sessions"),
		crypto:     crypto,
	}
}

// EnsureIndexes creates the user lookup index and the TTL index that
// reaps expired online sessions
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetSparse(true),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

// Store saves or updates a session
func (r *MongoSessionRepository) Store(ctx context.Context, session *domain.Session) error {
	record := session.Clone()
	if r.crypto != nil && record.AccessToken != "" {
		encrypted, err := r.crypto.Encrypt(record.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		record.AccessToken = encrypted
	}

	doc := entity.MongoSessionDocFromDomain(record)
	doc.UpdatedAt = time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Retrieve returns the stored session, or domain.ErrSessionNotFound
func (r *MongoSessionRepository) Retrieve(ctx context.Context, id string) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return r.toDomain(&doc)
}

// RetrieveByUserID returns the user's most recent online session, or
// domain.ErrSessionNotFound. A user installed in several shops has one
// record per shop; the freshest wins.
func (r *MongoSessionRepository) RetrieveByUserID(ctx context.Context, userID int64) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	filter := bson.M{"userId": userID, "isOnline": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user session: %w", err)
	}
	return r.toDomain(&doc)
}

// Delete removes a session
func (r *MongoSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *MongoSessionRepository) toDomain(doc *entity.MongoSessionDoc) (*domain.Session, error) {
	session := doc.ToDomain()
	if r.crypto != nil && session.AccessToken != "" {
		token, err := r.crypto.Decrypt(session.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		session.AccessToken = token
	}
	return session, nil
}
