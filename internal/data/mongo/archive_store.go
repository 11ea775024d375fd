// Package mongo provides the MongoDB implementation of the billing-event
// audit archive. Documents are immutable once written and retained
// indefinitely for audit.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crav-platform/credit-ledger/internal/domain/archive"
)

const (
	// ArchiveCollectionName is the name of the event archive collection
	ArchiveCollectionName = "billing_event_archive"
)

// archiveDocument is the archive.Record shape persisted to MongoDB
type archiveDocument struct {
	EventID   string     `bson:"event_id"`
	AccountID uuid.UUID  `bson:"account_id"`
	EventType string     `bson:"event_type"`
	Result    string     `bson:"result"`
	EntryID   *uuid.UUID `bson:"entry_id,omitempty"`
	Payload   string     `bson:"payload"`
	CreatedAt time.Time  `bson:"created_at"`
	ShippedAt time.Time  `bson:"shipped_at"`
}

// ArchiveStore implements the archive.Store interface for MongoDB
type ArchiveStore struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveStore creates a new MongoDB event archive store
func NewArchiveStore(logger *slog.Logger, db *mongo.Database) archive.Store {
	return &ArchiveStore{
		db:     db,
		logger: logger,
	}
}

// Insert stores an archive record. Re-shipping the same event overwrites the
// existing document with identical content, so retries are harmless.
func (s *ArchiveStore) Insert(ctx context.Context, record *archive.Record) error {
	collection := s.db.Collection(ArchiveCollectionName)

	doc := archiveDocument{
		EventID:   record.EventID,
		AccountID: record.AccountID,
		EventType: record.EventType,
		Result:    record.Result,
		EntryID:   record.EntryID,
		Payload:   string(record.Payload),
		CreatedAt: record.CreatedAt,
		ShippedAt: time.Now().UTC(),
	}

	filter := bson.M{"event_id": record.EventID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
		s.logger.Error("Failed to insert archive document",
			"event_id", record.EventID,
			"error", err)
		return fmt.Errorf("failed to insert archive document: %w", err)
	}

	return nil
}

// FindByEventID retrieves an archived event. Returns nil if not archived yet.
func (s *ArchiveStore) FindByEventID(ctx context.Context, eventID string) (*archive.Record, error) {
	collection := s.db.Collection(ArchiveCollectionName)

	var doc archiveDocument
	err := collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		s.logger.Error("Failed to find archive document",
			"event_id", eventID,
			"error", err)
		return nil, fmt.Errorf("failed to find archive document: %w", err)
	}

	return docToRecord(&doc), nil
}

// ListByAccountID retrieves paginated archived events for an account,
// newest first
func (s *ArchiveStore) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*archive.Record, error) {
	collection := s.db.Collection(ArchiveCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error("Failed to list archive documents",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list archive documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []archiveDocument
	if err := cursor.All(ctx, &docs); err != nil {
		s.logger.Error("Failed to decode archive documents",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archive documents: %w", err)
	}

	records := make([]*archive.Record, 0, len(docs))
	for i := range docs {
		records = append(records, docToRecord(&docs[i]))
	}

	return records, nil
}

func docToRecord(doc *archiveDocument) *archive.Record {
	return &archive.Record{
		EventID:   doc.EventID,
		AccountID: doc.AccountID,
		EventType: doc.EventType,
		Result:    doc.Result,
		EntryID:   doc.EntryID,
		Payload:   json.RawMessage(doc.Payload),
		Status:    archive.ShipStatusShipped,
		CreatedAt: doc.CreatedAt,
	}
}
