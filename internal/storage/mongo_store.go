package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-page-builder/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// pageDoc is the document kept in the pages collection.
type pageDoc struct {
	ID         string    `bson:"_id"`
	Title      string    `bson:"title"`
	Author     string    `bson:"author"`
	Components int       `bson:"components"`
	UpdatedAt  time.Time `bson:"updated_at"`
	Revisions  int       `bson:"revisions"` // Also the number of the latest revision
	Data       string    `bson:"data"`      // Snapshot JSON
}

// revisionDoc is the document kept in the page_revisions collection.
type revisionDoc struct {
	PageID  string    `bson:"page_id"`
	Number  int       `bson:"number"`
	Title   string    `bson:"title"`
	SavedAt time.Time `bson:"saved_at"`
	Data    string    `bson:"data"`
}

// MongoStore keeps pages in the pages collection and their revisions in
// page_revisions.
type MongoStore struct {
	pages     *mongo.Collection
	revisions *mongo.Collection
	client    *mongo.Client // Set when the store owns the connection
	now       func() time.Time
}

// NewMongoStore connects to uri and uses database dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s, err := NewMongoStoreFromDB(ctx, client.Database(dbName))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.client = client
	return s, nil
}

// NewMongoStoreFromDB uses an existing database handle. Close does not
// disconnect its client.
func NewMongoStoreFromDB(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		pages:     db.Collection("pages"),
		revisions: db.Collection("page_revisions"),
		now:       time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.revisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "page_id", Value: 1}, {Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("page_revisions_page_number"),
	})
	if err != nil {
		return fmt.Errorf("failed to create page_revisions index: %w", err)
	}
	_, err = s.pages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("pages_updated_at"),
	})
	if err != nil {
		return fmt.Errorf("failed to create pages index: %w", err)
	}
	return nil
}

// Save bumps the page's revision counter while storing the latest data,
// then inserts the revision under the number it got back.
func (s *MongoStore) Save(ctx context.Context, snap *model.Snapshot) (model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return model.Revision{}, err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return model.Revision{}, err
	}

	update := bson.M{
		"$set": bson.M{
			"title":      snap.Metadata.Title,
			"author":     snap.Metadata.Author,
			"components": len(snap.Components),
			"updated_at": snap.Metadata.UpdatedAt,
			"data":       string(data),
		},
		"$inc": bson.M{"revisions": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc pageDoc
	if err := s.pages.FindOneAndUpdate(ctx, bson.M{"_id": snap.PageID}, update, opts).Decode(&doc); err != nil {
		return model.Revision{}, fmt.Errorf("failed to upsert page %s: %w", snap.PageID, err)
	}

	rev := model.Revision{
		PageID:  snap.PageID,
		Number:  doc.Revisions,
		Title:   snap.Metadata.Title,
		SavedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.revisions.InsertOne(ctx, revisionDoc{
		PageID:  rev.PageID,
		Number:  rev.Number,
		Title:   rev.Title,
		SavedAt: rev.SavedAt,
		Data:    string(data),
	})
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to insert revision %d of page %s: %w", rev.Number, snap.PageID, err)
	}
	return rev, nil
}

// Load reads the latest version of a page.
func (s *MongoStore) Load(ctx context.Context, pageID string) (*model.Snapshot, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	var doc pageDoc
	err := s.pages.FindOne(ctx, bson.M{"_id": pageID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}
	return decodeSnapshot(pageID, []byte(doc.Data))
}

// List reads every page without its data.
func (s *MongoStore) List(ctx context.Context) ([]model.PageSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"data": 0})
	cur, err := s.pages.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer cur.Close(ctx)

	out := []model.PageSummary{}
	for cur.Next(ctx) {
		var doc pageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode page document: %w", err)
		}
		out = append(out, model.PageSummary{
			ID:         doc.ID,
			Title:      doc.Title,
			Author:     doc.Author,
			Components: doc.Components,
			UpdatedAt:  doc.UpdatedAt.UTC(),
			Revisions:  doc.Revisions,
		})
	}
	return out, cur.Err()
}

// Delete removes a page and its revisions.
func (s *MongoStore) Delete(ctx context.Context, pageID string) error {
	if err := checkPageID(pageID); err != nil {
		return err
	}
	res, err := s.pages.DeleteOne(ctx, bson.M{"_id": pageID})
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", pageID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	if _, err := s.revisions.DeleteMany(ctx, bson.M{"page_id": pageID}); err != nil {
		return fmt.Errorf("failed to delete revisions of page %s: %w", pageID, err)
	}
	return nil
}

// ListRevisions reads the revision headers of a page, oldest first.
func (s *MongoStore) ListRevisions(ctx context.Context, pageID string) ([]model.Revision, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	n, err := s.pages.CountDocuments(ctx, bson.M{"_id": pageID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up page %s: %w", pageID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "number", Value: 1}}).
		SetProjection(bson.M{"data": 0})
	cur, err := s.revisions.Find(ctx, bson.M{"page_id": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions of page %s: %w", pageID, err)
	}
	defer cur.Close(ctx)

	out := []model.Revision{}
	for cur.Next(ctx) {
		var doc revisionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode revision document: %w", err)
		}
		out = append(out, model.Revision{
			PageID:  doc.PageID,
			Number:  doc.Number,
			Title:   doc.Title,
			SavedAt: doc.SavedAt.UTC(),
		})
	}
	return out, cur.Err()
}

// LoadRevision reads one saved version of a page.
func (s *MongoStore) LoadRevision(ctx context.Context, pageID string, number int) (*model.Snapshot, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	var doc revisionDoc
	err := s.revisions.FindOne(ctx, bson.M{"page_id": pageID, "number": number}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("page %s revision %d: %w", pageID, number, ErrRevisionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load revision %d of page %s: %w", number, pageID, err)
	}
	return decodeSnapshot(pageID, []byte(doc.Data))
}

// Close disconnects the client if the store opened it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
