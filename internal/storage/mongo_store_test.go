package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoOnce   sync.Once
	mongoClient *mongo.Client
	mongoErr    error
)

// testMongoClient connects once to PAGEBUILDER_TEST_MONGO_URI.
func testMongoClient(t *testing.T) *mongo.Client {
	t.Helper()
	uri := os.Getenv("PAGEBUILDER_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PAGEBUILDER_TEST_MONGO_URI not set")
	}
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient, mongoErr = mongo.Connect(ctx, options.Client().
			ApplyURI(uri).
			SetServerSelectionTimeout(5*time.Second))
		if mongoErr != nil {
			return
		}
		mongoErr = mongoClient.Ping(ctx, nil)
	})
	if mongoErr != nil {
		t.Skipf("MongoDB not reachable: %v", mongoErr)
	}
	return mongoClient
}

func newTestMongoStore(t *testing.T) PageStore {
	client := testMongoClient(t)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db := client.Database(fmt.Sprintf("pagebuilder_test_%s", name))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
	store, err := NewMongoStoreFromDB(ctx, db)
	if err != nil {
		t.Fatalf("NewMongoStoreFromDB() failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db.Drop(ctx)
	})
	return store
}

func TestMongoStore(t *testing.T) {
	testPageStore(t, newTestMongoStore)
}
