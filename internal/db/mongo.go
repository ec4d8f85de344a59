package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names owned by the record store.
const (
	BooksCollection          = "books"
	PurchasesCollection      = "purchases"
	ContactsCollection       = "contacts"
	EmailTemplatesCollection = "email_templates"
)

// RecordCollections lists every append-only record collection.
var RecordCollections = []string{BooksCollection, PurchasesCollection, ContactsCollection}

// ConnectDB initializes and returns a MongoDB client and database instance.
// Operation timeouts are left to the driver and the connection string.
func ConnectDB(uri, dbName, appName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetAppName(appName)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Connected to MongoDB database %q", dbName)
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	log.Println("MongoDB connection closed.")
	return nil
}

// EnsureIndexes creates the newest-first index on every record collection and
// the lookup index on email templates. Creating an existing index is a no-op.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	newestFirst := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	}
	for _, name := range RecordCollections {
		if _, err := database.Collection(name).Indexes().CreateOne(ctx, newestFirst); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}

	templateLookup := mongo.IndexModel{
		Keys:    bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}},
		Options: options.Index().SetName("template_locale").SetUnique(true),
	}
	if _, err := database.Collection(EmailTemplatesCollection).Indexes().CreateOne(ctx, templateLookup); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", EmailTemplatesCollection, err)
	}
	return nil
}
