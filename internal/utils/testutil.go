package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var loadEnvOnce sync.Once

// loadTestEnv loads the project .env so MONGO_URI can live there.
func loadTestEnv() {
	loadEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			_ = godotenv.Load()
		}
	})
}

// GetTestMongoURI returns the MongoDB URI used by store tests, or "" when none
// is configured.
func GetTestMongoURI() string {
	loadTestEnv()
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	return os.Getenv("MONGODB_URI")
}

// SetupTestDB connects to the test MongoDB, drops the given collections and
// returns the database. The test is skipped when no MongoDB is configured.
// The client is disconnected and the database dropped when the test ends.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := GetTestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping MongoDB-backed test")
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	db := client.Database(dbName)

	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}
