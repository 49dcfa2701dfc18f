// Package testutil holds shared test helpers: a throwaway MongoDB database
// per test and JSON request/response helpers.
package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// MongoURIEnv overrides the MongoDB used by store tests.
	MongoURIEnv = "STRATAAUTH_TEST_MONGO_URI"
	// RequireMongoEnv set to "1" turns a missing MongoDB into a failure
	// instead of a skip, for CI.
	RequireMongoEnv = "STRATAAUTH_TEST_REQUIRE_MONGO"

	defaultMongoURI = "mongodb://localhost:27017"
	dbNamePrefix    = "strataauth_test_"
	maxDBNameLen    = 63 // MongoDB limit
)

// SchemaFunc prepares a fresh test database. indexes.EnsureAll and
// validators.EnsureAll both fit.
type SchemaFunc func(ctx context.Context, db *mongo.Database) error

var mongoConn struct {
	once   sync.Once
	client *mongo.Client
	err    error
}

func mongoURI() string {
	if uri := strings.TrimSpace(os.Getenv(MongoURIEnv)); uri != "" {
		return uri
	}
	return defaultMongoURI
}

// mongoClient connects once per test binary.
func mongoClient() (*mongo.Client, error) {
	mongoConn.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, options.Client().
			ApplyURI(mongoURI()).
			SetMaxPoolSize(50).
			SetServerSelectionTimeout(3*time.Second))
		if err == nil {
			err = client.Ping(ctx, readpref.Primary())
		}
		mongoConn.client, mongoConn.err = client, err
	})
	return mongoConn.client, mongoConn.err
}

// MongoDB returns an empty database private to t, prepared by each schema
// func in order and dropped when t finishes.
//
// Without a reachable MongoDB the test is skipped, or failed when
// RequireMongoEnv is "1".
func MongoDB(t testing.TB, schema ...SchemaFunc) *mongo.Database {
	t.Helper()

	client, err := mongoClient()
	if err != nil {
		if os.Getenv(RequireMongoEnv) == "1" {
			t.Fatalf("MongoDB required but unavailable at %s: %v", mongoURI(), err)
		}
		t.Skipf("MongoDB unavailable at %s (set %s): %v", mongoURI(), MongoURIEnv, err)
	}

	db := client.Database(DBName(t.Name()))
	ctx := OpContext(t)
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop %s: %v", db.Name(), err)
	}
	for _, fn := range schema {
		if err := fn(ctx, db); err != nil {
			t.Fatalf("prepare %s: %v", db.Name(), err)
		}
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop %s on cleanup: %v", db.Name(), err)
		}
	})
	return db
}

// DBName maps a test name to a valid, per-test database name. Names that
// would exceed MongoDB's limit are cut and suffixed with a hash of the full
// name, so subtests sharing a long prefix still get distinct databases.
func DBName(testName string) string {
	var b strings.Builder
	b.WriteString(dbNamePrefix)
	for _, r := range testName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) <= maxDBNameLen {
		return name
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(testName))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	return name[:maxDBNameLen-len(suffix)] + suffix
}

// OpContext returns a context for one test's database work, cancelled when
// t finishes.
func OpContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
