package validators

import (
	"errors"
	"testing"

	"github.com/dalemusser/strataauth/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.MongoDB(t)
	ctx := testutil.OpContext(t)

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	for _, coll := range []string{"users", "audit_logs"} {
		exists, err := collectionExists(ctx, db, coll)
		if err != nil {
			t.Errorf("collectionExists(%s) error = %v", coll, err)
			continue
		}
		if !exists {
			t.Errorf("collection %s should exist after EnsureAll", coll)
		}
	}

	// Run again to verify idempotency
	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll() error = %v", err)
	}
}

func TestUsersValidator_AcceptsBothHistoryShapes(t *testing.T) {
	db := testutil.MongoDB(t)
	ctx := testutil.OpContext(t)

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	users := db.Collection("users")

	base := func(email string) bson.M {
		return bson.M{
			"name":           "Ada",
			"email":          email,
			"password_hash":  "$2a$10$abcdefghijklmnopqrstuv",
			"account_status": "active",
		}
	}

	arr := base("array@example.com")
	arr["login_history"] = bson.A{}
	if _, err := users.InsertOne(ctx, arr); err != nil {
		t.Errorf("insert with array history: %v", err)
	}

	legacy := base("legacy@example.com")
	legacy["login_history"] = bson.D{{Key: "log1", Value: bson.M{"log": "log1"}}}
	if _, err := users.InsertOne(ctx, legacy); err != nil {
		t.Errorf("insert with legacy history: %v", err)
	}

	bad := base("bad@example.com")
	bad["account_status"] = "banned"
	if _, err := users.InsertOne(ctx, bad); err == nil {
		t.Error("insert with unknown account_status should be rejected")
	}
}

func TestEnsureCollection(t *testing.T) {
	db := testutil.MongoDB(t)
	ctx := testutil.OpContext(t)

	created, err := ensureCollection(ctx, db, "new_collection")
	if err != nil {
		t.Fatalf("First ensureCollection() error = %v", err)
	}
	if !created {
		t.Error("First ensureCollection() should return created=true")
	}

	created, err = ensureCollection(ctx, db, "new_collection")
	if err != nil {
		t.Fatalf("Second ensureCollection() error = %v", err)
	}
	if created {
		t.Error("Second ensureCollection() should return created=false")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"exists nil", isNamespaceExistsErr, nil, false},
		{"exists generic", isNamespaceExistsErr, errors.New("some error"), false},
		{"exists message", isNamespaceExistsErr, errors.New("collection already exists"), true},
		{"exists uppercase", isNamespaceExistsErr, errors.New("NAMESPACE EXISTS"), true},
		{"exists code 48", isNamespaceExistsErr, mongo.CommandError{Code: 48, Message: "x"}, true},
		{"no such command message", isNoSuchCommand, errors.New("no such command: collMod"), true},
		{"no such command code 59", isNoSuchCommand, mongo.CommandError{Code: 59, Message: "x"}, true},
		{"no such command generic", isNoSuchCommand, errors.New("boom"), false},
		{"not implemented code 115", isNotImplemented, mongo.CommandError{Code: 115, Message: "x"}, true},
		{"not supported message", isNotImplemented, mongo.CommandError{Message: "feature not supported"}, true},
		{"not implemented other code", isNotImplemented, mongo.CommandError{Code: 2, Message: "bad value"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsersSchema(t *testing.T) {
	schemaMap, ok := usersSchema()["$jsonSchema"].(bson.M)
	if !ok {
		t.Fatal("usersSchema() should have a $jsonSchema bson.M")
	}
	props, ok := schemaMap["properties"].(bson.M)
	if !ok {
		t.Fatal("schema should have properties")
	}
	status, ok := props["account_status"].(bson.M)
	if !ok {
		t.Fatal("schema should constrain account_status")
	}
	if got := len(status["enum"].(bson.A)); got != 3 {
		t.Errorf("account_status enum has %d values, want 3", got)
	}
}
