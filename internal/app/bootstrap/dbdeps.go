// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// Created in ConnectDB and passed to EnsureSchema, Startup, BuildHandler and
// Shutdown.
type DBDeps struct {
	// MongoDB client and database
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// ServerZone is resolved once in ConnectDB.
	ServerZone string
}
