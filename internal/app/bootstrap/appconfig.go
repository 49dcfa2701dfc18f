// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers the HTTP server, logging, CORS and body limits.
// Everything the auth service itself needs lives here and is passed to the
// lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Token signing
	JWTSecret string        // HMAC secret for signing access tokens (must be strong in production)
	JWTIssuer string        // iss claim; empty omits it
	JWTExpiry time.Duration // token lifetime (default: 168h)

	BcryptCost int // bcrypt work factor (default: 10)

	// Geolocation lookups
	GeoBaseURL string        // ip-api compatible endpoint
	GeoTimeout time.Duration // per-lookup timeout (default: 3s)
	GeoDevIP   string        // substituted for reserved addresses at registration

	// ServerTimezone overrides host zone detection when set (e.g., America/Chicago).
	ServerTimezone string

	// Operation timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration

	// MetricsEnabled exposes Prometheus collectors at /metrics.
	MetricsEnabled bool

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth string
}
