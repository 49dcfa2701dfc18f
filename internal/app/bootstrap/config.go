// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/strataauth/internal/app/system/auditlog"
	"github.com/dalemusser/strataauth/internal/app/system/authutil"
	"github.com/dalemusser/strataauth/internal/app/system/geoip"
	"github.com/dalemusser/strataauth/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAAUTH"

const devJWTSecret = "dev-only-jwt-secret-change-me-0123456789"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: STRATAAUTH_MONGO_URI, STRATAAUTH_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "strataauth", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "Access token signing secret (must be strong in production)"},
	{Name: "jwt_issuer", Default: "strataauth", Desc: "Access token issuer claim (blank omits it)"},
	{Name: "jwt_expiry", Default: "168h", Desc: "Access token lifetime (e.g., 168h, 24h)"},
	{Name: "bcrypt_cost", Default: authutil.DefaultBcryptCost, Desc: "bcrypt work factor (4-31)"},

	// Geolocation
	{Name: "geo_base_url", Default: geoip.DefaultBaseURL, Desc: "ip-api compatible geolocation endpoint"},
	{Name: "geo_timeout", Default: "3s", Desc: "Geolocation lookup timeout"},
	{Name: "geo_dev_ip", Default: geoip.DefaultDevIP, Desc: "IP used for registration lookups from reserved addresses (blank disables)"},

	{Name: "server_timezone", Default: "", Desc: "IANA zone used for server-side timestamps (blank detects from host)"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "Request-level operation timeout"},

	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics at /metrics"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// WAFFLE_* / STRATAAUTH_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:  appValues.String("jwt_secret"),
		JWTIssuer:  appValues.String("jwt_issuer"),
		JWTExpiry:  appValues.Duration("jwt_expiry", authutil.DefaultTokenExpiry),
		BcryptCost: appValues.Int("bcrypt_cost"),

		GeoBaseURL: appValues.String("geo_base_url"),
		GeoTimeout: appValues.Duration("geo_timeout", geoip.DefaultTimeout),
		GeoDevIP:   appValues.String("geo_dev_ip"),

		ServerTimezone: appValues.String("server_timezone"),

		TimeoutPing:   appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),

		MetricsEnabled: appValues.Bool("metrics_enabled"),
		AuditLogAuth:   appValues.String("audit_log_auth"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg, logger)
}

func validateAppConfig(env string, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.JWTSecret == "" {
		return authutil.ErrMissingSecret
	}
	if env == "prod" && appCfg.JWTSecret == devJWTSecret {
		return errors.New("jwt_secret must be changed from the development default in production")
	}
	if appCfg.JWTExpiry <= 0 {
		return fmt.Errorf("jwt_expiry must be positive, got %s", appCfg.JWTExpiry)
	}
	if appCfg.ServerTimezone != "" && !timezones.Valid(appCfg.ServerTimezone) {
		return fmt.Errorf("server_timezone %q is not a valid IANA zone", appCfg.ServerTimezone)
	}
	switch appCfg.AuditLogAuth {
	case "", auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
	default:
		return fmt.Errorf("audit_log_auth must be one of all, db, log, off; got %q", appCfg.AuditLogAuth)
	}
	if appCfg.BcryptCost != 0 && (appCfg.BcryptCost < 4 || appCfg.BcryptCost > 31) {
		logger.Warn("bcrypt_cost out of range, clamping", zap.Int("bcrypt_cost", appCfg.BcryptCost))
	}
	return nil
}
