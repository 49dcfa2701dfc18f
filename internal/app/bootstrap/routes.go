// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	authfeature "github.com/dalemusser/strataauth/internal/app/features/auth"
	errorsfeature "github.com/dalemusser/strataauth/internal/app/features/errors"
	healthfeature "github.com/dalemusser/strataauth/internal/app/features/health"
	"github.com/dalemusser/strataauth/internal/app/store/audit"
	userstore "github.com/dalemusser/strataauth/internal/app/store/users"
	"github.com/dalemusser/strataauth/internal/app/system/auditlog"
	"github.com/dalemusser/strataauth/internal/app/system/authutil"
	"github.com/dalemusser/strataauth/internal/app/system/geoip"
	"github.com/dalemusser/strataauth/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// Routes:
//   - POST /api/auth/register, POST /api/auth/login (also at /register and /login)
//   - GET /health, /health/ready, /health/live, /ready, /readyz, /livez
//   - GET /metrics when metrics_enabled is set
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := authutil.NewTokenIssuer(appCfg.JWTSecret, appCfg.JWTIssuer, appCfg.JWTExpiry)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	geo := geoip.New(geoip.Config{
		BaseURL: appCfg.GeoBaseURL,
		Timeout: appCfg.GeoTimeout,
		DevIP:   appCfg.GeoDevIP,
	}, logger)

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth: appCfg.AuditLogAuth,
	})

	var m *metrics.Metrics
	if appCfg.MetricsEnabled {
		m, err = metrics.New(metrics.Options{})
		if err != nil {
			logger.Error("metrics init failed", zap.Error(err))
			return nil, err
		}
		auditLogger.WithCounter(m)
	}

	svc := authfeature.NewService(
		userstore.New(deps.MongoDatabase),
		geo,
		authutil.NewHasher(appCfg.BcryptCost),
		tokens,
		auditLogger,
		deps.ServerZone,
		logger,
	)

	errLog := errorsfeature.NewErrorLogger(logger)
	authHandler := authfeature.NewHandler(svc, geo, errLog, logger)
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.ServerZone, logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(m.Middleware)

	// CORS must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	if m != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Mount("/api/auth", authfeature.Routes(authHandler))
	authfeature.MountRootEndpoints(r, authHandler)

	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	return r, nil
}
