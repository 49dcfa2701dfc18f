// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/strataauth/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema setup are complete,
// but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
	})
	cur := timeouts.Current()

	logger.Info("strataauth starting",
		zap.String("server_timezone", deps.ServerZone),
		zap.Bool("server_timezone_configured", appCfg.ServerTimezone != ""),
		zap.String("audit_log_auth", appCfg.AuditLogAuth),
		zap.Duration("jwt_expiry", appCfg.JWTExpiry),
		zap.Duration("timeout_medium", cur.Medium),
	)
	return nil
}
