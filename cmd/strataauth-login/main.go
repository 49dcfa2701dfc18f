// Command strataauth-login logs in against a strataauth server and prints
// the response. The local IANA zone is sent so the recorded login entry
// shows the user's wall-clock time.
//
// Usage:
//
//	strataauth-login -email chat@chat.com -password password
//	STRATAAUTH_URL=http://auth.internal:8080 strataauth-login -email ... -password ...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/strataauth/internal/app/system/timezones"
	"github.com/dalemusser/strataauth/internal/authclient"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := authclient.ConfigFromEnv()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "server base URL")
	flag.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA zone to report (default: local zone)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = timezones.ResolveServerZone()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	resp, err := authclient.New(cfg).Login(ctx, *email, *password)
	if err != nil {
		var apiErr *authclient.APIError
		if errors.As(err, &apiErr) {
			logger.Error("login failed", zap.Int("status", apiErr.Status), zap.String("error", apiErr.Message))
		} else {
			logger.Error("login failed", zap.Error(err))
		}
		os.Exit(1)
	}

	logger.Info("login succeeded",
		zap.String("user_id", resp.User.UserID),
		zap.String("timezone", cfg.Timezone),
	)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}
