// Package geoip resolves public IP addresses to a human-readable location
// using the ip-api.com JSON endpoint.
//
// Lookups never fail from the caller's point of view: network errors,
// non-2xx responses and unsuccessful lookups all resolve to Unknown.
package geoip

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/strataauth/internal/app/system/network"
	"github.com/dalemusser/strataauth/internal/app/system/timeouts"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Sentinel location strings.
const (
	Unknown        = "Unknown"
	PrivateNetwork = "Localhost or Private Network"

	unknownCity    = "Unknown city"
	unknownRegion  = "Unknown region"
	unknownCountry = "Unknown country"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL = "http://ip-api.com"
	DefaultTimeout = 3 * time.Second
	DefaultDevIP   = "8.8.8.8"
)

// Config holds resolver configuration.
type Config struct {
	BaseURL string        // ip-api compatible endpoint (default: http://ip-api.com)
	Timeout time.Duration // per-lookup timeout (default: 3s)

	// DevIP replaces loopback/private addresses in LookupForRegistration so
	// local development still records a plausible location. Empty disables
	// the substitution.
	DevIP string
}

// Resolver performs geolocation lookups.
type Resolver struct {
	client  *resty.Client
	timeout time.Duration
	devIP   string
	logger  *zap.Logger
}

// New creates a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Resolver{
		client:  cli,
		timeout: cfg.Timeout,
		devIP:   cfg.DevIP,
		logger:  logger,
	}
}

// apiResponse mirrors the fields we read from ip-api.com.
type apiResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	City       *string `json:"city"`
	RegionName *string `json:"regionName"`
	Country    *string `json:"country"`
}

// Lookup resolves a normalized IP to "<city>, <region>, <country>".
//
// Reserved addresses short-circuit to PrivateNetwork without an outbound
// call, an empty address resolves to Unknown, and any lookup failure
// resolves to Unknown.
func (r *Resolver) Lookup(ctx context.Context, ip string) string {
	if ip == "" {
		return Unknown
	}
	if network.IsReserved(ip) {
		return PrivateNetwork
	}
	return r.fetch(ctx, ip)
}

// LookupForRegistration resolves the location recorded on a new account.
// Loopback and private addresses are swapped for the configured DevIP; if no
// DevIP is configured it behaves like Lookup.
func (r *Resolver) LookupForRegistration(ctx context.Context, ip string) string {
	ip = network.Normalize(ip)
	if r.devIP != "" && (ip == "" || network.IsReserved(ip)) {
		ip = r.devIP
	}
	return r.Lookup(ctx, ip)
}

func (r *Resolver) fetch(ctx context.Context, ip string) string {
	ctx, cancel := timeouts.WithTimeout(ctx, r.timeout, r.logger, "geolocation lookup")
	defer cancel()

	var body apiResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetResult(&body).
		ForceContentType("application/json").
		Get("/json/{ip}")
	if err != nil {
		r.logger.Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return Unknown
	}
	if !resp.IsSuccess() {
		r.logger.Warn("geolocation lookup failed",
			zap.String("ip", ip),
			zap.Int("status_code", resp.StatusCode()))
		return Unknown
	}

	if body.Status != "success" {
		reason := body.Message
		if reason == "" {
			reason = body.Status
		}
		r.logger.Warn("geolocation failed", zap.String("ip", ip), zap.String("reason", reason))
		return Unknown
	}

	return format(body)
}

func format(b apiResponse) string {
	return fmt.Sprintf("%s, %s, %s",
		orDefault(b.City, unknownCity),
		orDefault(b.RegionName, unknownRegion),
		orDefault(b.Country, unknownCountry))
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
