// Package timezones resolves IANA zone identifiers and formats login
// timestamps for a user zone and the server's own zone.
package timezones

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo

	"github.com/dalemusser/strataauth/internal/app/system/normalize"
)

// Layouts used in login history entries.
const (
	DateLayout = "January 2, 2006"
	TimeLayout = "15:04:05"
)

// ErrInvalidTimezone is returned when a zone identifier cannot be loaded.
var ErrInvalidTimezone = errors.New("invalid timezone")

var locations sync.Map // id -> *time.Location

// Load returns the location for an IANA identifier, caching successful loads.
// The empty string and "Local" are rejected because they don't name a zone.
func Load(id string) (*time.Location, error) {
	if id == "" || id == "Local" {
		return nil, ErrInvalidTimezone
	}
	if loc, ok := locations.Load(id); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	locations.Store(id, loc)
	return loc, nil
}

// Valid reports whether id names a loadable IANA zone.
func Valid(id string) bool {
	_, err := Load(id)
	return err == nil
}

// Stamp is the formatted view of one instant.
type Stamp struct {
	Date       string // long date in the user's zone, e.g. "June 11, 2025"
	UserTime   string // "15:04:05 <user zone>"
	ServerTime string // "15:04:05 <server zone>"
	UserZone   string // zone actually used for the user fields
}

// Format renders now in userZone and serverZone.
//
// An empty userZone means serverZone. If userZone cannot be loaded, Format
// still returns a Stamp computed with serverZone for the user fields, along
// with ErrInvalidTimezone so the caller can note the fallback. serverZone is
// expected to be valid (see ResolveServerZone); if it is not, UTC is used.
func Format(now time.Time, userZone, serverZone string) (Stamp, error) {
	serverLoc, err := Load(serverZone)
	if err != nil {
		serverZone = "UTC"
		serverLoc = time.UTC
	}

	var fmtErr error
	userLoc := serverLoc
	if userZone == "" {
		userZone = serverZone
	} else if loc, err := Load(userZone); err == nil {
		userLoc = loc
	} else {
		fmtErr = err
		userZone = serverZone
	}

	userNow := now.In(userLoc)
	serverNow := now.In(serverLoc)

	return Stamp{
		Date:       userNow.Format(DateLayout),
		UserTime:   userNow.Format(TimeLayout) + " " + userZone,
		ServerTime: serverNow.Format(TimeLayout) + " " + serverZone,
		UserZone:   userZone,
	}, fmtErr
}

// host abstracts the environment lookups ResolveServerZone performs.
type host struct {
	getenv   func(string) string
	readFile func(string) ([]byte, error)
	readlink func(string) (string, error)
}

var osHost = host{
	getenv:   os.Getenv,
	readFile: os.ReadFile,
	readlink: os.Readlink,
}

// ResolveServerZone determines the host's IANA zone identifier.
// Call it once at startup and pass the result around; it checks TZ,
// /etc/timezone and the /etc/localtime symlink, then falls back to UTC.
func ResolveServerZone() string {
	return resolveServerZone(osHost)
}

func resolveServerZone(h host) string {
	if tz := normalize.Zone(h.getenv("TZ")); tz != "" && Valid(tz) {
		return tz
	}

	if data, err := h.readFile("/etc/timezone"); err == nil {
		if tz := strings.TrimSpace(string(data)); Valid(tz) {
			return tz
		}
	}

	if target, err := h.readlink("/etc/localtime"); err == nil {
		target = filepath.ToSlash(target)
		if idx := strings.Index(target, "zoneinfo/"); idx != -1 {
			if tz := target[idx+len("zoneinfo/"):]; Valid(tz) {
				return tz
			}
		}
	}

	return "UTC"
}
