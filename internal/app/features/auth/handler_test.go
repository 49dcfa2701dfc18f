package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/strataauth/internal/app/features/errors"
	"github.com/dalemusser/strataauth/internal/app/system/geoip"
	"github.com/dalemusser/strataauth/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, f fixture) http.Handler {
	t.Helper()
	h := NewHandler(f.svc, f.geo, errorsfeature.NewErrorLogger(zaptest.NewLogger(t)), zaptest.NewLogger(t))
	r := chi.NewRouter()
	r.Mount("/api/auth", Routes(h))
	MountRootEndpoints(r, h)
	return r
}

func serve(router http.Handler, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type registerBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		UserID               string `json:"user_id"`
		RegistrationLocation string `json:"registrationLocation"`
	} `json:"user"`
}

type loginBody struct {
	Token string `json:"token"`
	User  struct {
		Name         string     `json:"name"`
		Email        string     `json:"email"`
		UserID       string     `json:"user_id"`
		LastLogin    *time.Time `json:"lastLogin"`
		LastLoginIP  string     `json:"lastLoginIp"`
		RecentLogins []struct {
			Log        string `json:"log"`
			Date       string `json:"date"`
			UserTime   string `json:"user_time"`
			ServerTime string `json:"server_time"`
			IP         string `json:"ip"`
			Location   string `json:"location"`
			UserAgent  string `json:"userAgent"`
		} `json:"recentLogins"`
	} `json:"user"`
}

func TestRegister_Created(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name":        "Ada Lovelace",
		"email":       "ada@example.com",
		"password":    "analytical",
		"dateOfBirth": "1815-12-10",
		"preferences": map[string]any{"theme": "dark"},
	})
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := serve(router, req)

	rec.AssertStatus(t, http.StatusCreated)
	var body registerBody
	rec.DecodeJSON(t, &body)

	if body.Message != "User registered successfully" {
		t.Errorf("message = %q", body.Message)
	}
	if body.Token == "" {
		t.Error("expected token")
	}
	if body.User.Email != "ada@example.com" || body.User.Name != "Ada Lovelace" {
		t.Errorf("user = %+v", body.User)
	}
	if body.User.UserID == "" {
		t.Error("expected user_id")
	}
	if body.User.RegistrationLocation != f.geo.location {
		t.Errorf("registrationLocation = %q", body.User.RegistrationLocation)
	}
	if len(f.geo.regs) != 1 || f.geo.regs[0] != "203.0.113.5" {
		t.Errorf("registration lookups = %v", f.geo.regs)
	}
	rec.AssertContains(t, `"user_id"`)
	if got := rec.Body.String(); containsAny(got, "password", "$2a$") {
		t.Errorf("response leaks password data: %s", got)
	}
}

func TestRegister_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing password", map[string]string{"name": "A", "email": "a@example.com"}, "All fields are required"},
		{"missing name", map[string]string{"email": "a@example.com", "password": "pw"}, "All fields are required"},
		{"blank email", map[string]string{"name": "A", "email": "  ", "password": "pw"}, "All fields are required"},
		{"unknown status", map[string]string{"name": "A", "email": "a@example.com", "password": "pw", "accountStatus": "banned"}, "Account status must be one of"},
		{"non-http picture", map[string]string{"name": "A", "email": "a@example.com", "password": "pw", "profilePictureUrl": "ftp://example.com/a.png"}, "Profile picture URL"},
		{"malformed json", `{"name":`, "Invalid request body"},
		{"empty body", "", "Invalid request body"},
		{"bad date of birth", map[string]string{"name": "A", "email": "a@example.com", "password": "pw", "dateOfBirth": "yesterday"}, "dateOfBirth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			router := newTestRouter(t, f)

			rec := serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/register", tt.body))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, tt.want)
			if len(f.geo.regs) != 0 {
				t.Errorf("no geolocation expected for rejected request, got %v", f.geo.regs)
			}
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t, nil)
	router := newTestRouter(t, f)
	body := map[string]string{"name": "A", "email": "dup@example.com", "password": "pw"}

	serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/register", body)).AssertStatus(t, http.StatusCreated)

	if len(f.geo.regs) != 1 {
		t.Fatalf("registration lookups after first register = %v", f.geo.regs)
	}

	body["email"] = "DUP@example.com"
	req := testutil.NewJSONRequest(t, http.MethodPost, "/register", body)
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := serve(router, req)
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "User already exists")
	if len(f.geo.regs) != 1 {
		t.Errorf("duplicate registration was geolocated: %v", f.geo.regs)
	}
}

func TestRegister_ServerError(t *testing.T) {
	f := newFixture(t, nil)
	f.store.existsErr = errBoom
	router := newTestRouter(t, f)

	rec := serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/register",
		map[string]string{"name": "A", "email": "a@example.com", "password": "pw"}))
	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, `"Server error"`)
	if containsAny(rec.Body.String(), "boom") {
		t.Error("internal error text leaked to client")
	}
}

func TestLogin_OK(t *testing.T) {
	f := newFixture(t, nil)
	f.mustRegister(t, "ada@example.com", "pw")
	router := newTestRouter(t, f)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ada@example.com", "password": "pw"})
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.2")
	req.Header.Set("X-User-Timezone", "Asia/Tokyo")
	req.Header.Set("User-Agent", "strataauth-test/1.0")
	rec := serve(router, req)

	rec.AssertStatus(t, http.StatusOK)
	var body loginBody
	rec.DecodeJSON(t, &body)

	if body.Token == "" {
		t.Fatal("expected token")
	}
	if body.User.LastLoginIP != "203.0.113.5" {
		t.Errorf("lastLoginIp = %q", body.User.LastLoginIP)
	}
	if body.User.LastLogin == nil || !body.User.LastLogin.Equal(fixedNow) {
		t.Errorf("lastLogin = %v, want %v", body.User.LastLogin, fixedNow)
	}
	if len(body.User.RecentLogins) != 1 {
		t.Fatalf("recentLogins has %d entries, want 1", len(body.User.RecentLogins))
	}
	entry := body.User.RecentLogins[0]
	if entry.Log != "log1" {
		t.Errorf("log = %q, want log1", entry.Log)
	}
	if entry.UserTime != "00:01:55 Asia/Tokyo" {
		t.Errorf("user_time = %q", entry.UserTime)
	}
	if entry.ServerTime != "08:01:55 America/Los_Angeles" {
		t.Errorf("server_time = %q", entry.ServerTime)
	}
	if entry.UserAgent != "strataauth-test/1.0" {
		t.Errorf("userAgent = %q", entry.UserAgent)
	}

	// A second login only returns the new entry.
	rec = serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/login",
		map[string]string{"email": "ada@example.com", "password": "pw"}))
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &body)
	if len(body.User.RecentLogins) != 1 || body.User.RecentLogins[0].Log != "log2" {
		t.Errorf("second login recentLogins = %+v", body.User.RecentLogins)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, nil)
	f.mustRegister(t, "ada@example.com", "pw")
	router := newTestRouter(t, f)

	bodies := []any{
		map[string]string{"email": "ada@example.com", "password": "wrong"},
		map[string]string{"email": "ghost@example.com", "password": "pw"},
		map[string]string{},
	}
	var first string
	for i, b := range bodies {
		rec := serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/login", b))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertContains(t, "Invalid credentials")
		if i == 0 {
			first = rec.Body.String()
		} else if rec.Body.String() != first {
			t.Errorf("failure bodies differ: %q vs %q", rec.Body.String(), first)
		}
	}
}

func TestLogin_ServerError(t *testing.T) {
	f := newFixture(t, nil)
	f.mustRegister(t, "ada@example.com", "pw")
	f.store.appendErr = errBoom
	router := newTestRouter(t, f)

	rec := serve(router, testutil.NewJSONRequest(t, http.MethodPost, "/login",
		map[string]string{"email": "ada@example.com", "password": "pw"}))
	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, `"Server error"`)
}

func TestLogin_GeolocationTimeoutStillSucceeds(t *testing.T) {
	var hits atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	resolver := geoip.New(geoip.Config{BaseURL: slow.URL, Timeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	f := newFixture(t, resolver)
	f.mustRegister(t, "ada@example.com", "pw")
	router := newTestRouter(t, f)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/login",
		map[string]string{"email": "ada@example.com", "password": "pw"})
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := serve(router, req)

	rec.AssertStatus(t, http.StatusOK)
	var body loginBody
	rec.DecodeJSON(t, &body)
	if got := body.User.RecentLogins[0].Location; got != geoip.Unknown {
		t.Errorf("location = %q, want %q", got, geoip.Unknown)
	}
	if hits.Load() != 1 {
		t.Errorf("expected one outbound lookup for a public IP, got %d", hits.Load())
	}
}

func TestLogin_GeolocationErrorStillSucceeds(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	resolver := geoip.New(geoip.Config{BaseURL: broken.URL}, zaptest.NewLogger(t))
	f := newFixture(t, resolver)
	f.mustRegister(t, "ada@example.com", "pw")
	router := newTestRouter(t, f)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/login",
		map[string]string{"email": "ada@example.com", "password": "pw"})
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec := serve(router, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"location":"Unknown"`)
}

func TestParseDateOfBirth(t *testing.T) {
	tests := []struct {
		in      string
		wantNil bool
		wantErr bool
	}{
		{"", true, false},
		{"1815-12-10", false, false},
		{"1815-12-10T00:00:00Z", false, false},
		{"10/12/1815", true, true},
	}
	for _, tt := range tests {
		got, err := parseDateOfBirth(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDateOfBirth(%q) err = %v", tt.in, err)
		}
		if (got == nil) != tt.wantNil {
			t.Errorf("parseDateOfBirth(%q) = %v", tt.in, got)
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
