package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	userstore "github.com/dalemusser/strataauth/internal/app/store/users"
	"github.com/dalemusser/strataauth/internal/app/system/authutil"
	"github.com/dalemusser/strataauth/internal/app/system/loginhistory"
	"github.com/dalemusser/strataauth/internal/app/system/normalize"
	"github.com/dalemusser/strataauth/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory UserStore.
type memStore struct {
	mu      sync.Mutex
	byEmail map[string]*models.User

	// Test hooks.
	existsErr error
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{byEmail: map[string]*models.User{}}
}

func (m *memStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[normalize.Email(email)]
	return ok, nil
}

func (m *memStore) Create(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = normalize.Email(u.Email)
	if _, ok := m.byEmail[u.Email]; ok {
		return models.User{}, userstore.ErrDuplicateEmail
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	stored := u
	m.byEmail[u.Email] = &stored
	return u, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[normalize.Email(email)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *u
	cp.LoginHistory = append([]models.LoginLogEntry(nil), u.LoginHistory...)
	return &cp, nil
}

func (m *memStore) AppendLogin(_ context.Context, id primitive.ObjectID, at time.Time, in loginhistory.Input) (models.LoginLogEntry, error) {
	if m.appendErr != nil {
		return models.LoginLogEntry{}, m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID != id {
			continue
		}
		entry := loginhistory.NewEntry(len(u.LoginHistory), in)
		u.LoginHistory = append(u.LoginHistory, entry)
		u.LastLogin = &at
		u.LastLoginIP = in.IP
		return entry, nil
	}
	return models.LoginLogEntry{}, mongo.ErrNoDocuments
}

func (m *memStore) history(email string) []models.LoginLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LoginLogEntry(nil), m.byEmail[normalize.Email(email)].LoginHistory...)
}

// stubGeo is a Locator that records the IPs it was asked about.
type stubGeo struct {
	mu       sync.Mutex
	location string
	lookups  []string
	regs     []string
}

func (g *stubGeo) Lookup(_ context.Context, ip string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups = append(g.lookups, ip)
	return g.location
}

func (g *stubGeo) LookupForRegistration(_ context.Context, ip string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.regs = append(g.regs, ip)
	return g.location
}

// locateFor is the LocationFunc a handler would pass for ip.
func (g *stubGeo) locateFor(ip string) LocationFunc {
	return func(ctx context.Context) string { return g.LookupForRegistration(ctx, ip) }
}

// recAuditor records event names.
type recAuditor struct {
	mu     sync.Mutex
	events []string
}

func (a *recAuditor) add(e string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recAuditor) Registered(context.Context, primitive.ObjectID, string, string, string) {
	a.add("registered")
}

func (a *recAuditor) RegisterDuplicate(context.Context, string, string, string) {
	a.add("register_duplicate")
}

func (a *recAuditor) LoginSuccess(context.Context, primitive.ObjectID, string, string, string, string) {
	a.add("login_success")
}

func (a *recAuditor) LoginFailedUserNotFound(context.Context, string, string, string) {
	a.add("login_user_not_found")
}

func (a *recAuditor) LoginFailedWrongPassword(context.Context, primitive.ObjectID, string, string) {
	a.add("login_wrong_password")
}

const testSecret = "test-secret"

var fixedNow = time.Date(2025, 6, 11, 15, 1, 55, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memStore
	geo    *stubGeo
	audit  *recAuditor
}

func newFixture(t *testing.T, loc Locator) fixture {
	t.Helper()
	tokens, err := authutil.NewTokenIssuer(testSecret, "strataauth", 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	f := fixture{
		store:  newMemStore(),
		geo:    &stubGeo{location: "Mountain View, California, United States"},
		audit:  &recAuditor{},
	}
	if loc == nil {
		loc = f.geo
	}
	f.svc = NewService(f.store, loc, authutil.NewHasher(bcrypt.MinCost), tokens, f.audit, "America/Los_Angeles", zaptest.NewLogger(t))
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f fixture) mustRegister(t *testing.T, email, password string) models.User {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{
		Name:     "Ada Lovelace",
		Email:    email,
		Password: password,
	}, FixedLocation("Somewhere"))
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res.User
}

var errBoom = errors.New("boom")

// parseToken verifies a token issued by the fixture's TokenIssuer.
func parseToken(t *testing.T, token string) *jwt.RegisteredClaims {
	t.Helper()
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("strataauth"))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	return claims
}
