// internal/app/features/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	userstore "github.com/dalemusser/strataauth/internal/app/store/users"
	"github.com/dalemusser/strataauth/internal/app/system/authutil"
	"github.com/dalemusser/strataauth/internal/app/system/htmlsanitize"
	"github.com/dalemusser/strataauth/internal/app/system/inputval"
	"github.com/dalemusser/strataauth/internal/app/system/loginhistory"
	"github.com/dalemusser/strataauth/internal/app/system/network"
	"github.com/dalemusser/strataauth/internal/app/system/normalize"
	"github.com/dalemusser/strataauth/internal/app/system/timezones"
	"github.com/dalemusser/strataauth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail means an account with the email already exists.
	ErrDuplicateEmail = errors.New("User already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("Invalid credentials")
)

// ValidationError carries a client-facing message for a rejected request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UserStore is the persistence the service needs. *userstore.Store implements it.
type UserStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	AppendLogin(ctx context.Context, id primitive.ObjectID, at time.Time, in loginhistory.Input) (models.LoginLogEntry, error)
}

// Locator resolves an IP to a display location. *geoip.Resolver implements it.
type Locator interface {
	Lookup(ctx context.Context, ip string) string
	LookupForRegistration(ctx context.Context, ip string) string
}

// Auditor receives auth events. *auditlog.Logger implements it.
type Auditor interface {
	Registered(ctx context.Context, userID primitive.ObjectID, email, ip, userAgent string)
	RegisterDuplicate(ctx context.Context, email, ip, userAgent string)
	LoginSuccess(ctx context.Context, userID primitive.ObjectID, ip, userAgent, label, location string)
	LoginFailedUserNotFound(ctx context.Context, email, ip, userAgent string)
	LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, ip, userAgent string)
}

// Service implements registration and login.
type Service struct {
	users      UserStore
	geo        Locator
	hasher     *authutil.Hasher
	tokens     *authutil.TokenIssuer
	audit      Auditor
	serverZone string
	now        func() time.Time
	logger     *zap.Logger
}

// NewService wires a Service. serverZone is the IANA zone used for server
// times and as the fallback user zone. audit may be nil.
func NewService(users UserStore, geo Locator, hasher *authutil.Hasher, tokens *authutil.TokenIssuer, audit Auditor, serverZone string, logger *zap.Logger) *Service {
	if audit == nil {
		audit = nopAuditor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if serverZone == "" {
		serverZone = "UTC"
	}
	return &Service{
		users:      users,
		geo:        geo,
		hasher:     hasher,
		tokens:     tokens,
		audit:      audit,
		serverZone: serverZone,
		now:        time.Now,
		logger:     logger,
	}
}

// RegisterInput is the registration request. Only Name, Email and Password
// are required; the rest is passive profile data.
type RegisterInput struct {
	Name     string `validate:"required" label:"Name"`
	Email    string `validate:"required" label:"Email"`
	Password string `validate:"required,max=72" label:"Password"`

	PhoneNumber       string
	ProfilePictureURL string `validate:"omitempty,httpurl" label:"Profile picture URL"`
	Bio               string
	Address           string
	DateOfBirth       *time.Time
	Gender            string
	SocialLinks       map[string]string
	Preferences       map[string]any
	TwoFactorEnabled  bool
	AccountStatus     string `validate:"omitempty,oneof=active suspended deactivated" label:"Account status"`

	IP        string
	UserAgent string
}

// RegisterResult is a created account plus its session token.
type RegisterResult struct {
	Token string
	User  models.User
}

// msgFieldsRequired is returned for any missing required field.
const msgFieldsRequired = "All fields are required"

// validateRegister normalizes the identity fields of in and checks it
// against its validate tags.
func validateRegister(in RegisterInput) (RegisterInput, error) {
	in.Name = normalize.Name(in.Name)
	in.Email = normalize.Email(in.Email)
	in.AccountStatus = normalize.Status(in.AccountStatus)

	res := inputval.Validate(in)
	if res.HasErrors() {
		if res.FirstRule() == "required" {
			return in, invalid(msgFieldsRequired)
		}
		return in, invalid("%s", res.First())
	}
	// max counts characters; bcrypt's limit is in bytes.
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return in, invalid("%s", err.Error())
	}
	if in.AccountStatus == "" {
		in.AccountStatus = models.AccountActive
	}
	return in, nil
}

// LocationFunc resolves the registration location supplied by the caller.
type LocationFunc func(ctx context.Context) string

// FixedLocation returns a LocationFunc for an already resolved location.
func FixedLocation(loc string) LocationFunc {
	return func(context.Context) string { return loc }
}

// Register creates an account. locate is called at most once, after the
// input is valid and the email is known to be free; nil or an empty result
// records Unknown.
func (s *Service) Register(ctx context.Context, in RegisterInput, locate LocationFunc) (RegisterResult, error) {
	in, err := validateRegister(in)
	if err != nil {
		return RegisterResult{}, err
	}
	name, email, status := in.Name, in.Email, in.AccountStatus

	ip := network.Normalize(in.IP)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.audit.RegisterDuplicate(ctx, email, ip, in.UserAgent)
		return RegisterResult{}, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	var location string
	if locate != nil {
		location = locate(ctx)
	}
	if location == "" {
		location = "Unknown"
	}
	u, err := s.users.Create(ctx, models.User{
		Name:                 name,
		Email:                email,
		PasswordHash:         hash,
		AccountStatus:        status,
		TwoFactorEnabled:     in.TwoFactorEnabled,
		PhoneNumber:          strings.TrimSpace(in.PhoneNumber),
		ProfilePictureURL:    htmlsanitize.URL(in.ProfilePictureURL),
		Bio:                  htmlsanitize.Text(in.Bio),
		Address:              htmlsanitize.Text(in.Address),
		DateOfBirth:          in.DateOfBirth,
		Gender:               htmlsanitize.Text(in.Gender),
		SocialLinks:          htmlsanitize.Map(in.SocialLinks),
		Preferences:          in.Preferences,
		RegistrationLocation: location,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		// Lost the race with a concurrent registration.
		s.audit.RegisterDuplicate(ctx, email, ip, in.UserAgent)
		return RegisterResult{}, ErrDuplicateEmail
	}
	if err != nil {
		return RegisterResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return RegisterResult{}, err
	}

	s.audit.Registered(ctx, u.ID, u.Email, ip, in.UserAgent)
	return RegisterResult{Token: token, User: u}, nil
}

// LoginInput is a login attempt with its request context.
type LoginInput struct {
	Email     string
	Password  string
	IP        string // raw client address; normalized here
	UserAgent string
	Timezone  string // optional IANA zone from the client
}

// LoginResult is a verified login.
type LoginResult struct {
	Token string
	User  models.User
	Entry models.LoginLogEntry
}

// Login verifies credentials, then records the login. Enrichment problems
// (geolocation, timezone) never change the outcome.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	ip := network.Normalize(in.IP)

	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.hasher.CheckDummy(in.Password)
		s.audit.LoginFailedUserNotFound(ctx, normalize.Email(in.Email), ip, in.UserAgent)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Check(in.Password, u.PasswordHash) {
		s.audit.LoginFailedWrongPassword(ctx, u.ID, ip, in.UserAgent)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.Hex())
	if err != nil {
		return LoginResult{}, err
	}

	now := s.now().UTC()
	location := s.geo.Lookup(ctx, ip)

	stamp, err := timezones.Format(now, normalize.Zone(in.Timezone), s.serverZone)
	if err != nil {
		s.logger.Warn("invalid client timezone, using server zone",
			zap.String("timezone", in.Timezone),
			zap.String("server_zone", s.serverZone))
	}

	entry, err := s.users.AppendLogin(ctx, u.ID, now, loginhistory.Input{
		IP:        ip,
		Location:  location,
		UserAgent: in.UserAgent,
		Stamp:     stamp,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("record login: %w", err)
	}

	u.LastLogin = &now
	u.LastLoginIP = ip
	u.LoginHistory = append(u.LoginHistory, entry)

	s.audit.LoginSuccess(ctx, u.ID, ip, in.UserAgent, entry.Log, location)
	return LoginResult{Token: token, User: *u, Entry: entry}, nil
}

type nopAuditor struct{}

func (nopAuditor) Registered(context.Context, primitive.ObjectID, string, string, string) {}

func (nopAuditor) RegisterDuplicate(context.Context, string, string, string) {}

func (nopAuditor) LoginSuccess(context.Context, primitive.ObjectID, string, string, string, string) {}

func (nopAuditor) LoginFailedUserNotFound(context.Context, string, string, string) {}

func (nopAuditor) LoginFailedWrongPassword(context.Context, primitive.ObjectID, string, string) {}
