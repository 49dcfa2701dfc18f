// internal/app/features/auth/handler.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/strataauth/internal/app/features/errors"
	"github.com/dalemusser/strataauth/internal/app/system/jsonutil"
	"github.com/dalemusser/strataauth/internal/app/system/network"
	"github.com/dalemusser/strataauth/internal/app/system/timeouts"
	"github.com/dalemusser/strataauth/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TimezoneHeader carries the client's IANA zone on login.
const TimezoneHeader = "X-User-Timezone"

const (
	msgServerError   = "Server error"
	msgInvalidBody   = "Invalid request body"
	msgRegisteredOK  = "User registered successfully"
	dateOfBirthShort = "2006-01-02"
)

// Handler serves the register and login endpoints.
type Handler struct {
	svc    *Service
	geo    Locator
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service, geo Locator, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		geo:    geo,
		errLog: errLog,
		logger: logger,
	}
}

// Routes returns a chi.Router with the auth routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	return r
}

// MountRootEndpoints adds /register and /login directly on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

type registerRequest struct {
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Password          string            `json:"password"`
	PhoneNumber       string            `json:"phoneNumber"`
	ProfilePictureURL string            `json:"profilePictureUrl"`
	Bio               string            `json:"bio"`
	Address           string            `json:"address"`
	DateOfBirth       string            `json:"dateOfBirth"`
	Gender            string            `json:"gender"`
	SocialLinks       map[string]string `json:"socialLinks"`
	Preferences       map[string]any    `json:"preferences"`
	TwoFactorEnabled  bool              `json:"twoFactorEnabled"`
	AccountStatus     string            `json:"accountStatus"`
}

type registeredUser struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	UserID               string `json:"user_id"`
	RegistrationLocation string `json:"registrationLocation"`
}

type registerResponse struct {
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    registeredUser `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		jsonutil.BadRequest(w, msgInvalidBody)
		return
	}
	dob, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		jsonutil.BadRequest(w, "dateOfBirth must be a date (YYYY-MM-DD)")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "register")
	defer cancel()

	ip := network.GetClientIP(r)
	in := RegisterInput{
		Name:              req.Name,
		Email:             req.Email,
		Password:          req.Password,
		PhoneNumber:       req.PhoneNumber,
		ProfilePictureURL: req.ProfilePictureURL,
		Bio:               req.Bio,
		Address:           req.Address,
		DateOfBirth:       dob,
		Gender:            req.Gender,
		SocialLinks:       req.SocialLinks,
		Preferences:       req.Preferences,
		TwoFactorEnabled:  req.TwoFactorEnabled,
		AccountStatus:     req.AccountStatus,
		IP:                ip,
		UserAgent:         r.UserAgent(),
	}

	res, err := h.svc.Register(ctx, in, func(ctx context.Context) string {
		return h.geo.LookupForRegistration(ctx, ip)
	})
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			jsonutil.BadRequest(w, ve.Msg)
		case errors.Is(err, ErrDuplicateEmail):
			jsonutil.Conflict(w, ErrDuplicateEmail.Error())
		default:
			h.errLog.Log(r, "register failed", err)
			jsonutil.InternalError(w, msgServerError)
		}
		return
	}

	jsonutil.Created(w, registerResponse{
		Message: msgRegisteredOK,
		Token:   res.Token,
		User: registeredUser{
			Name:                 res.User.Name,
			Email:                res.User.Email,
			UserID:               res.User.ID.Hex(),
			RegistrationLocation: res.User.RegistrationLocation,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loggedInUser struct {
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	UserID       string                 `json:"user_id"`
	LastLogin    *time.Time             `json:"lastLogin"`
	LastLoginIP  string                 `json:"lastLoginIp"`
	RecentLogins []models.LoginLogEntry `json:"recentLogins"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  loggedInUser `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		jsonutil.BadRequest(w, ErrInvalidCredentials.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "login")
	defer cancel()

	res, err := h.svc.Login(ctx, LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        network.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Timezone:  r.Header.Get(TimezoneHeader),
	})
	if errors.Is(err, ErrInvalidCredentials) {
		jsonutil.BadRequest(w, ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		h.errLog.Log(r, "login failed", err)
		jsonutil.InternalError(w, msgServerError)
		return
	}

	jsonutil.OK(w, loginResponse{
		Token: res.Token,
		User: loggedInUser{
			Name:         res.User.Name,
			Email:        res.User.Email,
			UserID:       res.User.ID.Hex(),
			LastLogin:    res.User.LastLogin,
			LastLoginIP:  res.User.LastLoginIP,
			RecentLogins: []models.LoginLogEntry{res.Entry},
		},
	})
}

// parseDateOfBirth accepts an RFC 3339 timestamp or a bare date. Empty is nil.
func parseDateOfBirth(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, dateOfBirthShort} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("unrecognized date")
}
