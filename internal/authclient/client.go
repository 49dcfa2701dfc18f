// Package authclient is a small HTTP client for the register and login
// endpoints. It sends the caller's IANA zone in the X-User-Timezone header
// so login history timestamps are rendered in the user's local time.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/strataauth/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

// TimezoneHeader carries the user's IANA zone on login requests.
const TimezoneHeader = "X-User-Timezone"

// Config holds client settings. Fields can be populated from the
// environment with env.Parse.
type Config struct {
	BaseURL  string        `env:"STRATAAUTH_URL" envDefault:"http://localhost:8080"`
	Timeout  time.Duration `env:"STRATAAUTH_TIMEOUT" envDefault:"15s"`
	Timezone string        `env:"STRATAAUTH_TIMEZONE"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// ErrInvalidCredentials is returned by Login when the server rejects the
// email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserExists is returned by Register for a duplicate email.
var ErrUserExists = errors.New("user already exists")

// Client talks to a strataauth server.
type Client struct {
	http     *resty.Client
	timezone string
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: cli, timezone: cfg.Timezone}
}

// RegisterRequest is the register payload. Only Name, Email and Password
// are required.
type RegisterRequest struct {
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Password          string            `json:"password"`
	PhoneNumber       string            `json:"phoneNumber,omitempty"`
	ProfilePictureURL string            `json:"profilePictureUrl,omitempty"`
	Bio               string            `json:"bio,omitempty"`
	Address           string            `json:"address,omitempty"`
	DateOfBirth       string            `json:"dateOfBirth,omitempty"`
	Gender            string            `json:"gender,omitempty"`
	SocialLinks       map[string]string `json:"socialLinks,omitempty"`
	Preferences       map[string]any    `json:"preferences,omitempty"`
	TwoFactorEnabled  bool              `json:"twoFactorEnabled,omitempty"`
	AccountStatus     string            `json:"accountStatus,omitempty"`
}

// RegisterResponse mirrors the 201 body.
type RegisterResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		UserID               string `json:"user_id"`
		RegistrationLocation string `json:"registrationLocation"`
	} `json:"user"`
}

// LoginResponse mirrors the 200 body.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		Name         string                 `json:"name"`
		Email        string                 `json:"email"`
		UserID       string                 `json:"user_id"`
		LastLogin    time.Time              `json:"lastLogin"`
		LastLoginIP  string                 `json:"lastLoginIp"`
		RecentLogins []models.LoginLogEntry `json:"recentLogins"`
	} `json:"user"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	var out RegisterResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/auth/register")
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("register request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		if resp.StatusCode() == http.StatusConflict {
			return RegisterResponse{}, fmt.Errorf("%w: %w", ErrUserExists, err)
		}
		return RegisterResponse{}, err
	}
	return out, nil
}

// Login authenticates and returns the token and the recorded login entry.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	r := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out)
	if c.timezone != "" {
		r.SetHeader(TimezoneHeader, c.timezone)
	}

	resp, err := r.Post("/api/auth/login")
	if err != nil {
		return LoginResponse{}, fmt.Errorf("login request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		if resp.StatusCode() == http.StatusBadRequest {
			return LoginResponse{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return LoginResponse{}, err
	}
	return out, nil
}

func mapHTTPError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	msg := http.StatusText(resp.StatusCode())
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		msg = body.Error
	} else if raw := strings.TrimSpace(string(resp.Body())); raw != "" {
		msg = raw
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}
