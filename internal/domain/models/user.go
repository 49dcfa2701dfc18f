// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: The address users type to log in (stored trimmed and lowercase)

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account that can register and log in.
//
// Auth fields:
//   - Email: unique, trimmed and lowercased before storage
//   - PasswordHash: bcrypt hash, never the plaintext and never in JSON
//
// The profile fields are passive data. Nothing in the auth flow reads them.
type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"user_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`

	PasswordHash string `bson:"password_hash" json:"-"`

	AccountStatus    string `bson:"account_status" json:"accountStatus"` // active, suspended, deactivated
	TwoFactorEnabled bool   `bson:"two_factor_enabled" json:"twoFactorEnabled"`

	// Profile (opaque)
	PhoneNumber       string            `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	ProfilePictureURL string            `bson:"profile_picture_url,omitempty" json:"profilePictureUrl,omitempty"`
	Bio               string            `bson:"bio,omitempty" json:"bio,omitempty"`
	Address           string            `bson:"address,omitempty" json:"address,omitempty"`
	DateOfBirth       *time.Time        `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	Gender            string            `bson:"gender,omitempty" json:"gender,omitempty"`
	SocialLinks       map[string]string `bson:"social_links,omitempty" json:"socialLinks,omitempty"`
	Preferences       map[string]any    `bson:"preferences,omitempty" json:"preferences,omitempty"`

	// Set once at creation.
	RegistrationLocation string `bson:"registration_location" json:"registrationLocation"`

	LastLogin   *time.Time `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	LastLoginIP string     `bson:"last_login_ip,omitempty" json:"lastLoginIp,omitempty"`

	// LoginHistory is decoded separately by the user store because older
	// documents may hold it as an embedded document instead of an array.
	LoginHistory []LoginLogEntry `bson:"-" json:"loginHistory,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Account status values.
const (
	AccountActive      = "active"
	AccountSuspended   = "suspended"
	AccountDeactivated = "deactivated"
)

// AllAccountStatuses returns all valid account status values.
func AllAccountStatuses() []string {
	return []string{
		AccountActive,
		AccountSuspended,
		AccountDeactivated,
	}
}

// IsValidAccountStatus checks if an account status is valid.
func IsValidAccountStatus(s string) bool {
	for _, v := range AllAccountStatuses() {
		if v == s {
			return true
		}
	}
	return false
}
