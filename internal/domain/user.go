package domain

import (
	"strings"
	"time"
)

// DefaultCountry is assigned to addresses that do not specify one
const DefaultCountry = "India"

// User is an account identified by its email address
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	FirstName    string    `gorm:"size:150"`
	LastName     string    `gorm:"size:150"`
	IsActive     bool      `gorm:"not null;default:true"`
	DateJoined   time.Time `gorm:"not null;index"`
	LastLogin    *time.Time
	AddressLine1 string `gorm:"size:255"`
	AddressLine2 string `gorm:"size:255"`
	City         string `gorm:"size:100"`
	State        string `gorm:"size:100"`
	Pincode      string `gorm:"size:10"`
	Country      string `gorm:"size:100;default:India"`
}

// TableName sets the table name for GORM
func (User) TableName() string {
	return "users"
}

// FullName returns first and last name, or the email when both are empty
func (u *User) FullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Email
	}
	return full
}

// ShortName returns the first name, or the local part of the email
func (u *User) ShortName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// HasAddress reports whether the user has saved any address details
func (u *User) HasAddress() bool {
	return u.AddressLine1 != "" || u.City != ""
}

// Address is the delivery address attached to a profile
type Address struct {
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	Pincode      *string `json:"pincode"`
	Country      *string `json:"country"`
}

// ProfileUpdate carries the optional fields of a profile update
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Address   *Address
}

// SignupRequest carries the fields needed to register a user
type SignupRequest struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// PasswordChange carries the fields needed to change a password
type PasswordChange struct {
	OldPassword        string
	NewPassword        string
	NewPasswordConfirm string
}

// TokenPair is an issued access/refresh token pair
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenClaims is the validated content of a token
type TokenClaims struct {
	UserID    uint
	TokenID   string
	TokenType string
	ExpiresAt time.Time
}

// Token types carried in issued tokens
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
