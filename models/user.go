package models

import "time"

// Roles used across both portals.
const (
	RoleImporter = "importer"
	RoleSupplier = "supplier"
	RoleFacility = "facility"
	RoleDoctor   = "doctor"
	RolePatient  = "patient"
	RoleAdmin    = "admin"
)

// ProfileState is the explicit session/profile progression. A user moves
// unauthenticated -> profile-incomplete -> complete; guards read this instead
// of inferring it from redirect side effects.
type ProfileState string

const (
	ProfileIncomplete ProfileState = "profile_incomplete"
	ProfileComplete   ProfileState = "profile_complete"
)

type User struct {
	UserID        string    `json:"userid" bson:"userid"`
	Username      string    `json:"username" bson:"username"`
	Email         string    `json:"email" bson:"email"`
	Password      string    `json:"-" bson:"password"`
	Role          []string  `json:"role" bson:"role"`
	Name          string    `json:"name,omitempty" bson:"name,omitempty"`
	FirstName     string    `json:"firstName,omitempty" bson:"first_name,omitempty"`
	LastName      string    `json:"lastName,omitempty" bson:"last_name,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	Address       string    `json:"address,omitempty" bson:"address,omitempty"`
	// Organization is the facility/company a marketplace account acts for.
	Organization  string    `json:"organization,omitempty" bson:"organization,omitempty"`
	LicenseNumber string    `json:"license_number,omitempty" bson:"license_number,omitempty"`
	Avatar        string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	EmailVerified bool      `json:"email_verified" bson:"email_verified"`
	IsVerified    bool      `json:"is_verified" bson:"is_verified"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
	LastLogin     time.Time `json:"last_login" bson:"last_login"`
	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
}

// ProfileState derives the session stage from the stored record.
func (u *User) ProfileState() ProfileState {
	if len(u.Role) == 0 || u.FirstName == "" || u.PhoneNumber == "" {
		return ProfileIncomplete
	}
	// Clinical and commercial roles additionally need their credentials on file.
	for _, r := range u.Role {
		switch r {
		case RoleDoctor, RoleSupplier, RoleImporter:
			if u.LicenseNumber == "" {
				return ProfileIncomplete
			}
		case RoleFacility:
			if u.Organization == "" {
				return ProfileIncomplete
			}
		}
	}
	return ProfileComplete
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Role {
		if r == role {
			return true
		}
	}
	return false
}
