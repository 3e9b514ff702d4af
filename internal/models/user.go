package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// User is the read-only view of a platform user consumed by the booking core.
// Registration and token issuance live in the identity service; the core only
// needs the guest's contact details and verification flag.
type User struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Phone         string     `json:"phone" db:"phone"`
	Email         NullString `json:"email,omitempty" db:"email"`
	FirstName     NullString `json:"first_name,omitempty" db:"first_name"`
	LastName      NullString `json:"last_name,omitempty" db:"last_name"`
	PhoneVerified bool       `json:"phone_verified" db:"phone_verified"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's display name for gateway customer records
func (u *User) FullName() string {
	name := ""
	if u.FirstName.Valid {
		name = u.FirstName.String
	}
	if u.LastName.Valid {
		if name != "" {
			name += " "
		}
		name += u.LastName.String
	}
	if name == "" {
		name = "Guest"
	}
	return name
}
