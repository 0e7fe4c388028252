package entity

import (
	"time"
)

const DefaultPhoto = "default.jpg"

// User is the aggregate root for user domain.
// Password holds a bcrypt hash and is only populated when a lookup asks for it;
// it is never serialized.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Role  Role   `json:"role"`

	Password             string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat. Comparison is at second precision, like JWT timestamps.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// PasswordChangeTime is the value stored in PasswordChangedAt for a change made at now.
// It is set one second early so tokens issued right after the change stay valid.
func PasswordChangeTime(now time.Time) time.Time {
	return now.Add(-time.Second)
}
