package user

import "time"

// Role enumerates the account roles known to the directory.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a directory record. EmailsSent and LastEmailSentDate together form the
// per-user daily send quota; they are mutated only through ChargeDailyQuota.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role

	EmailsSent        int
	LastEmailSentDate string // UTC calendar date, e.g. "2025-09-17"; empty until first send
}

// FullName joins the user's first and last name for display purposes.
func (u User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return ""
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Profile is the safe subset of a user returned to clients.
type Profile struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstname,omitempty"`
	LastName          string `json:"lastname,omitempty"`
	Email             string `json:"email"`
	Role              Role   `json:"role"`
	EmailsSent        int    `json:"emails_sent"`
	LastEmailSentDate string `json:"last_email_sent_date,omitempty"`
}

// Sanitize strips credential material from a user record.
func (u User) Sanitize() Profile {
	return Profile{
		ID:                u.ID,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		Role:              u.Role,
		EmailsSent:        u.EmailsSent,
		LastEmailSentDate: u.LastEmailSentDate,
	}
}

// DateKey formats a point in time as the UTC calendar date used by the quota
// window.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
