package models

import (
	"strings"
	"time"
)

// Collection names in the document store
const (
	UsersCollection         = "users"
	ScreamsCollection       = "screams"
	CommentsCollection      = "comments"
	LikesCollection         = "likes"
	NotificationsCollection = "notifications"
)

// Timestamp renders t the way every createdAt field is persisted.
// Lexicographic order of the result is chronological order.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// User is the profile document stored at users/{handle}
type User struct {
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	ImageURL  string `json:"imageUrl"`
	UserID    string `json:"userId"`
	Bio       string `json:"bio,omitempty"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
}

// ToMap returns the persisted representation of the user
func (u *User) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"handle":    u.Handle,
		"email":     u.Email,
		"createdAt": u.CreatedAt,
		"imageUrl":  u.ImageURL,
		"userId":    u.UserID,
	}
	if u.Bio != "" {
		m["bio"] = u.Bio
	}
	if u.Website != "" {
		m["website"] = u.Website
	}
	if u.Location != "" {
		m["location"] = u.Location
	}
	return m
}

// SignupRequest defines the request body for creating an account
type SignupRequest struct {
	Email           string `json:"email" validate:"notblank,email"`
	Password        string `json:"password" validate:"notblank,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	Handle          string `json:"handle" validate:"notblank,max=64,handle"`
}

// LoginRequest defines the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// UserDetailsRequest carries the profile fields a user may change.
// Anything else in the body is dropped by the binder.
type UserDetailsRequest struct {
	Bio      string `json:"bio"`
	Website  string `json:"website"`
	Location string `json:"location"`
}

// Reduce trims the details and keeps only non-empty values.
// A website without a scheme is assumed to be plain http.
func (r *UserDetailsRequest) Reduce() map[string]interface{} {
	details := make(map[string]interface{})

	if bio := strings.TrimSpace(r.Bio); bio != "" {
		details["bio"] = bio
	}
	if website := strings.TrimSpace(r.Website); website != "" {
		if !strings.HasPrefix(website, "http") {
			website = "http://" + website
		}
		details["website"] = website
	}
	if location := strings.TrimSpace(r.Location); location != "" {
		details["location"] = location
	}
	return details
}

// AuthenticatedUser is the response for GET /user
type AuthenticatedUser struct {
	Credentials   User           `json:"credentials"`
	Likes         []Like         `json:"likes"`
	Notifications []Notification `json:"notifications"`
}

// UserDetail is the response for GET /user/:handle
type UserDetail struct {
	User    User     `json:"user"`
	Screams []Scream `json:"screams"`
}
