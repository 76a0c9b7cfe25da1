// Package api defines the wire types exchanged with the BYN platform API.
//
// The types mirror the backend's JSON representations: authentication
// payloads under /auth/, paginated resource listings for jobs and feed
// posts, and the standard error envelope. Every struct decodes a
// representative subset of the server's fields; unknown fields are
// ignored so the client stays compatible as the API grows.
package api

import (
	"fmt"
	"strings"
)

// Credentials is an access/refresh token pair issued by the backend.
// The two values travel together: a refresh exchange replaces both.
type Credentials struct {
	// Access is the short-lived bearer token attached to API requests.
	Access string `json:"access"`
	// Refresh is the long-lived token exchanged for new pairs.
	Refresh string `json:"refresh"`
}

// Valid reports whether both tokens are present.
func (c Credentials) Valid() bool {
	return c.Access != "" && c.Refresh != ""
}

// LoginRequest is the body of POST /auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest struct {
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// ChangePasswordRequest is the body of POST /auth/change-password/.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// TokenResponse is returned by login, register and token refresh.
// Login and register additionally embed the authenticated user;
// the refresh endpoint returns only the rotated pair.
type TokenResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *UserProfile `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Credentials extracts the token pair from the response.
func (r TokenResponse) Credentials() Credentials {
	return Credentials{Access: r.Access, Refresh: r.Refresh}
}

// LogoutRequest is the body of POST /auth/logout/. The refresh token is
// sent so the server can blacklist it.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// UserProfile is the authenticated user's profile as returned by
// GET /auth/profile/ and embedded in login responses.
type UserProfile struct {
	ID              int    `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FullName        string `json:"full_name"`
	Headline        string `json:"headline"`
	Summary         string `json:"summary"`
	Location        string `json:"location"`
	CurrentPosition string `json:"current_position"`
	Industry        string `json:"industry"`
	ExperienceLevel string `json:"experience_level"`
	IsVerified      bool   `json:"is_verified"`
	IsCompanyUser   bool   `json:"is_company_user"`
	DateJoined      string `json:"date_joined"`
}

// DisplayName returns the best human-readable name for the user.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// Clone returns a copy of the profile. A nil receiver yields nil.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// UserBasic is the lightweight user representation embedded in posts
// and job listings.
type UserBasic struct {
	ID              int    `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	FullName        string `json:"full_name"`
	Headline        string `json:"headline"`
	CurrentPosition string `json:"current_position"`
}

// CompanyBasic is the company reference embedded in job listings.
type CompanyBasic struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	CompanySize  string `json:"company_size"`
	Headquarters string `json:"headquarters"`
	IsVerified   bool   `json:"is_verified"`
}

// Job is a single job listing. Salary bounds arrive as decimal strings
// and are null when the poster did not disclose them.
type Job struct {
	ID                  int           `json:"id"`
	Title               string        `json:"title"`
	Company             *CompanyBasic `json:"company"`
	Location            string        `json:"location"`
	WorkplaceType       string        `json:"workplace_type"`
	JobType             string        `json:"job_type"`
	ExperienceLevel     string        `json:"experience_level"`
	SalaryMin           *string       `json:"salary_min"`
	SalaryMax           *string       `json:"salary_max"`
	SalaryCurrency      string        `json:"salary_currency"`
	SalaryType          string        `json:"salary_type"`
	IsFeatured          bool          `json:"is_featured"`
	ViewCount           int           `json:"view_count"`
	ApplicationCount    int           `json:"application_count"`
	CreatedAt           string        `json:"created_at"`
	IsSaved             bool          `json:"is_saved"`
	HasApplied          bool          `json:"has_applied"`
	ApplicationDeadline *string       `json:"application_deadline"`
}

// CompanyName returns the company name or a placeholder when the
// listing carries no company reference.
func (j Job) CompanyName() string {
	if j.Company == nil {
		return "-"
	}
	return j.Company.Name
}

// SalaryRange renders the salary bounds the way the platform does, or
// an empty string when undisclosed.
func (j Job) SalaryRange() string {
	switch {
	case j.SalaryMin != nil && j.SalaryMax != nil:
		return fmt.Sprintf("%s %s - %s %s", j.SalaryCurrency, *j.SalaryMin, *j.SalaryMax, j.SalaryType)
	case j.SalaryMin != nil:
		return fmt.Sprintf("%s %s+ %s", j.SalaryCurrency, *j.SalaryMin, j.SalaryType)
	default:
		return ""
	}
}

// ApplyRequest is the body of POST /jobs/jobs/<id>/apply/.
type ApplyRequest struct {
	CoverLetter string `json:"cover_letter,omitempty"`
}

// Post is a single feed post.
type Post struct {
	ID            int        `json:"id"`
	Author        *UserBasic `json:"author"`
	Content       string     `json:"content"`
	PostType      string     `json:"post_type"`
	Visibility    string     `json:"visibility"`
	LikesCount    int        `json:"likes_count"`
	CommentsCount int        `json:"comments_count"`
	SharesCount   int        `json:"shares_count"`
	CreatedAt     string     `json:"created_at"`
	UserHasLiked  bool       `json:"user_has_liked"`
}

// AuthorName returns the post author's name, or a placeholder for
// posts whose author has been removed.
func (p Post) AuthorName() string {
	if p.Author == nil {
		return "-"
	}
	if p.Author.FullName != "" {
		return p.Author.FullName
	}
	return strings.TrimSpace(p.Author.FirstName + " " + p.Author.LastName)
}

// Page is the pagination envelope the backend wraps every listing in.
// Next and Previous are absolute URLs for the adjacent pages, null at
// either end of the result set.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool { return p.Next != nil }

// Message is the minimal `{"message": ...}` body returned by
// fire-and-forget style endpoints such as logout.
type Message struct {
	Message string `json:"message"`
}
