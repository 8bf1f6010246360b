package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent can take worksheets and read the library.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher can also save, upload and delete library worksheets.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin has teacher rights and manages accounts.
	UserRoleAdmin UserRole = "admin"
)

// CanManageLibrary reports whether the role may write to the worksheet library.
func (r UserRole) CanManageLibrary() bool {
	return r == UserRoleTeacher || r == UserRoleAdmin
}

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Grade        string // students only; empty for staff
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath         string        // URL prefix for sub-path deployments (e.g. "/toan")
	SecureCookies    bool          // Set Secure flag on cookies (disable for local dev)
	Grades           []string      // grade folders shown in the library, e.g. 6..9
	MaxUploadBytes   int64         // limit for uploaded worksheets and attachments
	GenerateTimeout  time.Duration // wall-clock budget for one AI generation
	ChatTimeout      time.Duration
	CORSAllowOrigins []string
}
