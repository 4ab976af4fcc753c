package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
)

// JWTClaims represents the session token payload issued by the identity provider.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	TeacherID string   `json:"teacher_id,omitempty"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller may act on any teacher's lessons.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// CanActFor reports whether the caller may act on lessons owned by teacherID.
func (c *JWTClaims) CanActFor(teacherID string) bool {
	if c == nil {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	return c.TeacherID != "" && c.TeacherID == teacherID
}
