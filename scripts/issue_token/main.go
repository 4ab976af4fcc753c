// Command issue_token signs a session token with the configured JWT secret for local testing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
)

type issued struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	TeacherID string    `json:"teacher_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	if err := run(os.Args[1:], tokens, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, tokens *service.TokenService, out io.Writer) error {
	var (
		userID    string
		role      string
		teacherID string
		email     string
		ttl       time.Duration
	)

	fs := flag.NewFlagSet("issue_token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&userID, "user", "", "Subject user id")
	fs.StringVar(&role, "role", string(models.RoleTeacher), "ADMIN or TEACHER")
	fs.StringVar(&teacherID, "teacher", "", "Teacher record id (required for TEACHER)")
	fs.StringVar(&email, "email", "", "Caller email")
	fs.DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	claims := models.JWTClaims{
		UserID:    strings.TrimSpace(userID),
		Role:      models.UserRole(strings.ToUpper(strings.TrimSpace(role))),
		TeacherID: strings.TrimSpace(teacherID),
		Email:     strings.TrimSpace(email),
	}
	if claims.UserID == "" {
		return fmt.Errorf("-user is required")
	}
	switch claims.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if claims.TeacherID == "" {
			return fmt.Errorf("-teacher is required for TEACHER tokens")
		}
	default:
		return fmt.Errorf("unsupported role %q", role)
	}
	if ttl <= 0 {
		return fmt.Errorf("-ttl must be positive")
	}

	token, expiresAt, err := tokens.IssueToken(claims, ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issued{Token: token, Role: string(claims.Role), TeacherID: claims.TeacherID, ExpiresAt: expiresAt}); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}
