package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
)

func testTokens() *service.TokenService {
	return service.NewTokenService(service.TokenConfig{Secret: "test-secret", Issuer: "lesson-scheduler"})
}

func TestRunIssuesVerifiableTeacherToken(t *testing.T) {
	tokens := testTokens()
	var out bytes.Buffer

	err := run([]string{"-user", " u1 ", "-role", "teacher", "-teacher", "recT1", "-email", "clara@example.com", "-ttl", "1h"}, tokens, &out)
	require.NoError(t, err)

	var result issued
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "TEACHER", result.Role)
	assert.Equal(t, "recT1", result.TeacherID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	claims, err := tokens.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "recT1", claims.TeacherID)
	assert.Equal(t, "clara@example.com", claims.Email)
}

func TestRunIssuesAdminTokenWithoutTeacher(t *testing.T) {
	tokens := testTokens()
	var out bytes.Buffer

	require.NoError(t, run([]string{"-user", "admin", "-role", "ADMIN"}, tokens, &out))

	var result issued
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Empty(t, result.TeacherID)
	claims, err := tokens.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	_, err = testTokens().ValidateToken(result.Token + "x")
	assert.Error(t, err)
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	cases := map[string][]string{
		"missing user":    {"-role", "ADMIN"},
		"missing teacher": {"-user", "u1"},
		"unknown role":    {"-user", "u1", "-role", "guardian"},
		"zero ttl":        {"-user", "u1", "-role", "ADMIN", "-ttl", "0s"},
		"bad ttl":         {"-user", "u1", "-ttl", "soon"},
		"unknown flag":    {"-user", "u1", "-scope", "all"},
	}
	for name, args := range cases {
		var out bytes.Buffer
		err := run(args, testTokens(), &out)
		assert.Error(t, err, name)
		assert.Zero(t, out.Len(), name)
	}
}
