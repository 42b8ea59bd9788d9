package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "AVeryS0lidPassw0rd!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("acct-123", "Ada", "teacher", time.Hour)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("acct-123", claims.AccountID)
	req.Equal("Ada", claims.Name)
	req.Equal("teacher", claims.Role)
	req.Equal("campus-relay", claims.Issuer)
}

func TestValidateToken_Rejects_Garbage(t *testing.T) {
	req := require.New(t)

	_, err := ValidateToken("not-a-jwt")

	req.Error(err)
}

func TestValidateToken_Rejects_Expired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("acct-123", "Ada", "teacher", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	valid := RegisterRequest{
		Email:    "test@example.com",
		Password: "ComplexPass123!",
		Name:     "Test User",
		Role:     "student",
		Courses:  []string{"courseA"},
	}

	tests := []struct {
		name    string
		mutate  func(r *RegisterRequest)
		wantErr bool
	}{
		{"Valid request", func(r *RegisterRequest) {}, false},
		{"Invalid email", func(r *RegisterRequest) { r.Email = "notanemail" }, true},
		{"Password too short", func(r *RegisterRequest) { r.Password = "Short1!" }, true},
		{"Missing digit", func(r *RegisterRequest) { r.Password = "NoDigitPassword!" }, true},
		{"Missing special char", func(r *RegisterRequest) { r.Password = "NoSpecialChar123" }, true},
		{"Missing uppercase", func(r *RegisterRequest) { r.Password = "nouppercase12345!" }, true},
		{"Password too long", func(r *RegisterRequest) { r.Password = strings.Repeat("a", 73) }, true},
		{"Unknown role", func(r *RegisterRequest) { r.Role = "janitor" }, true},
		{"Missing name", func(r *RegisterRequest) { r.Name = "" }, true},
		{"Empty course entry", func(r *RegisterRequest) { r.Courses = []string{""} }, true},
		{"No courses at all", func(r *RegisterRequest) { r.Courses = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := valid
			tt.mutate(&request)
			err := ValidateRegister(request)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
