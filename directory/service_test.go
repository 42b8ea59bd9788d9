package directory_test

import (
	"testing"
	"time"

	"campus-relay/auth"
	"campus-relay/directory"
	"campus-relay/errors"
	"campus-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func validRegisterRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:    "ada@example.com",
		Password: "ComplexPass123!",
		Name:     "Ada",
		Role:     "teacher",
		Courses:  []string{"courseA"},
	}
}

func TestAccountService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIAccountRepository(ctrl)
	svc := directory.NewAccountService(mockRepo, 24*time.Hour)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		request := validRegisterRequest()
		expectedAccountID := "acct-uuid"

		// The repository receives a hash, never the plain password
		mockRepo.EXPECT().
			Create(request.Email, gomock.Not(request.Password), request.Name, request.Role, request.Courses).
			Return(expectedAccountID, nil).
			Times(1)

		token, err := svc.Register(request)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := auth.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(expectedAccountID, claims.AccountID)
		req.Equal("teacher", claims.Role)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		request := validRegisterRequest()
		request.Password = "simple"

		// Repository is never reached
		mockRepo.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Times(0)

		token, err := svc.Register(request)

		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when the email is already taken", func(t *testing.T) {
		req := require.New(t)
		request := validRegisterRequest()

		mockRepo.EXPECT().
			Create(request.Email, gomock.Any(), request.Name, request.Role, request.Courses).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(request)

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAccountService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIAccountRepository(ctrl)
	svc := directory.NewAccountService(mockRepo, 24*time.Hour)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		email := "ada@example.com"
		password := "Secret123456!"

		hashedPassword, _ := auth.HashPassword(password)
		stored := directory.Account{
			ID:           "acct-123",
			Email:        email,
			PasswordHash: hashedPassword,
			Name:         "Ada",
			Role:         "teacher",
		}

		mockRepo.EXPECT().
			GetByEmail(email).
			Return(stored, nil).
			Times(1)

		token, err := svc.Login(email, password)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := auth.ValidateToken(string(token))
		req.NoError(err)
		req.Equal(stored.ID, claims.AccountID)
	})

	t.Run("should return invalid credentials on wrong password", func(t *testing.T) {
		req := require.New(t)
		email := "ada@example.com"

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		stored := directory.Account{Email: email, PasswordHash: hashedPassword}

		mockRepo.EXPECT().
			GetByEmail(email).
			Return(stored, nil).
			Times(1)

		_, err := svc.Login(email, "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when account is missing", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetByEmail("unknown@example.com").
			Return(directory.Account{}, errors.ErrInvalidCredentials).
			Times(1)

		_, err := svc.Login("unknown@example.com", "anyPassword")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
