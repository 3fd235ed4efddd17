package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/SocialGo/internal/auth"
	"github.com/utafrali/SocialGo/internal/domain"
	"github.com/utafrali/SocialGo/internal/media"
	"github.com/utafrali/SocialGo/internal/repository"
	apperrors "github.com/utafrali/SocialGo/pkg/errors"
)

// UserService implements registration, login, logout and profile media.
type UserService struct {
	users     repository.UserRepository
	sessions  *SessionManager
	passwords auth.PasswordHasher
	media     MediaUploader
	events    UserEvents
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	sessions *SessionManager,
	passwords auth.PasswordHasher,
	uploader MediaUploader,
	events UserEvents,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		media:     uploader,
		events:    events,
		logger:    logger,
	}
}

// FileInput is an uploaded file as received from the client.
type FileInput struct {
	Name string
	Body io.Reader
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *FileInput
	CoverImage *FileInput
}

// LoginInput holds the parameters for user login. Email takes precedence
// over Username when both are set.
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// Register creates a new account. Uniqueness is checked before any file is
// uploaded. The avatar is required; a cover image that was sent but fails to
// upload fails the registration.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := domain.NormalizeEmail(input.Email)
	username := domain.NormalizeUsername(input.Username)

	switch {
	case fullName == "":
		return nil, apperrors.InvalidInput("full name is required")
	case email == "":
		return nil, apperrors.InvalidInput("email is required")
	case username == "":
		return nil, apperrors.InvalidInput("username is required")
	case !domain.ValidUsername(username):
		return nil, apperrors.InvalidInput("username may contain only letters and digits")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.InvalidInput("email must be a valid email address")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Avatar == nil {
		return nil, apperrors.InvalidInput("avatar image is required")
	}

	field, err := s.users.FindConflict(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("check user uniqueness: %w", err)
	}
	switch field {
	case "email":
		return nil, apperrors.AlreadyExists("user", "email", email)
	case "username":
		return nil, apperrors.AlreadyExists("user", "username", username)
	}

	avatarURL, err := s.media.Upload(ctx, input.Avatar.Body, input.Avatar.Name, media.FolderAvatars)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	var coverURL string
	if input.CoverImage != nil {
		coverURL, err = s.media.Upload(ctx, input.CoverImage.Body, input.CoverImage.Name, media.FolderCovers)
		if err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
	}

	hashed, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		FullName:      fullName,
		Email:         email,
		Username:      username,
		PasswordHash:  hashed,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates by email or username and issues a token pair.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if strings.TrimSpace(input.Email) == "" && strings.TrimSpace(input.Username) == "" {
		return nil, nil, apperrors.InvalidInput("username or email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.sessions.Authenticate(ctx, input.Email, input.Username, input.Password)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID.String()))
	return user, tokens, nil
}

// Logout revokes the user's refresh token.
func (s *UserService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		return err
	}

	if err := s.events.PublishUserLoggedOut(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_out event",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID.String()))
	return nil
}

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file FileInput) (*domain.User, error) {
	url, err := s.media.Upload(ctx, file.Body, file.Name, media.FolderAvatars)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	user, err := s.users.UpdateAvatar(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	s.logger.InfoContext(ctx, "avatar updated", slog.String("user_id", userID.String()))
	return user, nil
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file FileInput) (*domain.User, error) {
	url, err := s.media.Upload(ctx, file.Body, file.Name, media.FolderCovers)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}

	user, err := s.users.UpdateCoverImage(ctx, userID, url)
	if err != nil {
		return nil, fmt.Errorf("update cover image: %w", err)
	}

	s.logger.InfoContext(ctx, "cover image updated", slog.String("user_id", userID.String()))
	return user, nil
}
