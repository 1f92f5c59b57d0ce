package service

import (
	"context"
	"errors"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/internal/mq"
	"github.com/aviralsaxena16/Campus-Companion/pkg/util"
)

// AuthUserStore is the persistence surface for account management.
type AuthUserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	SaveGoogleTokens(ctx context.Context, userID int, accessToken, refreshToken string) error
}

type AuthService struct {
	userRepo  AuthUserStore
	jwtSecret string
	publisher Publisher
}

func NewAuthService(userRepo AuthUserStore, jwtSecret string, publisher Publisher) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		publisher: publisher,
	}
}

// Register creates a new user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already exists")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("user.registered", mq.UserRegisteredPayload{
			UserID: u.ID,
			Email:  u.Email,
		})
	}

	return u, nil
}

// Login checks user credentials and returns a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", errors.New("invalid email or password")
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", errors.New("invalid email or password")
	}

	return util.GenerateJWT(u.ID, s.jwtSecret)
}

// ConnectGoogle stores the user's Google credential handles for the
// mail fetcher. The pipeline treats them as opaque.
func (s *AuthService) ConnectGoogle(ctx context.Context, userID int, accessToken, refreshToken string) error {
	return s.userRepo.SaveGoogleTokens(ctx, userID, accessToken, refreshToken)
}
