package usecase

import (
	"errors"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"
	"mailboard-backend/internal/auth/repository"
	"mailboard-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthUsecase validates API credentials and manages push-device registrations
type AuthUsecase interface {
	ValidateToken(tokenString string) (*authdomain.User, error)
	IssueAccessToken(user *authdomain.User) (string, error)
	RegisterFCMToken(userID, token, deviceInfo string) error
	UnregisterFCMToken(userID, token string) error
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo     repository.UserRepository
	fcmTokenRepo repository.FCMTokenRepository
	config       *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, fcmTokenRepo repository.FCMTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo:     userRepo,
		fcmTokenRepo: fcmTokenRepo,
		config:       cfg,
	}
}

func (u *authUsecase) IssueAccessToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *authUsecase) RegisterFCMToken(userID, token, deviceInfo string) error {
	return u.fcmTokenRepo.SaveToken(userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(userID, token string) error {
	return u.fcmTokenRepo.DeleteToken(userID, token)
}
