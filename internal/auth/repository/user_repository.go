package repository

import (
	"errors"
	"time"

	authdomain "mailboard-backend/internal/auth/domain"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByID(id string) (*authdomain.User, error)
	FindByEmail(email string) (*authdomain.User, error)
	// UpdateTokens stores a refreshed OAuth token, keeping the old refresh token when none was issued
	UpdateTokens(userID string, token *oauth2.Token) error
	// UpdateHistoryID advances the push-notification cursor only when it moves forward
	UpdateHistoryID(userID string, historyID uint64) (bool, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	return r.db.Create(user).Error
}

func (r *userRepository) FindByEmail(email string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByID(id string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateTokens(userID string, token *oauth2.Token) error {
	updates := map[string]interface{}{
		"access_token": token.AccessToken,
		"token_expiry": token.Expiry,
		"updated_at":   time.Now(),
	}
	if token.RefreshToken != "" {
		updates["refresh_token"] = token.RefreshToken
	}
	return r.db.Model(&authdomain.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *userRepository) UpdateHistoryID(userID string, historyID uint64) (bool, error) {
	result := r.db.Model(&authdomain.User{}).
		Where("id = ? AND history_id < ?", userID, historyID).
		Updates(map[string]interface{}{
			"history_id": historyID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
