package repository

import (
	"time"

	authdomain "mailboard-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository stores device tokens used for push delivery of snooze wake-ups
type FCMTokenRepository interface {
	SaveToken(userID, token, deviceInfo string) error
	ListTokens(userID string) ([]string, error)
	// DeleteToken removes a token owned by userID
	DeleteToken(userID, token string) error
	// PruneTokens drops tokens the push service reported as unregistered
	PruneTokens(tokens []string) error
}

type fcmTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken upserts on the token so a device that switches accounts follows the latest user
func (r *fcmTokenRepository) SaveToken(userID, token, deviceInfo string) error {
	now := time.Now()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(&authdomain.FCMToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}

func (r *fcmTokenRepository) ListTokens(userID string) ([]string, error) {
	var tokens []string
	err := r.db.Model(&authdomain.FCMToken{}).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(userID, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).Delete(&authdomain.FCMToken{}).Error
}

func (r *fcmTokenRepository) PruneTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.Where("token IN ?", tokens).Delete(&authdomain.FCMToken{}).Error
}
