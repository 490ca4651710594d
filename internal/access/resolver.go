package access

import (
	"context"
	"errors"
	"fmt"

	"catalog_system/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GetOrCreateProfile loads the profile of userID, creating an authorized one
// when none exists. This read may write; created reports whether it did.
func GetOrCreateProfile(ctx context.Context, db *gorm.DB, userID uint) (*domain.Profile, bool, error) {
	var profile domain.Profile
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load profile: %w", err)
	}

	profile = domain.Profile{UserID: userID, Role: domain.RoleAuthorized}
	if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, fmt.Errorf("create profile: %w", err)
		}
		// A concurrent request created it first
		profile = domain.Profile{}
		if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return nil, false, fmt.Errorf("reload profile: %w", err)
		}
		return &profile, false, nil
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    profile.Role,
	}).Info("Default profile created")
	return &profile, true, nil
}

// ResolveRole returns the role of the caller identified by userID.
// Zero means anonymous. A session pointing at a deleted user is treated as anonymous.
func ResolveRole(ctx context.Context, db *gorm.DB, userID uint) (domain.Role, error) {
	if userID == 0 {
		return domain.RoleUnauthorized, nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if count == 0 {
		return domain.RoleUnauthorized, nil
	}

	profile, _, err := GetOrCreateProfile(ctx, db, userID)
	if err != nil {
		return "", err
	}
	if !profile.Role.Valid() {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"role":    profile.Role,
		}).Warn("Profile has unknown role, treating as unauthorized")
		return domain.RoleUnauthorized, nil
	}
	return profile.Role, nil
}
