package accounts

import (
	"context"
	"errors"
	"fmt"

	"catalog_system/internal/access"
	"catalog_system/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Page is one page of the account list
type Page struct {
	Users      []domain.User `json:"users"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// Page size bounds for List
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// List returns a page of users with their profiles, ordered by id.
// page below 1 means the first page; pageSize outside 1..MaxPageSize means DefaultPageSize.
func List(ctx context.Context, db *gorm.DB, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	var total int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	users := []domain.User{}
	err := db.WithContext(ctx).
		Preload("Profile").
		Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &Page{
		Users:      users,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (int(total) + pageSize - 1) / pageSize,
	}, nil
}

// SetRole assigns role to the user, creating the profile if it is missing
func SetRole(ctx context.Context, db *gorm.DB, userID uint, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"role": fmt.Sprintf("Unknown role %q", role)}}
	}
	if err := ensureUser(ctx, db, userID); err != nil {
		return nil, err
	}
	profile, _, err := access.GetOrCreateProfile(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if profile.Role != role {
		if err := db.WithContext(ctx).Model(profile).Update("role", role).Error; err != nil {
			return nil, fmt.Errorf("update role: %w", err)
		}
		profile.Role = role
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("Role assigned")
	return profile, nil
}

// SetRoleByUsername is SetRole addressed by username
func SetRoleByUsername(ctx context.Context, db *gorm.DB, username string, role domain.Role) (*domain.Profile, error) {
	var user domain.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return SetRole(ctx, db, user.ID, role)
}

// Delete removes the user together with its orders and profile
func Delete(ctx context.Context, db *gorm.DB, userID uint) error {
	if err := ensureUser(ctx, db, userID); err != nil {
		return err
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orderIDs []uint
		if err := tx.Model(&domain.Order{}).Where("user_id = ?", userID).Pluck("id", &orderIDs).Error; err != nil {
			return err
		}
		if len(orderIDs) > 0 {
			if err := tx.Exec("DELETE FROM order_products WHERE order_id IN ?", orderIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.Order{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&domain.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.User{}, userID).Error
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	logrus.WithField("user_id", userID).Info("User deleted")
	return nil
}

// Seed describes a fixture account
type Seed struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultSeeds are the demo accounts, one per role
var DefaultSeeds = []Seed{
	{Username: "admin", Password: "admin", Role: domain.RoleAdmin},
	{Username: "editor", Password: "editor", Role: domain.RoleEditor},
	{Username: "user", Password: "user", Role: domain.RoleAuthorized},
	{Username: "guest", Password: "guest", Role: domain.RoleUnauthorized},
}

// Upsert creates the account or resets its password, then assigns the role
func Upsert(ctx context.Context, db *gorm.DB, seed Seed) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("username = ?", seed.Username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = domain.User{Username: seed.Username}
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}

	if user.ID == 0 || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(seed.Password)) != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hash)
		if err := db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, fmt.Errorf("save user: %w", err)
		}
	}
	profile, err := SetRole(ctx, db, user.ID, seed.Role)
	if err != nil {
		return nil, err
	}
	user.Profile = profile
	return &user, nil
}

func ensureUser(ctx context.Context, db *gorm.DB, userID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}
