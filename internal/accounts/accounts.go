// Package accounts registers users, checks credentials and maintains accounts.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"catalog_system/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 160
	MinPasswordLength = 4
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotFound           = errors.New("user not found")
)

// ValidationError lists the rejected fields with a message for each.
// The empty key holds form-level messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e.Fields[k])
			continue
		}
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Registration is the sign-up form
type Registration struct {
	Username  string
	Password1 string
	Password2 string
}

// Register validates the form and creates the user with an authorized profile.
// Validation failures are returned as *ValidationError and create nothing.
func Register(ctx context.Context, db *gorm.DB, reg Registration) (*domain.User, error) {
	username := strings.TrimSpace(reg.Username)
	password1 := strings.TrimSpace(reg.Password1)
	password2 := strings.TrimSpace(reg.Password2)

	verr := &ValidationError{}
	switch {
	case username == "":
		verr.add("username", "Username cannot be empty")
	case utf8.RuneCountInString(username) < MinUsernameLength:
		verr.add("username", fmt.Sprintf("Username must be at least %d characters", MinUsernameLength))
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		verr.add("username", fmt.Sprintf("Username must be at most %d characters", MaxUsernameLength))
	default:
		taken, err := usernameTaken(ctx, db, username)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.add("username", fmt.Sprintf("User '%s' already exists", username))
		}
	}
	checkPassword(verr, "password1", password1)
	checkPassword(verr, "password2", password2)
	if password1 != "" && password2 != "" && password1 != password2 {
		verr.add("", "Passwords do not match")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Username: username,
		Password: string(hash),
		Profile:  &domain.Profile{Role: domain.RoleAuthorized},
	}
	// User and profile are inserted in one transaction
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			verr.add("username", fmt.Sprintf("User '%s' already exists", username))
			return nil, verr
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return &user, nil
}

func checkPassword(verr *ValidationError, field, password string) {
	switch {
	case password == "":
		verr.add(field, "This field is required")
	case utf8.RuneCountInString(password) < MinPasswordLength:
		verr.add(field, fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
}

func usernameTaken(ctx context.Context, db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

// Authenticate checks a username and password pair. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, &ValidationError{Fields: map[string]string{"": "Enter username and password"}}
	}

	var user domain.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}
