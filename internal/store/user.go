package store

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
)

type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	CallCount    int
	LastCallAt   *time.Time
}

func (s *Store) CreateUser(username, password string) error {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return err
	}

	user := User{
		Username:     username,
		PasswordHash: string(bytes),
	}

	return s.DB.Create(&user).Error
}

func (s *Store) FindUserByUsername(username string) (*User, error) {
	var user User
	result := s.DB.Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *Store) RenameUser(oldName, newName string) error {
	return s.DB.Model(&User{}).
		Where("username = ?", oldName).
		Update("username", newName).Error
}

func (s *Store) RemoveUser(username string) error {
	return s.DB.Unscoped().
		Where("username = ?", username).
		Delete(&User{}).Error
}

func (s *Store) UpdatePassword(username, newPassword string) error {
	bytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), 10)
	if err != nil {
		return err
	}

	return s.DB.Model(&User{}).
		Where("username = ?", username).
		Update("password_hash", string(bytes)).Error
}

// RecordCall bumps the user's call counter and stamps the call time; runs
// on every successful login.
func (s *Store) RecordCall(username string) error {
	now := time.Now()
	return s.DB.Model(&User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"call_count":   gorm.Expr("call_count + 1"),
			"last_call_at": &now,
		}).Error
}

func (s *Store) Authenticate(username, password string) (*User, error) {
	user, err := s.FindUserByUsername(username)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return user, nil
}
