package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User is an account row in the users table.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	FullName     string `gorm:"type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for User.
func (User) TableName() string { return "users" }

// Profile is the public view of a user.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
}

// Profile returns the public view of u.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

// UserRepository persists users through GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository migrates the users table and returns a repository over db.
func NewUserRepository(ctx context.Context, db *gorm.DB) (*UserRepository, error) {
	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &UserRepository{db: db}, nil
}

// Create inserts u. A duplicate email maps to ErrEmailInUse.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailInUse
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID looks a user up by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail looks a user up by normalized email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", email)
}

// EmailExists reports whether an account uses email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *UserRepository) first(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
