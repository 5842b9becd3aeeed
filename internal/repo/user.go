package repo

import (
	"context"
	"jarvis-backend/internal/models"

	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

type UserRepoInterface interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, login string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

func NewUserRepository(db *gorm.DB) UserRepoInterface {
	return &UserRepo{db: db}
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) FindByEmailOrUsername(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}
