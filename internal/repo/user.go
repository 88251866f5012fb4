package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/jam/internal/hash"
	"github.com/Skotchmaster/jam/internal/models"
)

// VerifyCredentials reports whether username exists and password matches its hash.
// An unknown user and a wrong password look the same to the caller.
func (r *GormRepo) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash.Burn(password)
			return false, nil
		}
		return false, err
	}
	return hash.CheckPassword(user.PasswordHash, password), nil
}

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", u.Username).FirstOrCreate(u)
	if tx.Error != nil {
		if isDuplicate(tx.Error) {
			return ErrUserAlreadyExist
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}
