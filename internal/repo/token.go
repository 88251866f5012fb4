package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/jam/internal/models"
)

// Selector picks exactly one token: by jti, or by id scoped to its owner.
type Selector struct {
	JTI      string
	ID       uint
	Identity string
}

func ByJTI(jti string) Selector { return Selector{JTI: jti} }

func ByID(id uint, identity string) Selector { return Selector{ID: id, Identity: identity} }

func (s Selector) String() string {
	if s.JTI != "" {
		return "jti=" + s.JTI
	}
	return fmt.Sprintf("id=%d identity=%s", s.ID, s.Identity)
}

func (s Selector) apply(q *gorm.DB) *gorm.DB {
	if s.JTI != "" {
		return q.Where("jti = ?", s.JTI)
	}
	return q.Where("id = ? AND user_identity = ?", s.ID, s.Identity)
}

func (s Selector) valid() bool {
	return s.JTI != "" || (s.ID != 0 && s.Identity != "")
}

func (r *GormRepo) Insert(ctx context.Context, t *models.Token) error {
	if err := r.DB.WithContext(ctx).Create(t).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateJTI, t.JTI)
		}
		return err
	}
	return nil
}

// InsertAll records several tokens in one transaction, so a pair is stored
// together or not at all.
func (r *GormRepo) InsertAll(ctx context.Context, ts ...*models.Token) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range ts {
			if err := tx.Create(t).Error; err != nil {
				if isDuplicate(err) {
					return fmt.Errorf("%w: %s", ErrDuplicateJTI, t.JTI)
				}
				return err
			}
		}
		return nil
	})
}

func (r *GormRepo) FindByJTI(ctx context.Context, jti string) (*models.Token, error) {
	return r.find(ctx, ByJTI(jti))
}

func (r *GormRepo) FindByIDAndIdentity(ctx context.Context, id uint, identity string) (*models.Token, error) {
	return r.find(ctx, ByID(id, identity))
}

func (r *GormRepo) find(ctx context.Context, sel Selector) (*models.Token, error) {
	if !sel.valid() {
		return nil, ErrTokenNotFound
	}
	var token models.Token
	if err := sel.apply(r.DB.WithContext(ctx)).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *GormRepo) ListByIdentity(ctx context.Context, identity string) ([]models.Token, error) {
	var out []models.Token
	if err := r.DB.WithContext(ctx).
		Where("user_identity = ?", identity).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetRevoked flips the flag with a single UPDATE, so readers see either
// the old or the new value.
func (r *GormRepo) SetRevoked(ctx context.Context, sel Selector, revoked bool) error {
	if !sel.valid() {
		return ErrTokenNotFound
	}
	res := sel.apply(r.DB.WithContext(ctx).Model(&models.Token{})).
		Update("revoked", revoked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, sel)
	}
	return nil
}

func (r *GormRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Delete(&models.Token{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
