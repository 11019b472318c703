package database

import (
	"context"

	"gorm.io/gorm"
)

// UserStore 是基于 GORM 的账号存储，唯一性由 email/username 唯一索引保证。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore 构造 UserStore。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail 按邮箱查询账号，不存在时返回 gorm.ErrRecordNotFound。
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail 报告邮箱是否已被占用。
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

// ExistsByUsername 报告用户名是否已被占用。
func (s *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

// Create 在单个事务内写入账号。唯一约束冲突返回 gorm.ErrDuplicatedKey。
func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
}

func (s *UserStore) exists(ctx context.Context, query string, arg string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
