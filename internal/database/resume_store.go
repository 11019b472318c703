package database

import (
	"context"

	"gorm.io/gorm"
)

// ResumeStore 是基于 GORM 的简历存储，查询均按 userID 限定归属。
type ResumeStore struct {
	db *gorm.DB
}

// NewResumeStore 构造 ResumeStore。
func NewResumeStore(db *gorm.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

// Create 写入一份简历。
func (s *ResumeStore) Create(ctx context.Context, resume *Resume) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User").Create(resume).Error
	})
}

// Get 按 ID 查询简历（不校验归属，供后台任务使用）。
func (s *ResumeStore) Get(ctx context.Context, id uint) (*Resume, error) {
	var resume Resume
	if err := s.db.WithContext(ctx).First(&resume, id).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// GetOwned 查询属于 userID 的简历，不存在或不属于该用户时返回 gorm.ErrRecordNotFound。
func (s *ResumeStore) GetOwned(ctx context.Context, id, userID uint) (*Resume, error) {
	var resume Resume
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&resume).Error; err != nil {
		return nil, err
	}
	return &resume, nil
}

// ListByUser 按创建时间倒序列出用户的简历。
func (s *ResumeStore) ListByUser(ctx context.Context, userID uint) ([]Resume, error) {
	var resumes []Resume
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&resumes).Error
	return resumes, err
}

// UpdateAnalysis 写入分析结果或状态变更。
func (s *ResumeStore) UpdateAnalysis(ctx context.Context, resume *Resume) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&Resume{ID: resume.ID}).Updates(map[string]any{
			"skills":     resume.Skills,
			"experience": resume.Experience,
			"summary":    resume.Summary,
			"analysis":   resume.Analysis,
			"status":     resume.Status,
		}).Error
	})
}

// DeleteOwned 删除属于 userID 的简历并返回被删除的记录。
func (s *ResumeStore) DeleteOwned(ctx context.Context, id, userID uint) (*Resume, error) {
	var resume Resume
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&resume).Error; err != nil {
			return err
		}
		return tx.Delete(&resume).Error
	})
	if err != nil {
		return nil, err
	}
	return &resume, nil
}
