package database

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobFilter 描述列表查询条件，零值字段不参与过滤。
type JobFilter struct {
	Location string
	Company  string
	Skills   []string
}

// JobStore 是基于 GORM 的职位存储。所有写操作都在单个事务中完成。
type JobStore struct {
	db *gorm.DB
}

// NewJobStore 构造 JobStore。
func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// List 返回分页后的职位及满足条件的总数。
// location/company 为不区分大小写的子串匹配；skills 命中任意一个即可。
func (s *JobStore) List(ctx context.Context, filter JobFilter, offset, limit int) ([]Job, int64, error) {
	scope := jobFilterScope(filter)

	var total int64
	if err := s.db.WithContext(ctx).Model(&Job{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []Job
	if err := s.db.WithContext(ctx).
		Scopes(scope, preloadSkills).
		Order("jobs.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ListActive 返回最多 limit 条在招职位，用于匹配推荐。
func (s *JobStore) ListActive(ctx context.Context, limit int) ([]Job, error) {
	var jobs []Job
	err := s.db.WithContext(ctx).
		Scopes(preloadSkills).
		Where("active = ?", true).
		Order("jobs.id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Get 按 ID 查询职位，不存在时返回 gorm.ErrRecordNotFound。
func (s *JobStore) Get(ctx context.Context, id uint) (*Job, error) {
	var job Job
	if err := s.db.WithContext(ctx).Scopes(preloadSkills).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByRecruiter 返回指定招聘方拥有的全部职位。
func (s *JobStore) ListByRecruiter(ctx context.Context, recruiterEmail string) ([]Job, error) {
	var jobs []Job
	err := s.db.WithContext(ctx).
		Scopes(preloadSkills).
		Where("recruiter_email = ?", recruiterEmail).
		Order("jobs.id ASC").
		Find(&jobs).Error
	return jobs, err
}

// Create 写入职位及其技能标签。
func (s *JobStore) Create(ctx context.Context, job *Job) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Recruiter").Create(job).Error
	})
}

// UpdateOwned 锁定 id 且属于 recruiterEmail 的职位，调用 apply 修改后保存。
// apply 返回 true 表示技能标签被替换。找不到（或不属于该招聘方）时返回 gorm.ErrRecordNotFound。
func (s *JobStore) UpdateOwned(ctx context.Context, id uint, recruiterEmail string, apply func(job *Job) bool) (*Job, error) {
	var updated Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job Job
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND recruiter_email = ?", id, recruiterEmail).
			First(&job).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", job.ID).Order("position ASC").Find(&job.Skills).Error; err != nil {
			return err
		}

		skillsReplaced := apply(&job)

		if err := tx.Omit(clause.Associations).Save(&job).Error; err != nil {
			return err
		}
		if skillsReplaced {
			if err := tx.Where("job_id = ?", job.ID).Delete(&JobSkill{}).Error; err != nil {
				return err
			}
			for i := range job.Skills {
				job.Skills[i].ID = 0
				job.Skills[i].JobID = job.ID
			}
			if len(job.Skills) > 0 {
				if err := tx.Create(&job.Skills).Error; err != nil {
					return err
				}
			}
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOwned 永久删除属于 recruiterEmail 的职位，不存在时返回 gorm.ErrRecordNotFound。
func (s *JobStore) DeleteOwned(ctx context.Context, id uint, recruiterEmail string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job Job
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND recruiter_email = ?", id, recruiterEmail).
			First(&job).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", job.ID).Delete(&JobSkill{}).Error; err != nil {
			return err
		}
		return tx.Delete(&job).Error
	})
}

func preloadSkills(db *gorm.DB) *gorm.DB {
	return db.Preload("Skills", func(db *gorm.DB) *gorm.DB {
		return db.Order("job_skills.position ASC")
	})
}

func jobFilterScope(filter JobFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if location := strings.TrimSpace(filter.Location); location != "" {
			db = db.Where(`LOWER(jobs.location) LIKE ? ESCAPE '\'`, likePattern(location))
		}
		if company := strings.TrimSpace(filter.Company); company != "" {
			db = db.Where(`LOWER(jobs.company) LIKE ? ESCAPE '\'`, likePattern(company))
		}
		if len(filter.Skills) > 0 {
			db = db.Where("EXISTS (SELECT 1 FROM job_skills WHERE job_skills.job_id = jobs.id AND job_skills.name IN ?)", filter.Skills)
		}
		return db
	}
}

func likePattern(raw string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(raw))
	return "%" + escaped + "%"
}
