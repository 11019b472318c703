package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
)

// 分页参数。
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const notOwnedMessage = "job not found or unauthorized"

// Store 是职位存储需要提供的能力，未找到时返回 gorm.ErrRecordNotFound。
type Store interface {
	List(ctx context.Context, filter database.JobFilter, offset, limit int) ([]database.Job, int64, error)
	Get(ctx context.Context, id uint) (*database.Job, error)
	ListByRecruiter(ctx context.Context, recruiterEmail string) ([]database.Job, error)
	Create(ctx context.Context, job *database.Job) error
	UpdateOwned(ctx context.Context, id uint, recruiterEmail string, apply func(job *database.Job) bool) (*database.Job, error)
	DeleteOwned(ctx context.Context, id uint, recruiterEmail string) error
}

// UserLookup 按邮箱解析调用方身份。
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*database.User, error)
}

// Filter 是列表查询条件。
type Filter struct {
	Location string
	Company  string
	Skills   []string
}

// Page 是一页职位。
type Page struct {
	Content       []Response `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}

// CreateInput 是创建职位所需字段。
type CreateInput struct {
	Title           string
	Description     string
	Company         string
	Location        string
	Requirements    string
	Benefits        string
	SalaryMin       *float64
	SalaryMax       *float64
	JobType         database.JobType
	ExperienceLevel database.ExperienceLevel
	Skills          []string
}

// UpdateInput 是部分更新，nil 字段保持原值。
type UpdateInput struct {
	Title           *string
	Description     *string
	Company         *string
	Location        *string
	Requirements    *string
	Benefits        *string
	SalaryMin       *float64
	SalaryMax       *float64
	JobType         *database.JobType
	ExperienceLevel *database.ExperienceLevel
	Skills          *[]string
}

// Service 提供职位的查询与归属受限的增删改。
type Service struct {
	jobs   Store
	users  UserLookup
	logger *slog.Logger
	now    func() time.Time
}

// NewService 构造 Service。
func NewService(jobs Store, users UserLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, users: users, logger: logger, now: time.Now}
}

// List 按条件分页查询。page 从 0 开始，size 超出范围时取默认值或上限。
func (s *Service) List(ctx context.Context, filter Filter, page, size int) (*Page, error) {
	if page < 0 {
		page = 0
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	// 限制 page 使 page*size 不溢出，超出范围的页自然为空。
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}

	jobs, total, err := s.jobs.List(ctx, database.JobFilter{
		Location: filter.Location,
		Company:  filter.Company,
		Skills:   normalizeSkills(filter.Skills),
	}, page*size, size)
	if err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("list jobs: %w", err))
	}

	return &Page{
		Content:       toResponses(jobs),
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(size))),
	}, nil
}

// Get 返回单个职位。
func (s *Service) Get(ctx context.Context, id uint) (*Response, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("job not found")
		}
		return nil, errcode.Unexpected(fmt.Errorf("get job: %w", err))
	}
	resp := toResponse(*job)
	return &resp, nil
}

// Create 以调用方为所有者创建职位。调用方邮箱必须对应已存在的账号。
func (s *Service) Create(ctx context.Context, in CreateInput, callerEmail string) (*Response, error) {
	if err := validateSalaries(in.SalaryMin, in.SalaryMax); err != nil {
		return nil, err
	}

	recruiter, err := s.users.FindByEmail(ctx, callerEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("recruiter not found")
		}
		return nil, errcode.Unexpected(fmt.Errorf("find recruiter: %w", err))
	}

	now := s.timestamp()
	job := &database.Job{
		Title:           in.Title,
		Description:     in.Description,
		Company:         in.Company,
		Location:        in.Location,
		Requirements:    in.Requirements,
		Benefits:        in.Benefits,
		SalaryMin:       in.SalaryMin,
		SalaryMax:       in.SalaryMax,
		JobType:         in.JobType,
		ExperienceLevel: in.ExperienceLevel,
		Skills:          database.NewJobSkills(in.Skills),
		Active:          true,
		RecruiterEmail:  recruiter.Email,
		RecruiterID:     recruiter.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("create job: %w", err))
	}

	s.logger.Info("job created",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.Uint64("recruiter_id", uint64(recruiter.ID)),
	)
	resp := toResponse(*job)
	return &resp, nil
}

// Update 对调用方拥有的职位做字段级部分更新，并推进 updatedAt。
// 职位不存在与不属于调用方返回同一个错误。
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, callerEmail string) (*Response, error) {
	if err := validateSalaries(in.SalaryMin, in.SalaryMax); err != nil {
		return nil, err
	}

	updated, err := s.jobs.UpdateOwned(ctx, id, callerEmail, func(job *database.Job) bool {
		setIfPresent(&job.Title, in.Title)
		setIfPresent(&job.Description, in.Description)
		setIfPresent(&job.Company, in.Company)
		setIfPresent(&job.Location, in.Location)
		setIfPresent(&job.Requirements, in.Requirements)
		setIfPresent(&job.Benefits, in.Benefits)
		setIfPresent(&job.JobType, in.JobType)
		setIfPresent(&job.ExperienceLevel, in.ExperienceLevel)
		if in.SalaryMin != nil {
			v := *in.SalaryMin
			job.SalaryMin = &v
		}
		if in.SalaryMax != nil {
			v := *in.SalaryMax
			job.SalaryMax = &v
		}
		job.UpdatedAt = s.nextUpdatedAt(job.UpdatedAt)

		if in.Skills == nil {
			return false
		}
		job.Skills = database.NewJobSkills(*in.Skills)
		return true
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFoundOrForbidden(notOwnedMessage)
		}
		return nil, errcode.Unexpected(fmt.Errorf("update job: %w", err))
	}

	s.logger.Info("job updated", slog.Uint64("job_id", uint64(updated.ID)))
	resp := toResponse(*updated)
	return &resp, nil
}

// Delete 永久删除调用方拥有的职位，错误语义与 Update 相同。
func (s *Service) Delete(ctx context.Context, id uint, callerEmail string) error {
	if err := s.jobs.DeleteOwned(ctx, id, callerEmail); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFoundOrForbidden(notOwnedMessage)
		}
		return errcode.Unexpected(fmt.Errorf("delete job: %w", err))
	}
	s.logger.Info("job deleted", slog.Uint64("job_id", uint64(id)))
	return nil
}

// ListMine 返回调用方拥有的全部职位，不分页。
func (s *Service) ListMine(ctx context.Context, callerEmail string) ([]Response, error) {
	jobs, err := s.jobs.ListByRecruiter(ctx, callerEmail)
	if err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("list recruiter jobs: %w", err))
	}
	return toResponses(jobs), nil
}

// timestamp 返回截断到微秒的当前时间，与 PostgreSQL timestamptz 精度一致。
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt 保证 updatedAt 严格递增，时钟回拨或同一微秒内的连续更新也不例外。
func (s *Service) nextUpdatedAt(prev time.Time) time.Time {
	next := s.timestamp()
	if !next.After(prev) {
		next = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return next
}

func validateSalaries(min, max *float64) error {
	fields := map[string]string{}
	if min != nil && *min < 0 {
		fields["salaryMin"] = "must be greater than or equal to 0"
	}
	if max != nil && *max < 0 {
		fields["salaryMax"] = "must be greater than or equal to 0"
	}
	if len(fields) > 0 {
		return errcode.Validation("validation failed", fields)
	}
	return nil
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// normalizeSkills 去除空白与重复项，同时拆开以逗号分隔的取值。
func normalizeSkills(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
