package database

import (
	"time"

	"gorm.io/datatypes"
)

// Role 表示账号角色。
type Role string

const (
	RoleJobSeeker Role = "JOB_SEEKER"
	RoleRecruiter Role = "RECRUITER"
)

// Valid 报告角色是否为已知取值。
func (r Role) Valid() bool {
	return r == RoleJobSeeker || r == RoleRecruiter
}

// JobType 表示职位的雇佣类型。
type JobType string

const (
	JobTypeFullTime   JobType = "FULL_TIME"
	JobTypePartTime   JobType = "PART_TIME"
	JobTypeContract   JobType = "CONTRACT"
	JobTypeFreelance  JobType = "FREELANCE"
	JobTypeInternship JobType = "INTERNSHIP"
)

// ExperienceLevel 表示职位要求的经验级别。
type ExperienceLevel string

const (
	ExperienceEntry     ExperienceLevel = "ENTRY_LEVEL"
	ExperienceMid       ExperienceLevel = "MID_LEVEL"
	ExperienceSenior    ExperienceLevel = "SENIOR_LEVEL"
	ExperienceExecutive ExperienceLevel = "EXECUTIVE"
)

// User 表示系统中的账号信息。email 与 username 均由唯一索引兜底并发写入。
// 不使用 gorm.Model：账号与职位都没有软删除语义。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:128" json:"firstName"`
	LastName     string    `gorm:"size:128" json:"lastName"`
	Role         Role      `gorm:"size:32;not null" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Job 表示招聘方发布的职位。RecruiterEmail 为冗余的所有者键，所有权不可转移。
// CreatedAt/UpdatedAt 由服务层显式写入。
type Job struct {
	ID              uint            `gorm:"primaryKey"`
	Title           string          `gorm:"size:255;not null"`
	Description     string          `gorm:"type:text;not null"`
	Company         string          `gorm:"size:255;not null"`
	Location        string          `gorm:"size:255;not null"`
	Requirements    string          `gorm:"type:text"`
	Benefits        string          `gorm:"type:text"`
	SalaryMin       *float64        `gorm:"type:numeric(14,2)"`
	SalaryMax       *float64        `gorm:"type:numeric(14,2)"`
	JobType         JobType         `gorm:"size:32"`
	ExperienceLevel ExperienceLevel `gorm:"size:32"`
	Skills          []JobSkill      `gorm:"constraint:OnDelete:CASCADE"`
	Active          bool            `gorm:"not null;default:true"`
	RecruiterEmail  string          `gorm:"size:255;not null;index"`
	RecruiterID     uint            `gorm:"not null;index"`
	Recruiter       User            `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"autoCreateTime:false"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime:false"`
}

// SkillNames 按保存顺序返回技能标签。
func (j Job) SkillNames() []string {
	names := make([]string, 0, len(j.Skills))
	for _, s := range j.Skills {
		names = append(names, s.Name)
	}
	return names
}

// JobSkill 是职位的有序技能标签。
type JobSkill struct {
	ID       uint   `gorm:"primaryKey"`
	JobID    uint   `gorm:"index;not null"`
	Position int    `gorm:"not null"`
	Name     string `gorm:"size:128;not null;index"`
}

// NewJobSkills 把有序标签转换为子表记录。
func NewJobSkills(names []string) []JobSkill {
	skills := make([]JobSkill, 0, len(names))
	for i, name := range names {
		skills = append(skills, JobSkill{Position: i, Name: name})
	}
	return skills
}

// 简历分析状态。
const (
	ResumeStatusPending  = "pending"
	ResumeStatusAnalyzed = "analyzed"
	ResumeStatusRaw      = "raw"
)

// Resume 表示用户上传的简历。Analysis 保存 AI 返回的完整结果（JSONB），
// 分析失败时保持为空，原始文本照常保存。
type Resume struct {
	ID            uint                        `gorm:"primaryKey"`
	UserID        uint                        `gorm:"index;not null"`
	User          User                        `gorm:"constraint:OnDelete:CASCADE"`
	FileName      string                      `gorm:"size:255"`
	ContentType   string                      `gorm:"size:128"`
	ObjectKey     string                      `gorm:"size:512"`
	ParsedContent string                      `gorm:"type:text"`
	Skills        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Experience    string                      `gorm:"type:text"`
	Summary       string                      `gorm:"type:text"`
	Analysis      datatypes.JSON              `gorm:"type:jsonb"`
	Status        string                      `gorm:"size:32"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
