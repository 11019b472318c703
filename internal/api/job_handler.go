package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeMatcher/internal/database"
	"resumeMatcher/internal/job"
)

// JobHandler 暴露职位的查询与归属受限的增删改。
type JobHandler struct {
	jobs *job.Service
}

// NewJobHandler 构造 JobHandler。
func NewJobHandler(jobs *job.Service) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type createJobRequest struct {
	Title           string                   `json:"title" binding:"required,max=255"`
	Description     string                   `json:"description" binding:"required"`
	Company         string                   `json:"company" binding:"required,max=255"`
	Location        string                   `json:"location" binding:"required,max=255"`
	Requirements    string                   `json:"requirements"`
	Benefits        string                   `json:"benefits"`
	SalaryMin       *float64                 `json:"salaryMin" binding:"omitempty,gte=0"`
	SalaryMax       *float64                 `json:"salaryMax" binding:"omitempty,gte=0"`
	JobType         database.JobType         `json:"jobType" binding:"omitempty,oneof=FULL_TIME PART_TIME CONTRACT FREELANCE INTERNSHIP"`
	ExperienceLevel database.ExperienceLevel `json:"experienceLevel" binding:"omitempty,oneof=ENTRY_LEVEL MID_LEVEL SENIOR_LEVEL EXECUTIVE"`
	Skills          []string                 `json:"skills" binding:"omitempty,max=50,dive,required,max=128"`
}

// updateJobRequest 的每个字段都可选，未出现的字段保持原值。
type updateJobRequest struct {
	Title           *string                   `json:"title" binding:"omitempty,min=1,max=255"`
	Description     *string                   `json:"description" binding:"omitempty,min=1"`
	Company         *string                   `json:"company" binding:"omitempty,min=1,max=255"`
	Location        *string                   `json:"location" binding:"omitempty,min=1,max=255"`
	Requirements    *string                   `json:"requirements"`
	Benefits        *string                   `json:"benefits"`
	SalaryMin       *float64                  `json:"salaryMin" binding:"omitempty,gte=0"`
	SalaryMax       *float64                  `json:"salaryMax" binding:"omitempty,gte=0"`
	JobType         *database.JobType         `json:"jobType" binding:"omitempty,oneof=FULL_TIME PART_TIME CONTRACT FREELANCE INTERNSHIP"`
	ExperienceLevel *database.ExperienceLevel `json:"experienceLevel" binding:"omitempty,oneof=ENTRY_LEVEL MID_LEVEL SENIOR_LEVEL EXECUTIVE"`
	Skills          *[]string                 `json:"skills" binding:"omitempty,max=50,dive,required,max=128"`
}

// List 按 location/company/skills 过滤并分页。skills 可重复出现或以逗号分隔。
func (h *JobHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(job.DefaultPageSize)))

	result, err := h.jobs.List(c.Request.Context(), job.Filter{
		Location: strings.TrimSpace(c.Query("location")),
		Company:  strings.TrimSpace(c.Query("company")),
		Skills:   c.QueryArray("skills"),
	}, page, size)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get 返回单个职位。
func (h *JobHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	resp, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Mine 返回调用方发布的全部职位。
func (h *JobHandler) Mine(c *gin.Context) {
	email, ok := userEmailFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobs, err := h.jobs.ListMine(c.Request.Context(), email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// Create 以调用方为所有者创建职位。
func (h *JobHandler) Create(c *gin.Context) {
	email, ok := userEmailFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}

	resp, err := h.jobs.Create(c.Request.Context(), job.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Company:         req.Company,
		Location:        req.Location,
		Requirements:    req.Requirements,
		Benefits:        req.Benefits,
		SalaryMin:       req.SalaryMin,
		SalaryMax:       req.SalaryMax,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		Skills:          req.Skills,
	}, email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update 部分更新调用方拥有的职位。
func (h *JobHandler) Update(c *gin.Context) {
	email, ok := userEmailFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req updateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBindError(c, err)
		return
	}

	resp, err := h.jobs.Update(c.Request.Context(), id, job.UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		Company:         req.Company,
		Location:        req.Location,
		Requirements:    req.Requirements,
		Benefits:        req.Benefits,
		SalaryMin:       req.SalaryMin,
		SalaryMax:       req.SalaryMax,
		JobType:         req.JobType,
		ExperienceLevel: req.ExperienceLevel,
		Skills:          req.Skills,
	}, email)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete 永久删除调用方拥有的职位。
func (h *JobHandler) Delete(c *gin.Context) {
	email, ok := userEmailFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), id, email); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
