package job

import (
	"time"

	"resumeMatcher/internal/database"
)

// Response 是职位对外的完整表示。
type Response struct {
	ID              uint                     `json:"id"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description"`
	Company         string                   `json:"company"`
	Location        string                   `json:"location"`
	Requirements    string                   `json:"requirements"`
	Benefits        string                   `json:"benefits"`
	SalaryMin       *float64                 `json:"salaryMin"`
	SalaryMax       *float64                 `json:"salaryMax"`
	JobType         database.JobType         `json:"jobType,omitempty"`
	ExperienceLevel database.ExperienceLevel `json:"experienceLevel,omitempty"`
	Skills          []string                 `json:"skills"`
	Active          bool                     `json:"active"`
	RecruiterEmail  string                   `json:"recruiterEmail"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

func toResponse(job database.Job) Response {
	return Response{
		ID:              job.ID,
		Title:           job.Title,
		Description:     job.Description,
		Company:         job.Company,
		Location:        job.Location,
		Requirements:    job.Requirements,
		Benefits:        job.Benefits,
		SalaryMin:       job.SalaryMin,
		SalaryMax:       job.SalaryMax,
		JobType:         job.JobType,
		ExperienceLevel: job.ExperienceLevel,
		Skills:          job.SkillNames(),
		Active:          job.Active,
		RecruiterEmail:  job.RecruiterEmail,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

func toResponses(jobs []database.Job) []Response {
	out := make([]Response, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toResponse(j))
	}
	return out
}
