package resume

import (
	"time"

	"gorm.io/datatypes"

	"resumeMatcher/internal/database"
)

// Response 是简历对外的表示，不包含存储位置。
type Response struct {
	ID            uint           `json:"id"`
	FileName      string         `json:"fileName"`
	ContentType   string         `json:"contentType"`
	Status        string         `json:"status"`
	ParsedContent string         `json:"parsedContent"`
	Skills        []string       `json:"skills"`
	Experience    string         `json:"experience"`
	Summary       string         `json:"summary"`
	Analysis      datatypes.JSON `json:"analysis,omitempty"`
	HasFile       bool           `json:"hasFile"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func toResponse(r database.Resume) Response {
	skills := []string(r.Skills)
	if skills == nil {
		skills = []string{}
	}
	return Response{
		ID:            r.ID,
		FileName:      r.FileName,
		ContentType:   r.ContentType,
		Status:        r.Status,
		ParsedContent: r.ParsedContent,
		Skills:        skills,
		Experience:    r.Experience,
		Summary:       r.Summary,
		Analysis:      r.Analysis,
		HasFile:       r.ObjectKey != "",
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
