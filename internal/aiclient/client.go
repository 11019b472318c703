// Package aiclient 调用外部 AI 服务完成简历解析与职位匹配。
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	analyzeResumePath = "/analyze-resume"
	matchJobsPath     = "/match-jobs"

	maxErrorBodyBytes = 8 * 1024
)

// AnalyzeRequest 对应 /analyze-resume 的请求体。
type AnalyzeRequest struct {
	ResumeText string `json:"resumeText"`
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
}

// Analysis 是简历解析结果。
type Analysis struct {
	Skills         []string `json:"skills"`
	Experience     string   `json:"experience"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Education      []string `json:"education"`
	Certifications []string `json:"certifications"`
}

// JobSummary 是提交给匹配接口的职位描述。
type JobSummary struct {
	ID              uint     `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Requirements    string   `json:"requirements,omitempty"`
	Skills          []string `json:"skills"`
	JobType         string   `json:"jobType,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	SalaryMin       *float64 `json:"salaryMin,omitempty"`
	SalaryMax       *float64 `json:"salaryMax,omitempty"`
}

// MatchRequest 对应 /match-jobs 的请求体。
type MatchRequest struct {
	ResumeText    string       `json:"resumeText"`
	ResumeSkills  []string     `json:"resumeSkills"`
	AvailableJobs []JobSummary `json:"availableJobs"`
	MaxMatches    int          `json:"maxMatches"`
}

// Match 是单个职位的匹配结果。
type Match struct {
	JobID          uint     `json:"jobId"`
	JobTitle       string   `json:"jobTitle"`
	Company        string   `json:"company"`
	MatchScore     float64  `json:"matchScore"`
	MatchingSkills []string `json:"matchingSkills"`
	MissingSkills  []string `json:"missingSkills"`
	Explanation    string   `json:"explanation"`
}

// MatchResult 是 /match-jobs 的响应体。
type MatchResult struct {
	Matches []Match `json:"matches"`
}

// Client 是 AI 服务的 HTTP 客户端，基础地址在构造时确定。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 构造 Client。timeout <= 0 时使用 30 秒。
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ai service base url missing")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// AnalyzeResume 请求解析简历文本。
func (c *Client) AnalyzeResume(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	var out Analysis
	if err := c.post(ctx, analyzeResumePath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchJobs 请求按简历对候选职位打分。
func (c *Client) MatchJobs(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	var out MatchResult
	if err := c.post(ctx, matchJobsPath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%s status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
