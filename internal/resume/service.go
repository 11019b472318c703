// Package resume 负责简历的接收、存储与尽力而为的 AI 分析和职位匹配。
// AI 服务的任何失败都不会影响简历本身的保存。
package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeMatcher/internal/aiclient"
	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
	"resumeMatcher/internal/metrics"
	"resumeMatcher/internal/storage"
)

const (
	defaultMaxMatches  = 10
	matchCandidateJobs = 200
	downloadLinkTTL    = 5 * time.Minute
)

// Store 是简历存储需要提供的能力，未找到时返回 gorm.ErrRecordNotFound。
type Store interface {
	Create(ctx context.Context, resume *database.Resume) error
	Get(ctx context.Context, id uint) (*database.Resume, error)
	GetOwned(ctx context.Context, id, userID uint) (*database.Resume, error)
	ListByUser(ctx context.Context, userID uint) ([]database.Resume, error)
	UpdateAnalysis(ctx context.Context, resume *database.Resume) error
	DeleteOwned(ctx context.Context, id, userID uint) (*database.Resume, error)
}

// JobLister 提供参与匹配的在招职位。
type JobLister interface {
	ListActive(ctx context.Context, limit int) ([]database.Job, error)
}

// Analyzer 是 AI 服务的两个接口。
type Analyzer interface {
	AnalyzeResume(ctx context.Context, req aiclient.AnalyzeRequest) (*aiclient.Analysis, error)
	MatchJobs(ctx context.Context, req aiclient.MatchRequest) (*aiclient.MatchResult, error)
}

// ObjectStorage 保存原始简历文件。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey, fileName string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Scanner 扫描上传内容，发现病毒时返回 storage.ErrInfected。
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

// Enqueuer 把分析任务交给后台 worker。
type Enqueuer interface {
	EnqueueAnalyze(ctx context.Context, resumeID, userID uint, correlationID string) error
}

// Dependencies 汇总 Service 的依赖。Storage、Scanner、Queue、AI 均可为空：
// 没有 Queue 时分析在请求内同步执行，没有 AI 时简历保持未分析状态。
type Dependencies struct {
	Resumes    Store
	Jobs       JobLister
	AI         Analyzer
	Storage    ObjectStorage
	Scanner    Scanner
	Queue      Enqueuer
	Logger     *slog.Logger
	MaxMatches int
}

// Service 实现简历相关的业务操作。
type Service struct {
	resumes    Store
	jobs       JobLister
	ai         Analyzer
	storage    ObjectStorage
	scanner    Scanner
	queue      Enqueuer
	logger     *slog.Logger
	maxMatches int
}

// NewService 构造 Service。
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxMatches := deps.MaxMatches
	if maxMatches <= 0 {
		maxMatches = defaultMaxMatches
	}
	return &Service{
		resumes:    deps.Resumes,
		jobs:       deps.Jobs,
		ai:         deps.AI,
		storage:    deps.Storage,
		scanner:    deps.Scanner,
		queue:      deps.Queue,
		logger:     logger,
		maxMatches: maxMatches,
	}
}

// UploadInput 是一次文件上传。
type UploadInput struct {
	UserID        uint
	FileName      string
	Data          []byte
	CorrelationID string
}

// TextInput 是直接提交的简历文本。
type TextInput struct {
	UserID        uint
	FileName      string
	Text          string
	CorrelationID string
}

// Upload 扫描并保存上传的简历文件。文本类文件会提取内容并排队分析，
// 其它类型只保存文件，状态为 raw。
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Response, error) {
	if len(in.Data) == 0 {
		return nil, errcode.Validation("validation failed", map[string]string{"file": "must not be empty"})
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = "resume"
	}

	if s.scanner != nil {
		if err := s.scanner.Scan(ctx, in.Data); err != nil {
			if errors.Is(err, storage.ErrInfected) {
				s.logger.Warn("resume upload rejected by scanner", slog.Uint64("user_id", uint64(in.UserID)))
				return nil, errcode.Validation("validation failed", map[string]string{"file": "malicious file detected"})
			}
			return nil, errcode.Unexpected(fmt.Errorf("scan resume: %w", err))
		}
	}

	mt := mimetype.Detect(in.Data)
	record := &database.Resume{
		UserID:      in.UserID,
		FileName:    fileName,
		ContentType: mt.String(),
		Status:      database.ResumeStatusRaw,
	}
	if isText(mt) {
		record.ParsedContent = strings.TrimSpace(strings.ToValidUTF8(string(in.Data), ""))
	}

	if s.storage != nil {
		key := storage.ResumeObjectKey(in.UserID, fileName)
		if err := s.storage.UploadFile(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), mt.String()); err != nil {
			return nil, errcode.Unexpected(fmt.Errorf("store resume file: %w", err))
		}
		record.ObjectKey = key
	}

	return s.save(ctx, record, in.CorrelationID)
}

// CreateFromText 保存直接提交的简历文本并排队分析。
func (s *Service) CreateFromText(ctx context.Context, in TextInput) (*Response, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" || !utf8.ValidString(text) {
		return nil, errcode.Validation("validation failed", map[string]string{"text": "must be non-empty UTF-8 text"})
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = "resume.txt"
	}

	record := &database.Resume{
		UserID:        in.UserID,
		FileName:      fileName,
		ContentType:   "text/plain; charset=utf-8",
		ParsedContent: text,
		Status:        database.ResumeStatusRaw,
	}
	return s.save(ctx, record, in.CorrelationID)
}

// save 写入简历行；有文本时再交给队列或同步分析。
func (s *Service) save(ctx context.Context, record *database.Resume, correlationID string) (*Response, error) {
	if record.ParsedContent != "" {
		record.Status = database.ResumeStatusPending
	}
	if err := s.resumes.Create(ctx, record); err != nil {
		if record.ObjectKey != "" && s.storage != nil {
			_ = s.storage.DeleteObject(ctx, record.ObjectKey)
		}
		return nil, errcode.Unexpected(fmt.Errorf("create resume: %w", err))
	}

	logger := s.logger.With(
		slog.Uint64("resume_id", uint64(record.ID)),
		slog.Uint64("user_id", uint64(record.UserID)),
	)
	logger.Info("resume stored", slog.String("content_type", record.ContentType))

	if record.Status != database.ResumeStatusPending {
		resp := toResponse(*record)
		return &resp, nil
	}

	if s.queue == nil {
		analyzed, err := s.analyze(ctx, record)
		if err != nil {
			return nil, err
		}
		resp := toResponse(*analyzed)
		return &resp, nil
	}

	if err := s.queue.EnqueueAnalyze(ctx, record.ID, record.UserID, correlationID); err != nil {
		logger.Warn("enqueue resume analysis failed, keeping raw resume", slog.Any("error", err))
		record.Status = database.ResumeStatusRaw
		if err := s.resumes.UpdateAnalysis(ctx, record); err != nil {
			return nil, errcode.Unexpected(fmt.Errorf("mark resume raw: %w", err))
		}
	}
	resp := toResponse(*record)
	return &resp, nil
}

// Analyze 对已保存的简历执行 AI 分析。AI 失败时简历标记为 raw 并正常返回；
// 只有存储错误才会返回 error。
func (s *Service) Analyze(ctx context.Context, resumeID uint) (*database.Resume, error) {
	record, err := s.resumes.Get(ctx, resumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("resume not found")
		}
		return nil, errcode.Unexpected(fmt.Errorf("load resume: %w", err))
	}
	return s.analyze(ctx, record)
}

func (s *Service) analyze(ctx context.Context, record *database.Resume) (*database.Resume, error) {
	logger := s.logger.With(slog.Uint64("resume_id", uint64(record.ID)))

	analysis, err := s.requestAnalysis(ctx, record)
	if err != nil {
		logger.Warn("resume analysis unavailable, saving without enrichment", slog.Any("error", err))
		metrics.ObserveEnrichment("analyze", "fallback")
		record.Status = database.ResumeStatusRaw
	} else {
		metrics.ObserveEnrichment("analyze", "ok")
		applyAnalysis(record, analysis)
	}

	if err := s.resumes.UpdateAnalysis(ctx, record); err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("store resume analysis: %w", err))
	}
	logger.Info("resume analysis finished", slog.String("status", record.Status))
	return record, nil
}

func (s *Service) requestAnalysis(ctx context.Context, record *database.Resume) (*aiclient.Analysis, error) {
	if s.ai == nil {
		return nil, errors.New("ai service not configured")
	}
	if record.ParsedContent == "" {
		return nil, errors.New("resume has no extracted text")
	}
	analysis, err := s.ai.AnalyzeResume(ctx, aiclient.AnalyzeRequest{
		ResumeText: record.ParsedContent,
		FileName:   record.FileName,
		FileType:   "text",
	})
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, errors.New("empty analysis response")
	}
	return analysis, nil
}

func applyAnalysis(record *database.Resume, analysis *aiclient.Analysis) {
	record.Skills = datatypes.JSONSlice[string](cleanSkills(analysis.Skills))
	record.Experience = analysis.Experience
	record.Summary = analysis.Summary
	if raw, err := json.Marshal(analysis); err == nil {
		record.Analysis = datatypes.JSON(raw)
	}
	record.Status = database.ResumeStatusAnalyzed
}

// MatchResponse 是匹配结果；Enriched 为 false 表示 AI 未参与，Matches 为空。
type MatchResponse struct {
	ResumeID uint             `json:"resumeId"`
	Matches  []aiclient.Match `json:"matches"`
	Enriched bool             `json:"enriched"`
}

// Match 以调用方的简历匹配在招职位。limit <= 0 或超出上限时取配置值。
func (s *Service) Match(ctx context.Context, userID, resumeID uint, limit int) (*MatchResponse, error) {
	record, err := s.getOwned(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxMatches {
		limit = s.maxMatches
	}

	out := &MatchResponse{ResumeID: record.ID, Matches: []aiclient.Match{}}
	if s.ai == nil || s.jobs == nil {
		return out, nil
	}

	jobs, err := s.jobs.ListActive(ctx, matchCandidateJobs)
	if err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("list active jobs: %w", err))
	}
	if len(jobs) == 0 {
		out.Enriched = true
		return out, nil
	}

	result, err := s.ai.MatchJobs(ctx, aiclient.MatchRequest{
		ResumeText:    record.ParsedContent,
		ResumeSkills:  []string(record.Skills),
		AvailableJobs: toJobSummaries(jobs),
		MaxMatches:    limit,
	})
	if err != nil || result == nil {
		s.logger.Warn("job matching unavailable", slog.Uint64("resume_id", uint64(record.ID)), slog.Any("error", err))
		metrics.ObserveEnrichment("match", "fallback")
		return out, nil
	}
	metrics.ObserveEnrichment("match", "ok")

	out.Enriched = true
	for _, m := range result.Matches {
		if len(out.Matches) == limit {
			break
		}
		out.Matches = append(out.Matches, m)
	}
	return out, nil
}

// List 返回用户的全部简历。
func (s *Service) List(ctx context.Context, userID uint) ([]Response, error) {
	records, err := s.resumes.ListByUser(ctx, userID)
	if err != nil {
		return nil, errcode.Unexpected(fmt.Errorf("list resumes: %w", err))
	}
	out := make([]Response, 0, len(records))
	for _, r := range records {
		out = append(out, toResponse(r))
	}
	return out, nil
}

// Get 返回用户的一份简历。
func (s *Service) Get(ctx context.Context, userID, resumeID uint) (*Response, error) {
	record, err := s.getOwned(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*record)
	return &resp, nil
}

// Delete 删除用户的简历及其文件。文件删除失败只记录日志。
func (s *Service) Delete(ctx context.Context, userID, resumeID uint) error {
	deleted, err := s.resumes.DeleteOwned(ctx, resumeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.NotFound("resume not found")
		}
		return errcode.Unexpected(fmt.Errorf("delete resume: %w", err))
	}
	if deleted.ObjectKey != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, deleted.ObjectKey); err != nil {
			s.logger.Warn("delete resume object failed",
				slog.Uint64("resume_id", uint64(deleted.ID)),
				slog.String("object_key", deleted.ObjectKey),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// DownloadLink 返回原始文件的限时下载链接。
func (s *Service) DownloadLink(ctx context.Context, userID, resumeID uint) (string, error) {
	record, err := s.getOwned(ctx, userID, resumeID)
	if err != nil {
		return "", err
	}
	if record.ObjectKey == "" || s.storage == nil {
		return "", errcode.NotFound("resume file not stored")
	}
	url, err := s.storage.GeneratePresignedURL(ctx, record.ObjectKey, record.FileName, downloadLinkTTL)
	if err != nil {
		return "", errcode.Unexpected(fmt.Errorf("presign resume: %w", err))
	}
	return url, nil
}

func (s *Service) getOwned(ctx context.Context, userID, resumeID uint) (*database.Resume, error) {
	record, err := s.resumes.GetOwned(ctx, resumeID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("resume not found")
		}
		return nil, errcode.Unexpected(fmt.Errorf("get resume: %w", err))
	}
	return record, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func cleanSkills(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func toJobSummaries(jobs []database.Job) []aiclient.JobSummary {
	out := make([]aiclient.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, aiclient.JobSummary{
			ID:              j.ID,
			Title:           j.Title,
			Description:     j.Description,
			Company:         j.Company,
			Location:        j.Location,
			Requirements:    j.Requirements,
			Skills:          j.SkillNames(),
			JobType:         string(j.JobType),
			ExperienceLevel: string(j.ExperienceLevel),
			SalaryMin:       j.SalaryMin,
			SalaryMax:       j.SalaryMax,
		})
	}
	return out
}
