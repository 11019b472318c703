package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"resumeMatcher/internal/database"
	"resumeMatcher/internal/errcode"
	"resumeMatcher/internal/tasks"
)

// Analyzer 对已保存的简历执行分析。
type Analyzer interface {
	Analyze(ctx context.Context, resumeID uint) (*database.Resume, error)
}

// ResumeAnalyzeHandler 消费 resume:analyze 任务，并把结果推送给简历所有者。
type ResumeAnalyzeHandler struct {
	analyzer  Analyzer
	publisher Publisher
	logger    *slog.Logger
}

// NewResumeAnalyzeHandler 创建任务处理器，publisher 可为空。
func NewResumeAnalyzeHandler(analyzer Analyzer, publisher Publisher, logger *slog.Logger) *ResumeAnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeAnalyzeHandler{analyzer: analyzer, publisher: publisher, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *ResumeAnalyzeHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseResumeAnalyzePayload(t)
	if err != nil {
		h.logger.Error("invalid analyze payload", slog.Any("error", err))
		return errors.Join(err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("resume analysis task started")

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		h.notify(ctx, log, payload, ResumeAnalysisNotifyMessage{
			Status:       "error",
			ErrorCode:    errcode.SystemError,
			ErrorMessage: strings.TrimSpace(retErr.Error()),
		})
	}()

	resume, err := h.analyzer.Analyze(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("resume analysis failed", slog.Any("error", err))
		return err
	}

	msg := ResumeAnalysisNotifyMessage{Status: resume.Status, ErrorCode: errcode.OK}
	if resume.Status != database.ResumeStatusAnalyzed {
		msg.ErrorCode = errcode.EnrichmentSkipped
		msg.ErrorMessage = "AI 分析暂不可用，简历已按原文保存"
	}
	h.notify(ctx, log, payload, msg)

	log.Info("resume analysis task completed", slog.String("status", resume.Status))
	return nil
}

func (h *ResumeAnalyzeHandler) notify(ctx context.Context, log *slog.Logger, payload tasks.ResumeAnalyzePayload, msg ResumeAnalysisNotifyMessage) {
	if h.publisher == nil || payload.UserID == 0 {
		return
	}
	msg.ResumeID = payload.ResumeID
	msg.CorrelationID = payload.CorrelationID
	if err := h.publisher.Publish(ctx, payload.UserID, msg); err != nil {
		log.Error("publish analysis notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
