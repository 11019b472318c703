package resume

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"resumeMatcher/internal/tasks"
)

// AsynqEnqueuer 把分析任务投递到 asynq。
type AsynqEnqueuer struct {
	client *asynq.Client
}

// NewAsynqEnqueuer 构造 AsynqEnqueuer。
func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

// EnqueueAnalyze 投递 resume:analyze 任务。
func (q *AsynqEnqueuer) EnqueueAnalyze(ctx context.Context, resumeID, userID uint, correlationID string) error {
	task, err := tasks.NewResumeAnalyzeTask(resumeID, userID, correlationID)
	if err != nil {
		return fmt.Errorf("build analyze task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)); err != nil {
		return fmt.Errorf("enqueue analyze task: %w", err)
	}
	return nil
}
