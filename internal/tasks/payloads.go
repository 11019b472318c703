package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeAnalyze = "resume:analyze"
)

// ResumeAnalyzePayload 描述分析一份简历所需的最小信息。
type ResumeAnalyzePayload struct {
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeAnalyzeTask 构造简历分析任务。
func NewResumeAnalyzeTask(resumeID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeAnalyzePayload{
		ResumeID:      resumeID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeAnalyze, payload), nil
}

// ParseResumeAnalyzePayload 解析任务负载。
func ParseResumeAnalyzePayload(task *asynq.Task) (ResumeAnalyzePayload, error) {
	var payload ResumeAnalyzePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	if payload.ResumeID == 0 {
		return payload, fmt.Errorf("%s payload missing resume_id", task.Type())
	}
	return payload, nil
}
