package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
)

func TestResumeAnalyzeTask(t *testing.T) {
	task, err := NewResumeAnalyzeTask(3, 9, "cid-1")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TypeResumeAnalyze {
		t.Fatalf("type = %q", task.Type())
	}
	payload, err := ParseResumeAnalyzePayload(task)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.ResumeID != 3 || payload.UserID != 9 || payload.CorrelationID != "cid-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestParseRejectsMissingResumeID(t *testing.T) {
	if _, err := ParseResumeAnalyzePayload(asynq.NewTask(TypeResumeAnalyze, []byte(`{"user_id":1}`))); err == nil {
		t.Fatal("expected error for missing resume id")
	}
	if _, err := ParseResumeAnalyzePayload(asynq.NewTask(TypeResumeAnalyze, []byte(`not json`))); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
