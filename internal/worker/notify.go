package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotifyChannel 返回用户通知频道名，API 进程的 WebSocket 端点订阅同一频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
type ResumeAnalysisNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
}

// Publisher 发布通知消息。
type Publisher interface {
	Publish(ctx context.Context, userID uint, msg ResumeAnalysisNotifyMessage) error
}

// RedisPublisher 通过 Redis Pub/Sub 发布通知。
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisPublisher 构造 RedisPublisher。
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish 实现 Publisher。
func (p *RedisPublisher) Publish(ctx context.Context, userID uint, msg ResumeAnalysisNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(userID)
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// Subscriber 订阅某个用户的通知。返回的关闭函数用于取消订阅，之后消息通道会被关闭。
type Subscriber interface {
	Subscribe(ctx context.Context, userID uint) (<-chan string, func() error)
}

// RedisSubscriber 通过 Redis Pub/Sub 订阅 NotifyChannel。
type RedisSubscriber struct {
	client redis.UniversalClient
}

// NewRedisSubscriber 构造 RedisSubscriber。
func NewRedisSubscriber(client redis.UniversalClient) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

// Subscribe 实现 Subscriber。
func (s *RedisSubscriber) Subscribe(ctx context.Context, userID uint) (<-chan string, func() error) {
	pubsub := s.client.Subscribe(ctx, NotifyChannel(userID))
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}
