package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"resumeMatcher/internal/api/middleware"
	"resumeMatcher/internal/worker"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// WsHandler 把简历分析通知转发给已认证的 WebSocket 客户端。
type WsHandler struct {
	notifications  worker.Subscriber
	tokens         middleware.TokenValidator
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
	authTimeout    time.Duration
	pingInterval   time.Duration
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源请求。
func NewWsHandler(notifications worker.Subscriber, tokens middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WsHandler{
		notifications:  notifications,
		tokens:         tokens,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		authTimeout:    wsAuthTimeout,
		pingInterval:   wsPingInterval,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，要求客户端在 authTimeout 内发送 {"type":"auth","token":...}，
// 之后转发该用户的通知。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Info("websocket authentication failed", slog.Any("error", err))
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 读循环只用于感知客户端断开。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.forward(ctx, conn, userID, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

func (h *WsHandler) authenticate(conn *websocket.Conn) (uint, error) {
	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, message, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read auth message: %w", err)
	}
	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		return 0, errors.New("auth message required")
	}
	claims, err := h.tokens.ValidateToken(msg.Token)
	if err != nil {
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if claims.UserID == 0 {
		return 0, errors.New("token carries no user id")
	}
	return claims.UserID, nil
}

func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	messages, unsubscribe := h.notifications.Subscribe(ctx, userID)
	defer unsubscribe()

	log.Info("subscribed to notifications", slog.String("channel", worker.NotifyChannel(userID)))

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-messages:
			if !ok {
				return errors.New("notification channel closed")
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
