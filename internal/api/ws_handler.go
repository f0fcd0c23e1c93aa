package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeingest/internal/auth"
	"resumeingest/internal/worker"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsWriteTimeout = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 负责 WebSocket 鉴权与重解析结果的转发。
// 浏览器在连接建立后发送一条 auth 消息，通过校验后
// 即可收到该用户 Redis 通知频道上的所有消息。
type WsHandler struct {
	redisClient *redis.Client
	authService *auth.AuthService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient *redis.Client, authService *auth.AuthService, logger *slog.Logger) *WsHandler {
	h := &WsHandler{
		redisClient: redisClient,
		authService: authService,
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
	return h
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接、完成鉴权并启动转发循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, ok := h.awaitAuth(conn, log)
	if !ok {
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))

	sub := h.redisClient.Subscribe(ctx, worker.UserNotifyChannel(userID))
	defer sub.Close()

	// 读循环只用于感知客户端断开。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case msg, open := <-ch:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Info("write notify message failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (h *WsHandler) awaitAuth(conn *websocket.Conn, log *slog.Logger) (uint, bool) {
	conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return 0, false
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "auth" {
		log.Info("websocket auth message malformed")
		return 0, false
	}

	claims, err := h.authService.ValidateToken(msg.Token)
	if err != nil || claims.TokenType != "access" {
		log.Info("websocket auth rejected")
		return 0, false
	}

	return claims.UserID, true
}
