package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fa-training/fithub/pkg/event"
	"github.com/fa-training/fithub/pkg/middleware"
)

// defaultStreamTimeout はSSE接続の無通信タイムアウトの既定値。
const defaultStreamTimeout = 30 * time.Minute

// Server は通知APIのHTTPハンドラ群。
type Server struct {
	service       *Service
	registry      *ConnectionRegistry
	streamTimeout time.Duration
}

// NewServer は新しい通知APIサーバーを生成する。
func NewServer(service *Service, registry *ConnectionRegistry) *Server {
	return &Server{
		service:       service,
		registry:      registry,
		streamTimeout: defaultStreamTimeout,
	}
}

// RegisterRoutes は通知APIのルートを登録する。
// すべてのルートは認証済みグループ配下に置かれる想定。
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", s.handleList())
		notifications.GET("/unread", s.handleListUnread())
		notifications.GET("/unread/count", s.handleUnreadCount())
		notifications.PUT("/:id/read", s.handleMarkRead())
		notifications.PUT("/read-all", s.handleMarkAllRead())
		notifications.POST("/test", s.handleSendTest())
		notifications.GET("/stream", s.handleStream())
		notifications.GET("/connections/status", s.handleConnectionStatus())
		notifications.POST("/disconnect", s.handleDisconnect())
	}
}

// handleList は認証ユーザーの全通知を新しい順で返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		notifications, err := s.service.ListAll(c.Request.Context(), userID)
		if err != nil {
			log.Printf("通知一覧の取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

// handleListUnread は認証ユーザーの未読通知と未読数をまとめて返す。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		ctx := c.Request.Context()

		notifications, err := s.service.ListUnread(ctx, userID)
		if err != nil {
			log.Printf("未読通知一覧の取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			return
		}
		count, err := s.service.UnreadCount(ctx, userID)
		if err != nil {
			log.Printf("未読通知数の取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知数の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notifications": notifications,
			"count":         count,
		})
	}
}

// handleUnreadCount は認証ユーザーの未読通知数を返す。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		count, err := s.service.UnreadCount(c.Request.Context(), userID)
		if err != nil {
			log.Printf("未読通知数の取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知数の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// handleMarkRead は認証ユーザーが所有する通知を既読にする。
// 対象が見つからなくても成功として扱う（何もしない操作）。
func (s *Server) handleMarkRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		notificationID := c.Param("id")

		if err := s.service.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
			log.Printf("通知の既読化に失敗: id=%s user=%s: %v", notificationID, userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読化に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllRead は認証ユーザーの全未読通知を既読にする。
func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		if err := s.service.MarkAllRead(c.Request.Context(), userID); err != nil {
			log.Printf("全通知の既読化に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読化に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "すべての通知を既読にしました"})
	}
}

// sendTestRequest はテスト通知リクエストのボディ。
type sendTestRequest struct {
	Message string `json:"message"`
}

// handleSendTest は認証ユーザー自身に宛てたテスト通知を作成して配信する。
// 配信パイプライン全体（永続化→ファンアウト）の疎通確認に使う。
func (s *Server) handleSendTest() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		var req sendTestRequest
		// ボディは省略可能
		_ = c.ShouldBindJSON(&req)
		if req.Message == "" {
			req.Message = "これはテスト通知です"
		}

		n, err := s.service.Notify(c.Request.Context(), NotifyInput{
			Recipient: userID,
			Kind:      event.KindTest,
			Content:   req.Message,
		})
		if err != nil {
			log.Printf("テスト通知の送信に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "テスト通知の送信に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "テスト通知を送信しました",
			"id":      n.ID,
		})
	}
}

// handleConnectionStatus は接続レジストリの診断情報を返す。
func (s *Server) handleConnectionStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"totalActiveConnections":  s.registry.TotalCount(),
			"userHasActiveConnection": s.registry.HasActive(userID),
		})
	}
}

// handleDisconnect は認証ユーザーの全ライブ接続を閉じる（ログアウト時用）。
func (s *Server) handleDisconnect() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}
		s.registry.CloseAll(userID)
		c.JSON(http.StatusOK, gin.H{"message": "すべての接続を切断しました"})
	}
}
