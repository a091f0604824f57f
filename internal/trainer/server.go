package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fa-training/fithub/internal/notification"
	"github.com/fa-training/fithub/internal/user"
	"github.com/fa-training/fithub/pkg/event"
	"github.com/fa-training/fithub/pkg/middleware"
)

// Notifier は審査結果を申請者に配信するインターフェース。
// notificationパッケージのServiceが実装する。
type Notifier interface {
	// Notify は通知を作成して配信する。
	Notify(ctx context.Context, in notification.NotifyInput) (*notification.Notification, error)
}

// Users は申請者のロール昇格とメールアドレス解決に使うインターフェース。
// userパッケージのStoreが実装する。
type Users interface {
	// GetByID は指定IDのユーザーを返す。
	GetByID(ctx context.Context, id string) (*user.User, error)
	// UpdateRole は指定ユーザーのロールを変更する。
	UpdateRole(ctx context.Context, id, role string) error
}

// Mailer は審査結果のメール送信に使うインターフェース。
type Mailer interface {
	// Send はメールを送信する。
	Send(to, subject, body string) error
}

// Server はトレーナー申請APIのHTTPハンドラ群。
type Server struct {
	store    *Store
	users    Users
	notifier Notifier
	mailer   Mailer
}

// NewServer は新しいトレーナー申請APIサーバーを生成する。
func NewServer(store *Store, users Users, notifier Notifier, mailer Mailer) *Server {
	return &Server{
		store:    store,
		users:    users,
		notifier: notifier,
		mailer:   mailer,
	}
}

// RegisterRoutes はトレーナー申請APIのルートを登録する。
// 審査エンドポイントはADMINロールが必要。
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	applications := api.Group("/trainer-applications")
	{
		applications.POST("", s.handleSubmit())
		applications.GET("/mine", s.handleListMine())
	}

	admin := api.Group("/admin/trainer-applications")
	admin.Use(middleware.RequireRole(user.RoleAdmin))
	{
		admin.GET("", s.handleAdminList())
		admin.PUT("/:id/review", s.handleReview())
	}
}

// submitRequest はトレーナー申請リクエストのボディ。
type submitRequest struct {
	Specialty      string  `json:"specialty" binding:"required"`
	Biography      string  `json:"biography" binding:"required"`
	CertificateURL *string `json:"certificate_url"`
}

// handleSubmit は新しいトレーナー申請を受け付けるハンドラを返す。
// 同一ユーザーの未審査申請は1件までに制限する。
func (s *Server) handleSubmit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が不正です"})
			return
		}

		pending, err := s.store.HasPending(c.Request.Context(), userID)
		if err != nil {
			log.Printf("未審査申請の確認に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "申請の受付に失敗しました"})
			return
		}
		if pending {
			c.JSON(http.StatusConflict, gin.H{"error": "審査中の申請が既に存在します"})
			return
		}

		a := &Application{
			ID:             uuid.New().String(),
			UserID:         userID,
			Specialty:      req.Specialty,
			Biography:      req.Biography,
			CertificateURL: req.CertificateURL,
			Status:         StatusPending,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.store.Create(c.Request.Context(), a); err != nil {
			log.Printf("申請の作成に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "申請の受付に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, toApplicationResponse(a))
	}
}

// handleListMine は認証ユーザー自身の申請一覧を返すハンドラを返す。
func (s *Server) handleListMine() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		applications, err := s.store.ListByUser(c.Request.Context(), userID)
		if err != nil {
			log.Printf("申請一覧の取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "申請一覧の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"applications": toApplicationResponses(applications)})
	}
}

// handleAdminList は審査用の申請一覧を返すハンドラを返す。
// statusクエリパラメータで絞り込める（既定は未審査のみ）。
func (s *Server) handleAdminList() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.DefaultQuery("status", StatusPending)
		if status != StatusPending && status != StatusApproved && status != StatusRejected {
			c.JSON(http.StatusBadRequest, gin.H{"error": "不正な状態です"})
			return
		}

		applications, err := s.store.ListByStatus(c.Request.Context(), status)
		if err != nil {
			log.Printf("申請一覧の取得に失敗: status=%s: %v", status, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "申請一覧の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"applications": toApplicationResponses(applications)})
	}
}

// reviewRequest は審査リクエストのボディ。
type reviewRequest struct {
	Approve bool    `json:"approve"`
	Note    *string `json:"note"`
}

// handleReview はトレーナー申請の審査結果を記録するハンドラを返す。
// 承認時は申請者のロールをTRAINERに昇格させる。審査結果はリアルタイム通知と
// メールで申請者に伝えられる（いずれもベストエフォート）。
func (s *Server) handleReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewerID := middleware.GetUserID(c)
		applicationID := c.Param("id")
		ctx := c.Request.Context()

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が不正です"})
			return
		}

		a, err := s.store.GetByID(ctx, applicationID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "申請が見つかりません"})
			return
		}
		if err != nil {
			log.Printf("申請の取得に失敗: id=%s: %v", applicationID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査に失敗しました"})
			return
		}

		status := StatusRejected
		if req.Approve {
			status = StatusApproved
		}

		reviewed, err := s.store.Review(ctx, applicationID, status, reviewerID, req.Note)
		if err != nil {
			log.Printf("審査結果の記録に失敗: id=%s: %v", applicationID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "審査に失敗しました"})
			return
		}
		if !reviewed {
			c.JSON(http.StatusConflict, gin.H{"error": "この申請は既に審査済みです"})
			return
		}

		if req.Approve {
			if err := s.users.UpdateRole(ctx, a.UserID, user.RoleTrainer); err != nil {
				log.Printf("ロールの昇格に失敗: user=%s: %v", a.UserID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ロールの昇格に失敗しました"})
				return
			}
		}

		s.deliverResult(ctx, a, reviewerID, req.Approve)

		c.JSON(http.StatusOK, gin.H{
			"message": "審査結果を記録しました",
			"status":  status,
		})
	}
}

// deliverResult は審査結果をリアルタイム通知とメールで申請者に伝える。
// どちらもベストエフォートであり、失敗しても審査結果自体には影響しない。
func (s *Server) deliverResult(ctx context.Context, a *Application, reviewerID string, approved bool) {
	kind := event.KindTrainerRejected
	content := "トレーナー申請は承認されませんでした。詳細は申請履歴をご確認ください。"
	subject := "トレーナー申請の審査結果について"
	if approved {
		kind = event.KindTrainerApproved
		content = "おめでとうございます！トレーナー申請が承認されました。"
	}

	refType := "trainer_application"
	if _, err := s.notifier.Notify(ctx, notification.NotifyInput{
		Recipient:     a.UserID,
		Kind:          kind,
		Content:       content,
		SenderID:      &reviewerID,
		ReferenceID:   &a.ID,
		ReferenceType: &refType,
	}); err != nil {
		log.Printf("審査結果の通知に失敗: user=%s application=%s: %v", a.UserID, a.ID, err)
	}

	applicant, err := s.users.GetByID(ctx, a.UserID)
	if err != nil {
		log.Printf("申請者のメールアドレス解決に失敗: user=%s: %v", a.UserID, err)
		return
	}
	body := fmt.Sprintf("%s様\n\n%s\n", applicant.DisplayName, content)
	if err := s.mailer.Send(applicant.Email, subject, body); err != nil {
		log.Printf("審査結果のメール送信に失敗: user=%s: %v", a.UserID, err)
	}
}

// toApplicationResponse は申請レコードをAPIレスポンス形式に変換する。
func toApplicationResponse(a *Application) gin.H {
	resp := gin.H{
		"id":         a.ID,
		"user_id":    a.UserID,
		"specialty":  a.Specialty,
		"biography":  a.Biography,
		"status":     a.Status,
		"created_at": a.CreatedAt.Format(time.RFC3339),
	}
	if a.CertificateURL != nil {
		resp["certificate_url"] = *a.CertificateURL
	}
	if a.ReviewedBy != nil {
		resp["reviewed_by"] = *a.ReviewedBy
	}
	if a.ReviewNote != nil {
		resp["review_note"] = *a.ReviewNote
	}
	if a.ReviewedAt != nil {
		resp["reviewed_at"] = a.ReviewedAt.Format(time.RFC3339)
	}
	return resp
}

// toApplicationResponses は申請レコードのスライスをAPIレスポンス形式に変換する。
func toApplicationResponses(applications []Application) []gin.H {
	responses := make([]gin.H, 0, len(applications))
	for i := range applications {
		responses = append(responses, toApplicationResponse(&applications[i]))
	}
	return responses
}
