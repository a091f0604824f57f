package user

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fa-training/fithub/pkg/middleware"
)

// Server はユーザーAPIのHTTPハンドラ群。
type Server struct {
	store     *Store
	jwtSecret string
}

// NewServer は新しいユーザーAPIサーバーを生成する。
func NewServer(store *Store, jwtSecret string) *Server {
	return &Server{
		store:     store,
		jwtSecret: jwtSecret,
	}
}

// RegisterAuthRoutes は認証不要のルート（登録・ログイン）を登録する。
func (s *Server) RegisterAuthRoutes(auth *gin.RouterGroup) {
	auth.POST("/register", s.handleRegister())
	auth.POST("/login", s.handleLogin())
}

// RegisterRoutes は認証必須のルートを登録する。
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/me", s.handleGetCurrentUser())
	api.PUT("/me", s.handleUpdateProfile())
}

// DisplayInfo は指定ユーザーの表示名とアバターURLを返す。
// 通知サブシステムのディレクトリとして使用される。
func (s *Server) DisplayInfo(ctx context.Context, userID string) (string, string, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return u.DisplayName, u.AvatarURL, nil
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// handleRegister は新規ユーザーを登録してJWTを発行するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が不正です"})
			return
		}

		if _, err := s.store.GetByEmail(c.Request.Context(), req.Email); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "このメールアドレスは既に登録されています"})
			return
		} else if !errors.Is(err, ErrNotFound) {
			log.Printf("ユーザー登録時の重複確認に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("パスワードのハッシュ化に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			return
		}

		now := time.Now().UTC()
		u := &User{
			ID:           uuid.New().String(),
			Email:        req.Email,
			PasswordHash: string(hash),
			DisplayName:  req.DisplayName,
			Role:         RoleMember,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.store.Create(c.Request.Context(), u); err != nil {
			log.Printf("ユーザーの作成に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー登録に失敗しました"})
			return
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, u.ID, u.Email, u.Role)
		if err != nil {
			log.Printf("JWT生成エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": token,
			"user":  toUserResponse(u),
		})
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// handleLogin はメール・パスワードを検証してJWTを発行するハンドラを返す。
// 未登録メールとパスワード不一致は同じエラーメッセージで応答する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が不正です"})
			return
		}

		u, err := s.store.GetByEmail(c.Request.Context(), req.Email)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "メールアドレスまたはパスワードが正しくありません"})
			return
		}
		if err != nil {
			log.Printf("ログイン時のユーザー取得に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ログインに失敗しました"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "メールアドレスまたはパスワードが正しくありません"})
			return
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, u.ID, u.Email, u.Role)
		if err != nil {
			log.Printf("JWT生成エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "トークン生成に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  toUserResponse(u),
		})
	}
}

// handleGetCurrentUser は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		u, err := s.store.GetByID(c.Request.Context(), userID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}
		if err != nil {
			log.Printf("ユーザーの取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	AvatarURL   string `json:"avatar_url"`
}

// handleUpdateProfile は認証済みユーザーのプロフィールを更新するハンドラを返す。
func (s *Server) handleUpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの形式が不正です"})
			return
		}

		if err := s.store.UpdateProfile(c.Request.Context(), userID, req.DisplayName, req.AvatarURL); err != nil {
			log.Printf("プロフィールの更新に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールの更新に失敗しました"})
			return
		}

		u, err := s.store.GetByID(c.Request.Context(), userID)
		if err != nil {
			log.Printf("更新後のユーザー取得に失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールの更新に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, toUserResponse(u))
	}
}

// toUserResponse はユーザーレコードをAPIレスポンス形式に変換する。
// パスワードハッシュは含めない。
func toUserResponse(u *User) gin.H {
	return gin.H{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"avatar_url":   u.AvatarURL,
		"role":         u.Role,
		"created_at":   u.CreatedAt.Format(time.RFC3339),
	}
}
