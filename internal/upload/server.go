package upload

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fa-training/fithub/pkg/middleware"
)

// maxUploadSize はアップロードファイルの上限サイズ（10MB）。
const maxUploadSize = 10 << 20

// allowedExtensions はアップロードを許可する拡張子。
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

// Server はファイルAPIのHTTPハンドラ群。
type Server struct {
	store *Store
}

// NewServer は新しいファイルAPIサーバーを生成する。
func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// RegisterRoutes はファイルAPIのルートを登録する。
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	files := api.Group("/files")
	{
		files.POST("", s.handleUpload())
		files.GET("/*key", s.handleDownload())
		files.DELETE("/*key", s.handleDelete())
	}
}

// handleUpload はmultipartで受け取ったファイルをオブジェクトストレージに
// アップロードし、キーと公開URLを返すハンドラを返す。
// キーは認証ユーザーのIDをプレフィックスとして採番される。
func (s *Server) handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileフィールドが必要です"})
			return
		}
		if fileHeader.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "ファイルサイズが上限を超えています"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !allowedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "許可されていないファイル形式です"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("アップロードファイルのオープンに失敗: user=%s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "アップロードに失敗しました"})
			return
		}
		defer file.Close()

		key := fmt.Sprintf("%s/%s%s", userID, uuid.New().String(), ext)
		contentType := fileHeader.Header.Get("Content-Type")

		url, err := s.store.Put(c.Request.Context(), key, contentType, file)
		if err != nil {
			log.Printf("オブジェクトのアップロードに失敗: user=%s key=%s: %v", userID, key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "アップロードに失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"key": key,
			"url": url,
		})
	}
}

// handleDownload はオブジェクトの内容をそのまま返すハンドラを返す。
func (s *Server) handleDownload() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "キーが必要です"})
			return
		}

		exists, err := s.store.Exists(c.Request.Context(), key)
		if err != nil {
			log.Printf("オブジェクトの確認に失敗: key=%s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの取得に失敗しました"})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "ファイルが見つかりません"})
			return
		}

		body, contentType, err := s.store.Get(c.Request.Context(), key)
		if err != nil {
			log.Printf("オブジェクトの取得に失敗: key=%s: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの取得に失敗しました"})
			return
		}
		defer body.Close()

		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, body); err != nil {
			log.Printf("ファイルの書き出しに失敗: key=%s: %v", key, err)
		}
	}
}

// handleDelete は自分がアップロードしたオブジェクトを削除するハンドラを返す。
// キーのプレフィックスが自分のユーザーIDでなければ削除できない。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "認証が必要です"})
			return
		}

		key := strings.TrimPrefix(c.Param("key"), "/")
		if !strings.HasPrefix(key, userID+"/") {
			c.JSON(http.StatusForbidden, gin.H{"error": "このファイルを削除する権限がありません"})
			return
		}

		if err := s.store.Delete(c.Request.Context(), key); err != nil {
			log.Printf("オブジェクトの削除に失敗: user=%s key=%s: %v", userID, key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ファイルの削除に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ファイルを削除しました"})
	}
}
