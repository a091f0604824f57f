package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter はテスト用のファイルAPIルーターを構築する。
// バリデーションで弾かれる経路のみを検証するためストアには到達しない。
func setupTestRouter() *gin.Engine {
	server := NewServer(nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	server.RegisterRoutes(api)
	return router
}

// doMultipartRequest はテスト用のmultipartアップロードリクエストを実行する。
func doMultipartRequest(t *testing.T, router *gin.Engine, userID, fieldName, fileName string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("multipartの作成に失敗: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("multipartへの書き込みに失敗: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHandleUploadValidation はアップロードの入力バリデーションのテスト。
func TestHandleUploadValidation(t *testing.T) {
	t.Parallel()

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		router := setupTestRouter()

		w := doMultipartRequest(t, router, "", "file", "avatar.png", []byte("image"))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("fileフィールドがない場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		router := setupTestRouter()

		w := doMultipartRequest(t, router, "user-1", "wrong-field", "avatar.png", []byte("image"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("許可されていない拡張子はBadRequest", func(t *testing.T) {
		t.Parallel()
		router := setupTestRouter()

		w := doMultipartRequest(t, router, "user-1", "file", "malware.exe", []byte("binary"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleDeleteOwnership は削除時のキー所有チェックのテスト。
func TestHandleDeleteOwnership(t *testing.T) {
	t.Parallel()

	t.Run("他ユーザーのプレフィックスのキーはForbidden", func(t *testing.T) {
		t.Parallel()
		router := setupTestRouter()

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/files/user-2/some-file.png", nil)
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("ユーザーIDが未設定の場合はUnauthorized", func(t *testing.T) {
		t.Parallel()
		router := setupTestRouter()

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/files/user-1/some-file.png", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
