package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestGenerateJWTAndAuth はトークン生成と検証ミドルウェアの往復テスト。
func TestGenerateJWTAndAuth(t *testing.T) {
	t.Parallel()

	secret := "test-secret"

	router := gin.New()
	router.GET("/protected", JWTAuth(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c),
			"role":    GetRole(c),
		})
	})

	t.Run("有効なトークンでクレームが伝播する", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT(secret, "user-1", "taro@example.com", "MEMBER")
		if err != nil {
			t.Fatalf("JWT生成に失敗: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		body := w.Body.String()
		if !strings.Contains(body, "user-1") || !strings.Contains(body, "MEMBER") {
			t.Errorf("クレームが伝播していません: %s", body)
		}
	})

	t.Run("ヘッダーなしはUnauthorized", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("Bearer形式でない場合はUnauthorized", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Basic abc123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("別の鍵で署名されたトークンはUnauthorized", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateJWT("another-secret", "user-1", "taro@example.com", "MEMBER")
		if err != nil {
			t.Fatalf("JWT生成に失敗: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

// TestRequireRole はロール制限ミドルウェアのテスト。
func TestRequireRole(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.GET("/admin",
		func(c *gin.Context) {
			if role := c.GetHeader("X-Test-Role"); role != "" {
				c.Set("role", role)
			}
			c.Next()
		},
		RequireRole("ADMIN"),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		})

	t.Run("指定ロールを持つ場合は通過する", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Test-Role", "ADMIN")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("別のロールはForbidden", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Test-Role", "MEMBER")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("ロール未設定もForbidden", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}
