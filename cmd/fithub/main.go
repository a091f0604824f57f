// Package main はFitHub APIサーバーのエントリーポイント。
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "modernc.org/sqlite"

	"github.com/fa-training/fithub/internal/notification"
	"github.com/fa-training/fithub/internal/trainer"
	"github.com/fa-training/fithub/internal/upload"
	"github.com/fa-training/fithub/internal/user"
	"github.com/fa-training/fithub/pkg/mailer"
	"github.com/fa-training/fithub/pkg/middleware"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("FitHub APIサーバーの起動に失敗: %v", err)
	}
}

// run はサーバーの組み立てと起動を行う。
func run() error {
	port := getEnvOr("PORT", "8080")
	dbPath := getEnvOr("FITHUB_DB", "/data/fithub.db")
	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")
	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	db, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return fmt.Errorf("データベース接続に失敗: %w", err)
	}
	defer db.Close()

	// ストアとスキーマの初期化
	userStore := user.NewStore(db)
	if err := userStore.Init(); err != nil {
		return fmt.Errorf("ユーザースキーマの初期化に失敗: %w", err)
	}
	notificationStore := notification.NewStore(db)
	if err := notificationStore.Init(); err != nil {
		return fmt.Errorf("通知スキーマの初期化に失敗: %w", err)
	}
	trainerStore := trainer.NewStore(db)
	if err := trainerStore.Init(); err != nil {
		return fmt.Errorf("トレーナー申請スキーマの初期化に失敗: %w", err)
	}

	// 通知サブシステムの組み立て
	metrics := notification.NewMetrics(prometheus.DefaultRegisterer)
	registry := notification.NewConnectionRegistry(metrics)

	userServer := user.NewServer(userStore, jwtSecret)
	notificationService := notification.NewService(notificationStore, registry, userServer, metrics)
	notificationServer := notification.NewServer(notificationService, registry)

	// 保持期限を過ぎた通知の日次削除
	retentionDays, err := strconv.Atoi(getEnvOr("NOTIFICATION_RETENTION_DAYS", "90"))
	if err != nil {
		return fmt.Errorf("NOTIFICATION_RETENTION_DAYSの値が不正です: %w", err)
	}
	cleaner := notification.NewCleaner(notificationStore, retentionDays)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("保持期限ジョブの開始に失敗: %w", err)
	}
	defer cleaner.Stop()

	// メール送信（SMTP_HOST未設定の場合はログ出力のみ）
	mail := mailer.New(
		os.Getenv("SMTP_HOST"),
		getEnvOr("SMTP_PORT", "587"),
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
		getEnvOr("SMTP_FROM", "noreply@fithub.example.com"),
	)

	trainerServer := trainer.NewServer(trainerStore, userStore, notificationService, mail)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{frontendURL}))

	// 認証不要エンドポイント
	auth := router.Group("/auth")
	userServer.RegisterAuthRoutes(auth)

	// 認証必須エンドポイント
	api := router.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		userServer.RegisterRoutes(api)
		notificationServer.RegisterRoutes(api)
		trainerServer.RegisterRoutes(api)
	}

	// オブジェクトストレージ（R2_BUCKET未設定の場合はアップロードAPIを無効化）
	if bucket := os.Getenv("R2_BUCKET"); bucket != "" {
		uploadStore, err := upload.NewStore(context.Background(), upload.StoreConfig{
			Bucket:          bucket,
			Region:          getEnvOr("R2_REGION", "auto"),
			Endpoint:        os.Getenv("R2_ENDPOINT"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_URL"),
			Prefix:          getEnvOr("R2_PREFIX", "uploads"),
		})
		if err != nil {
			return fmt.Errorf("オブジェクトストレージの初期化に失敗: %w", err)
		}
		upload.NewServer(uploadStore).RegisterRoutes(api)
	} else {
		log.Printf("R2_BUCKET未設定のためアップロードAPIを無効化します")
	}

	// メトリクスとヘルスチェック
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fithub"})
	})

	log.Printf("FitHub APIサーバーを起動します: port=%s", port)
	return router.Run(fmt.Sprintf(":%s", port))
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
