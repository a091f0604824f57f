package user

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ユーザーテーブルのスキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーの一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- ログイン用メールアドレス（一意）
    email TEXT NOT NULL UNIQUE,
    -- bcryptでハッシュ化されたパスワード
    password_hash TEXT NOT NULL,
    -- 表示名
    display_name TEXT NOT NULL,
    -- アバター画像のURL（未設定の場合は空文字列）
    avatar_url TEXT NOT NULL DEFAULT '',
    -- ロール（MEMBER / TRAINER / ADMIN）
    role TEXT NOT NULL DEFAULT 'MEMBER',
    -- 作成日時
    created_at DATETIME NOT NULL,
    -- 更新日時
    updated_at DATETIME NOT NULL
);

-- メールアドレスでのログイン検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

// initSchema はSQLiteデータベースにユーザーテーブルのスキーマを適用する。
func initSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
