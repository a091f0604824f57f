package notification

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// 通知テーブルのスキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    -- 通知の一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 通知先のユーザーID
    user_id TEXT NOT NULL,
    -- 発生元ユーザーのID（システム通知の場合はNULL）。弱参照であり外部キー制約は張らない
    sender_id TEXT,
    -- 通知の種類（閉じた列挙値）
    kind TEXT NOT NULL,
    -- 参照先ドメインオブジェクトのID（任意）
    reference_id TEXT,
    -- 参照先の種類（任意。例: "post"）
    reference_type TEXT,
    -- 表示用の本文
    content TEXT NOT NULL,
    -- 既読状態（false→trueの一方向のみ遷移する）
    is_read INTEGER NOT NULL DEFAULT 0,
    -- 作成日時。新しい順の並び替えと保持期限の判定に使用する
    created_at DATETIME NOT NULL
);

-- ユーザーIDでの検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_user_id
    ON notifications(user_id);

-- 未読通知の検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(user_id, is_read) WHERE is_read = 0;

-- 保持期限での削除を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_created_at
    ON notifications(created_at);
`

// initSchema はSQLiteデータベースに通知テーブルのスキーマを適用する。
func initSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
