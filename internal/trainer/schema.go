package trainer

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// トレーナー申請テーブルのスキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS trainer_applications (
    -- 申請の一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 申請者のユーザーID
    user_id TEXT NOT NULL,
    -- 専門分野
    specialty TEXT NOT NULL,
    -- 経歴・自己紹介
    biography TEXT NOT NULL,
    -- 保有資格の証明書類のURL（任意）
    certificate_url TEXT,
    -- 申請の状態（PENDING / APPROVED / REJECTED）
    status TEXT NOT NULL DEFAULT 'PENDING',
    -- 審査者のユーザーID（未審査の場合はNULL）
    reviewed_by TEXT,
    -- 審査コメント（任意）
    review_note TEXT,
    -- 申請日時
    created_at DATETIME NOT NULL,
    -- 審査日時（未審査の場合はNULL）
    reviewed_at DATETIME
);

-- 申請者での検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_trainer_applications_user_id
    ON trainer_applications(user_id);

-- 未審査の申請一覧の取得を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_trainer_applications_status
    ON trainer_applications(status);
`

// initSchema はSQLiteデータベースにトレーナー申請テーブルのスキーマを適用する。
func initSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
