package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fa-training/fithub/pkg/event"
)

// Notification は永続化される通知レコード。
// 作成後に変化するのはis_readのみで、false→trueの一方向にだけ遷移する。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string `db:"id"`
	// UserID は通知先のユーザーID。
	UserID string `db:"user_id"`
	// SenderID は発生元ユーザーのID。システム通知の場合はnil。
	SenderID *string `db:"sender_id"`
	// Kind は通知の種類。
	Kind event.Kind `db:"kind"`
	// ReferenceID は参照先ドメインオブジェクトのID（任意）。
	ReferenceID *string `db:"reference_id"`
	// ReferenceType は参照先の種類（任意）。
	ReferenceType *string `db:"reference_type"`
	// Content は表示用の本文。
	Content string `db:"content"`
	// IsRead は既読状態（SQLiteの0/1）。
	IsRead int64 `db:"is_read"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at"`
}

// Store は通知レコードのSQLite永続化層。
// 単一行の挿入と一括既読化の原子性は下層のストアに委ねる。
type Store struct {
	db *sqlx.DB
}

// NewStore は新しい通知ストアを生成する。
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Init は通知テーブルのスキーマを適用する。
func (s *Store) Init() error {
	return initSchema(s.db)
}

// Create は通知レコードを挿入する。
func (s *Store) Create(ctx context.Context, n *Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, sender_id, kind,
			reference_id, reference_type, content, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.SenderID, n.Kind,
		n.ReferenceID, n.ReferenceType, n.Content, n.IsRead, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知の挿入に失敗: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの全通知を新しい順で返す。
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Notification, error) {
	var notifications []Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// ListUnreadByUser は指定ユーザーの未読通知を新しい順で返す。
func (s *Store) ListUnreadByUser(ctx context.Context, userID string) ([]Notification, error) {
	var notifications []Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// CountUnread は指定ユーザーの未読通知数を返す。
func (s *Store) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("未読通知数の取得に失敗: %w", err)
	}
	return count, nil
}

// MarkRead は指定ユーザーが所有する通知を既読にする。
// 対象が存在しない・所有者が異なる・既に既読の場合はfalseを返す（エラーではない）。
func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1
		WHERE id = ? AND user_id = ? AND is_read = 0`,
		notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("通知の既読化に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("既読化の影響行数の取得に失敗: %w", err)
	}
	return rows > 0, nil
}

// MarkAllRead は指定ユーザーの全未読通知を既読にする。
// 単一のUPDATE文で実行され、冪等である。
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1
		WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return fmt.Errorf("全通知の既読化に失敗: %w", err)
	}
	return nil
}

// DeleteOlderThan は指定日時より古い通知を削除し、削除件数を返す。
// 保持期限ジョブから呼び出される。
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("古い通知の削除に失敗: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}
