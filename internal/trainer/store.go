package trainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// 申請の状態の定義。PENDINGからAPPROVEDまたはREJECTEDへ一方向に遷移する。
const (
	// StatusPending は未審査の状態。
	StatusPending = "PENDING"
	// StatusApproved は承認された状態。
	StatusApproved = "APPROVED"
	// StatusRejected は却下された状態。
	StatusRejected = "REJECTED"
)

// ErrNotFound は対象の申請が存在しないことを表す。
var ErrNotFound = errors.New("申請が見つかりません")

// Application は永続化されるトレーナー申請レコード。
type Application struct {
	// ID は申請の一意識別子（UUID）。
	ID string `db:"id"`
	// UserID は申請者のユーザーID。
	UserID string `db:"user_id"`
	// Specialty は専門分野。
	Specialty string `db:"specialty"`
	// Biography は経歴・自己紹介。
	Biography string `db:"biography"`
	// CertificateURL は保有資格の証明書類のURL（任意）。
	CertificateURL *string `db:"certificate_url"`
	// Status は申請の状態。
	Status string `db:"status"`
	// ReviewedBy は審査者のユーザーID（未審査の場合はnil）。
	ReviewedBy *string `db:"reviewed_by"`
	// ReviewNote は審査コメント（任意）。
	ReviewNote *string `db:"review_note"`
	// CreatedAt は申請日時。
	CreatedAt time.Time `db:"created_at"`
	// ReviewedAt は審査日時（未審査の場合はnil）。
	ReviewedAt *time.Time `db:"reviewed_at"`
}

// Store はトレーナー申請レコードのSQLite永続化層。
type Store struct {
	db *sqlx.DB
}

// NewStore は新しいトレーナー申請ストアを生成する。
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Init はトレーナー申請テーブルのスキーマを適用する。
func (s *Store) Init() error {
	return initSchema(s.db)
}

// Create は申請レコードを挿入する。
func (s *Store) Create(ctx context.Context, a *Application) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trainer_applications (
			id, user_id, specialty, biography, certificate_url,
			status, reviewed_by, review_note, created_at, reviewed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Specialty, a.Biography, a.CertificateURL,
		a.Status, a.ReviewedBy, a.ReviewNote, a.CreatedAt.UTC(), a.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("申請の挿入に失敗: %w", err)
	}
	return nil
}

// GetByID は指定IDの申請を返す。存在しない場合はErrNotFound。
func (s *Store) GetByID(ctx context.Context, id string) (*Application, error) {
	var a Application
	err := s.db.GetContext(ctx, &a, `SELECT * FROM trainer_applications WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("申請の取得に失敗: %w", err)
	}
	return &a, nil
}

// ListByUser は指定ユーザーの申請を新しい順で返す。
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Application, error) {
	var applications []Application
	err := s.db.SelectContext(ctx, &applications, `
		SELECT * FROM trainer_applications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("申請一覧の取得に失敗: %w", err)
	}
	return applications, nil
}

// HasPending は指定ユーザーに未審査の申請があるかどうかを返す。
func (s *Store) HasPending(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM trainer_applications
		WHERE user_id = ? AND status = ?`, userID, StatusPending)
	if err != nil {
		return false, fmt.Errorf("未審査申請の確認に失敗: %w", err)
	}
	return count > 0, nil
}

// ListByStatus は指定状態の申請を古い順（審査待ち行列順）で返す。
func (s *Store) ListByStatus(ctx context.Context, status string) ([]Application, error) {
	var applications []Application
	err := s.db.SelectContext(ctx, &applications, `
		SELECT * FROM trainer_applications
		WHERE status = ?
		ORDER BY created_at ASC, id ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("申請一覧の取得に失敗: %w", err)
	}
	return applications, nil
}

// Review は未審査の申請に審査結果を記録する。
// 既に審査済みの申請に対してはfalseを返す（最初の審査が勝つ）。
func (s *Store) Review(ctx context.Context, id, status, reviewerID string, note *string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trainer_applications
		SET status = ?, reviewed_by = ?, review_note = ?, reviewed_at = ?
		WHERE id = ? AND status = ?`,
		status, reviewerID, note, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("審査結果の記録に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("審査の影響行数の取得に失敗: %w", err)
	}
	return rows > 0, nil
}
