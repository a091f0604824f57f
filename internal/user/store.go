package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ロールの定義。
const (
	// RoleMember は一般会員。
	RoleMember = "MEMBER"
	// RoleTrainer は承認済みトレーナー。
	RoleTrainer = "TRAINER"
	// RoleAdmin は管理者。
	RoleAdmin = "ADMIN"
)

// ErrNotFound は対象のユーザーが存在しないことを表す。
var ErrNotFound = errors.New("ユーザーが見つかりません")

// User は永続化されるユーザーレコード。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string `db:"id"`
	// Email はログイン用メールアドレス。
	Email string `db:"email"`
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string `db:"password_hash"`
	// DisplayName は表示名。
	DisplayName string `db:"display_name"`
	// AvatarURL はアバター画像のURL。
	AvatarURL string `db:"avatar_url"`
	// Role はユーザーのロール。
	Role string `db:"role"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `db:"updated_at"`
}

// Store はユーザーレコードのSQLite永続化層。
type Store struct {
	db *sqlx.DB
}

// NewStore は新しいユーザーストアを生成する。
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Init はユーザーテーブルのスキーマを適用する。
func (s *Store) Init() error {
	return initSchema(s.db)
}

// Create はユーザーレコードを挿入する。
func (s *Store) Create(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, password_hash, display_name, avatar_url, role, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.Role,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ユーザーの挿入に失敗: %w", err)
	}
	return nil
}

// GetByID は指定IDのユーザーを返す。存在しない場合はErrNotFound。
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &u, nil
}

// GetByEmail は指定メールアドレスのユーザーを返す。存在しない場合はErrNotFound。
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &u, nil
}

// UpdateProfile は表示名とアバターURLを更新する。
func (s *Store) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?`,
		displayName, avatarURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗: %w", err)
	}
	return nil
}

// UpdateRole は指定ユーザーのロールを変更する（トレーナー承認時など）。
func (s *Store) UpdateRole(ctx context.Context, id, role string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("ロールの更新に失敗: %w", err)
	}
	return nil
}
