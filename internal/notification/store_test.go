package notification

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fa-training/fithub/pkg/event"
)

// setupTestStore はテスト用の通知ストアをインメモリSQLiteで構築する。
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// インメモリDBは接続ごとに独立するため単一接続に固定する
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	if err := store.Init(); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}
	return store
}

// createTestNotification はテスト用に通知をDBに直接挿入するヘルパー関数。
func createTestNotification(t *testing.T, store *Store, id, userID string, isRead int64, createdAt time.Time) {
	t.Helper()
	err := store.Create(t.Context(), &Notification{
		ID:        id,
		UserID:    userID,
		Kind:      event.KindSystemNotification,
		Content:   "テスト通知",
		IsRead:    isRead,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("テスト用通知の作成に失敗: %v", err)
	}
}

// TestStoreCreateAndList は通知の作成と一覧取得のテスト。
func TestStoreCreateAndList(t *testing.T) {
	t.Parallel()

	t.Run("作成した通知が新しい順で取得できる", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		createTestNotification(t, store, "n-1", "user-1", 0, base)
		createTestNotification(t, store, "n-2", "user-1", 0, base.Add(time.Minute))
		createTestNotification(t, store, "n-3", "user-2", 0, base.Add(2*time.Minute))

		notifications, err := store.ListByUser(t.Context(), "user-1")
		if err != nil {
			t.Fatalf("一覧取得に失敗: %v", err)
		}
		if len(notifications) != 2 {
			t.Fatalf("件数: got %d, want 2", len(notifications))
		}
		if notifications[0].ID != "n-2" {
			t.Errorf("先頭のID: got %s, want n-2", notifications[0].ID)
		}
		if notifications[1].ID != "n-1" {
			t.Errorf("2番目のID: got %s, want n-1", notifications[1].ID)
		}
	})

	t.Run("通知のないユーザーの一覧は空", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		notifications, err := store.ListByUser(t.Context(), "unknown-user")
		if err != nil {
			t.Fatalf("一覧取得に失敗: %v", err)
		}
		if len(notifications) != 0 {
			t.Errorf("件数: got %d, want 0", len(notifications))
		}
	})
}

// TestStoreUnread は未読一覧と未読数のテスト。
func TestStoreUnread(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	createTestNotification(t, store, "n-1", "user-1", 0, base)
	createTestNotification(t, store, "n-2", "user-1", 1, base.Add(time.Minute))
	createTestNotification(t, store, "n-3", "user-1", 0, base.Add(2*time.Minute))

	unread, err := store.ListUnreadByUser(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("未読一覧の取得に失敗: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("未読件数: got %d, want 2", len(unread))
	}
	if unread[0].ID != "n-3" {
		t.Errorf("先頭のID: got %s, want n-3", unread[0].ID)
	}

	count, err := store.CountUnread(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("未読数の取得に失敗: %v", err)
	}
	if count != 2 {
		t.Errorf("未読数: got %d, want 2", count)
	}
}

// TestStoreMarkRead は個別既読化のテスト。
func TestStoreMarkRead(t *testing.T) {
	t.Parallel()

	t.Run("所有者が既読化できる", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		createTestNotification(t, store, "n-1", "user-1", 0, time.Now().UTC())

		updated, err := store.MarkRead(t.Context(), "user-1", "n-1")
		if err != nil {
			t.Fatalf("既読化に失敗: %v", err)
		}
		if !updated {
			t.Error("既読化が反映されていません")
		}

		count, err := store.CountUnread(t.Context(), "user-1")
		if err != nil {
			t.Fatalf("未読数の取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("未読数: got %d, want 0", count)
		}
	})

	t.Run("他ユーザーの通知は既読化できない", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		createTestNotification(t, store, "n-1", "user-1", 0, time.Now().UTC())

		updated, err := store.MarkRead(t.Context(), "user-2", "n-1")
		if err != nil {
			t.Fatalf("既読化に失敗: %v", err)
		}
		if updated {
			t.Error("他ユーザーの通知が既読化されています")
		}

		count, err := store.CountUnread(t.Context(), "user-1")
		if err != nil {
			t.Fatalf("未読数の取得に失敗: %v", err)
		}
		if count != 1 {
			t.Errorf("未読数: got %d, want 1", count)
		}
	})

	t.Run("存在しないIDの既読化はfalse", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		updated, err := store.MarkRead(t.Context(), "user-1", "unknown-id")
		if err != nil {
			t.Fatalf("既読化に失敗: %v", err)
		}
		if updated {
			t.Error("存在しない通知が既読化されています")
		}
	})

	t.Run("既読済みの再既読化はfalse", func(t *testing.T) {
		t.Parallel()
		store := setupTestStore(t)

		createTestNotification(t, store, "n-1", "user-1", 1, time.Now().UTC())

		updated, err := store.MarkRead(t.Context(), "user-1", "n-1")
		if err != nil {
			t.Fatalf("既読化に失敗: %v", err)
		}
		if updated {
			t.Error("既読済みの通知が再度更新されています")
		}
	})
}

// TestStoreMarkAllRead は一括既読化のテスト。
func TestStoreMarkAllRead(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	createTestNotification(t, store, "n-1", "user-1", 0, base)
	createTestNotification(t, store, "n-2", "user-1", 0, base.Add(time.Minute))
	createTestNotification(t, store, "n-3", "user-2", 0, base.Add(2*time.Minute))

	if err := store.MarkAllRead(t.Context(), "user-1"); err != nil {
		t.Fatalf("一括既読化に失敗: %v", err)
	}

	count, err := store.CountUnread(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("未読数の取得に失敗: %v", err)
	}
	if count != 0 {
		t.Errorf("未読数: got %d, want 0", count)
	}

	// 他ユーザーの未読は影響を受けない
	otherCount, err := store.CountUnread(t.Context(), "user-2")
	if err != nil {
		t.Fatalf("未読数の取得に失敗: %v", err)
	}
	if otherCount != 1 {
		t.Errorf("他ユーザーの未読数: got %d, want 1", otherCount)
	}

	// 既読済みしかない状態での再実行もエラーにならない
	if err := store.MarkAllRead(t.Context(), "user-1"); err != nil {
		t.Fatalf("再実行に失敗: %v", err)
	}
}

// TestStoreDeleteOlderThan は保持期限での削除のテスト。
func TestStoreDeleteOlderThan(t *testing.T) {
	t.Parallel()

	store := setupTestStore(t)

	now := time.Now().UTC()
	createTestNotification(t, store, "n-old", "user-1", 1, now.AddDate(0, 0, -100))
	createTestNotification(t, store, "n-new", "user-1", 0, now)

	deleted, err := store.DeleteOlderThan(t.Context(), now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("削除に失敗: %v", err)
	}
	if deleted != 1 {
		t.Errorf("削除件数: got %d, want 1", deleted)
	}

	notifications, err := store.ListByUser(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("一覧取得に失敗: %v", err)
	}
	if len(notifications) != 1 || notifications[0].ID != "n-new" {
		t.Errorf("残った通知: got %+v, want n-newのみ", notifications)
	}
}
