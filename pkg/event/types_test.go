package event

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestKindValid は通知種類のバリデーションのテスト。
func TestKindValid(t *testing.T) {
	t.Parallel()

	valid := []Kind{
		KindSystemNotification, KindLike, KindComment, KindCommentReplied,
		KindCourseEnroll, KindLessonComplete, KindTrainerApproved,
		KindTrainerRejected, KindTest,
	}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("%s が無効と判定されています", k)
		}
	}

	invalid := []Kind{"", "like", "UNKNOWN", "SYSTEM"}
	for _, k := range invalid {
		if k.Valid() {
			t.Errorf("%q が有効と判定されています", k)
		}
	}
}

// TestNotificationPayloadJSON はワイヤDTOのJSON表現のテスト。
// 未設定の送信者・参照フィールドは出力から省略される。
func TestNotificationPayloadJSON(t *testing.T) {
	t.Parallel()

	payload := NotificationPayload{
		ID:        "n-1",
		UserID:    "user-1",
		Type:      KindSystemNotification,
		Content:   "メンテナンスのお知らせ",
		CreatedAt: "2026-08-01T12:00:00Z",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("JSONへの変換に失敗: %v", err)
	}

	s := string(data)
	for _, omitted := range []string{"senderId", "senderName", "senderAvatar", "referenceId", "referenceType"} {
		if strings.Contains(s, omitted) {
			t.Errorf("未設定のフィールドが出力されています: %s, json=%s", omitted, s)
		}
	}
	if !strings.Contains(s, `"isRead":false`) {
		t.Errorf("isReadが出力されていません: %s", s)
	}
}

// TestNewStreamEvents はストリームイベントの生成のテスト。
func TestNewStreamEvents(t *testing.T) {
	t.Parallel()

	connected := NewConnectedEvent()
	if connected.EventType != StreamEventConnected {
		t.Errorf("イベント種別: got %s, want %s", connected.EventType, StreamEventConnected)
	}
	if connected.Notification != nil {
		t.Error("connectedイベントに通知が含まれています")
	}
	if connected.Message == "" {
		t.Error("connectedイベントのメッセージが空です")
	}
	if connected.Timestamp == 0 {
		t.Error("タイムスタンプが設定されていません")
	}

	payload := &NotificationPayload{ID: "n-1"}
	notification := NewNotificationEvent(payload)
	if notification.EventType != StreamEventNotification {
		t.Errorf("イベント種別: got %s, want %s", notification.EventType, StreamEventNotification)
	}
	if notification.Notification != payload {
		t.Error("通知ペイロードが設定されていません")
	}
}
