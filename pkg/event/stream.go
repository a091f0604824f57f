package event

import "time"

// ストリームイベントの名前。クライアントはこの名前でイベントを購読する。
const (
	// StreamEventConnected は接続確立直後に一度だけ送信されるキープアライブイベント。
	StreamEventConnected = "connected"
	// StreamEventNotification は新規通知を運ぶイベント。
	StreamEventNotification = "notification"
)

// StreamEvent はSSEで配信するイベントのエンベロープ。
// イベント種別・ペイロード・タイムスタンプを持つ。
type StreamEvent struct {
	// EventType はイベントの名前（"connected" または "notification"）。
	EventType string `json:"eventType"`
	// Notification はイベントが運ぶ通知。connectedイベントではnil。
	Notification *NotificationPayload `json:"notification,omitempty"`
	// Message は通知を伴わないイベントの補足メッセージ。
	Message string `json:"message,omitempty"`
	// Timestamp はイベント生成時刻（Unixミリ秒）。
	Timestamp int64 `json:"timestamp"`
}

// NewNotificationEvent は通知配信用のストリームイベントを生成する。
func NewNotificationEvent(payload *NotificationPayload) StreamEvent {
	return StreamEvent{
		EventType:    StreamEventNotification,
		Notification: payload,
		Timestamp:    time.Now().UnixMilli(),
	}
}

// NewConnectedEvent は接続確立を知らせるキープアライブイベントを生成する。
func NewConnectedEvent() StreamEvent {
	return StreamEvent{
		EventType: StreamEventConnected,
		Message:   "通知ストリームに接続しました",
		Timestamp: time.Now().UnixMilli(),
	}
}
