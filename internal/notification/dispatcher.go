package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fa-training/fithub/pkg/event"
)

// Directory は送信者の表示情報（名前・アバター）を解決するインターフェース。
// userパッケージが実装する。ディスパッチャはベストエフォートでのみ利用し、
// 解決の失敗は表示フィールドの省略に留める。
type Directory interface {
	// DisplayInfo は指定ユーザーの表示名とアバターURLを返す。
	DisplayInfo(ctx context.Context, userID string) (name, avatar string, err error)
}

// Service は通知のディスパッチャ。新規通知が作られる唯一の経路であり、
// 永続化→ワイヤDTOへの変換→受信者の全ライブ接続へのファンアウトを
// オーケストレーションする。既読管理と一覧取得も担う。
type Service struct {
	// store は通知レコードの永続化層。
	store *Store
	// registry は受信者のライブ接続を引くレジストリ。
	registry *ConnectionRegistry
	// directory は送信者表示情報のベストエフォート解決に使用する。nilでもよい。
	directory Directory
	// metrics は配信の成否を記録する。
	metrics *Metrics
}

// NewService は新しい通知ディスパッチャを生成する。
func NewService(store *Store, registry *ConnectionRegistry, directory Directory, metrics *Metrics) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		directory: directory,
		metrics:   metrics,
	}
}

// NotifyInput はNotify操作の入力。ビジネストリガーが構築する。
type NotifyInput struct {
	// Recipient は通知先のユーザーID。必須。
	Recipient string
	// Kind は通知の種類。定義済みの列挙値でなければならない。
	Kind event.Kind
	// Content は表示用の本文。必須。
	Content string
	// SenderID は発生元ユーザーのID（任意）。
	SenderID *string
	// ReferenceID は参照先ドメインオブジェクトのID（任意）。
	ReferenceID *string
	// ReferenceType は参照先の種類（任意）。
	ReferenceType *string
}

// Notify は通知を作成して配信する。
// 永続化に失敗した場合はエラーを返し、配信は一切試みない
// （クライアントが後からバックログで取得できない通知を受け取らないため）。
// ライブ配信はベストエフォートであり、個々の送信失敗は成否に影響しない。
func (s *Service) Notify(ctx context.Context, in NotifyInput) (*Notification, error) {
	if in.Recipient == "" {
		return nil, fmt.Errorf("通知先のユーザーIDが必要です")
	}
	if in.Content == "" {
		return nil, fmt.Errorf("通知の本文が必要です")
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("未定義の通知種類です: %q", in.Kind)
	}

	n := &Notification{
		ID:            uuid.New().String(),
		UserID:        in.Recipient,
		SenderID:      in.SenderID,
		Kind:          in.Kind,
		ReferenceID:   in.ReferenceID,
		ReferenceType: in.ReferenceType,
		Content:       in.Content,
		IsRead:        0,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("通知の保存に失敗: %w", err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()

	payload := s.toPayload(ctx, n)
	s.fanOut(in.Recipient, payload)

	return n, nil
}

// fanOut は受信者の全ライブ接続へイベントの送信を試みる。
// 1接続の失敗は隔離される: ログに残してその接続だけを解除し、
// 残りの接続への配信と永続化済みレコードには影響させない。
func (s *Service) fanOut(userID string, payload *event.NotificationPayload) {
	conns := s.registry.ActiveConnections(userID)
	if len(conns) == 0 {
		return
	}

	ev := event.NewNotificationEvent(payload)
	for _, conn := range conns {
		if err := conn.Send(ev); err != nil {
			log.Printf("SSE送信に失敗したため接続を解除します: user=%s conn=%s: %v", userID, conn.ID(), err)
			conn.Close(StateErrored)
			s.registry.Unregister(userID, conn.ID())
			s.metrics.PushFailed.Inc()
			continue
		}
		s.metrics.PushDelivered.Inc()
	}
}

// toPayload は通知レコードをワイヤDTOに変換する。
// 送信者が存在する場合は表示情報をベストエフォートで解決し、
// 失敗時は表示フィールドを省略する（変換自体は失敗しない）。
func (s *Service) toPayload(ctx context.Context, n *Notification) *event.NotificationPayload {
	payload := &event.NotificationPayload{
		ID:            n.ID,
		UserID:        n.UserID,
		SenderID:      n.SenderID,
		Type:          n.Kind,
		ReferenceID:   n.ReferenceID,
		ReferenceType: n.ReferenceType,
		Content:       n.Content,
		IsRead:        n.IsRead != 0,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}

	if n.SenderID != nil && s.directory != nil {
		name, avatar, err := s.directory.DisplayInfo(ctx, *n.SenderID)
		if err != nil {
			log.Printf("送信者表示情報の解決に失敗（表示フィールドを省略）: sender=%s: %v", *n.SenderID, err)
		} else {
			payload.SenderName = &name
			if avatar != "" {
				payload.SenderAvatar = &avatar
			}
		}
	}

	return payload
}

// ListAll は指定ユーザーの全通知をワイヤDTOの新しい順で返す。
func (s *Service) ListAll(ctx context.Context, userID string) ([]*event.NotificationPayload, error) {
	notifications, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toPayloads(ctx, notifications), nil
}

// ListUnread は指定ユーザーの未読通知をワイヤDTOの新しい順で返す。
func (s *Service) ListUnread(ctx context.Context, userID string) ([]*event.NotificationPayload, error) {
	notifications, err := s.store.ListUnreadByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toPayloads(ctx, notifications), nil
}

// UnreadCount は指定ユーザーの未読通知数を返す。
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead は指定ユーザーが所有する通知を既読にする。
// 対象が見つからない場合（未知のID・他ユーザーの通知・既読済み）は
// ログに残すだけの何もしない操作であり、エラーにはしない。
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	updated, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !updated {
		log.Printf("既読化の対象が見つかりません（未知のIDまたは既読済み）: id=%s user=%s", notificationID, userID)
	}
	return nil
}

// MarkAllRead は指定ユーザーの全未読通知を既読にする。冪等。
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID)
}

// toPayloads はレコードのスライスをワイヤDTOのスライスに変換する。
func (s *Service) toPayloads(ctx context.Context, notifications []Notification) []*event.NotificationPayload {
	payloads := make([]*event.NotificationPayload, 0, len(notifications))
	for i := range notifications {
		payloads = append(payloads, s.toPayload(ctx, &notifications[i]))
	}
	return payloads
}
