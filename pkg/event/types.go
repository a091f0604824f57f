package event

// Kind は通知の種類を表す。閉じた列挙型であり、
// ビジネストリガーが通知を構築する境界でバリデーションされる。
type Kind string

const (
	// KindSystemNotification はシステムからのお知らせを表す。
	KindSystemNotification Kind = "SYSTEM_NOTIFICATION"
	// KindLike は投稿へのいいねを表す。
	KindLike Kind = "LIKE"
	// KindComment は投稿へのコメントを表す。
	KindComment Kind = "COMMENT"
	// KindCommentReplied はコメントへの返信を表す。
	KindCommentReplied Kind = "COMMENT_REPLIED"
	// KindCourseEnroll はコースへの登録完了を表す。
	KindCourseEnroll Kind = "COURSE_ENROLL"
	// KindLessonComplete はレッスンの完了を表す。
	KindLessonComplete Kind = "LESSON_COMPLETE"
	// KindTrainerApproved はトレーナー申請の承認を表す。
	KindTrainerApproved Kind = "TRAINER_APPROVED"
	// KindTrainerRejected はトレーナー申請の却下を表す。
	KindTrainerRejected Kind = "TRAINER_REJECTED"
	// KindTest は動作確認用のテスト通知を表す。
	KindTest Kind = "TEST"
)

// kinds は有効な通知種類の集合。
var kinds = map[Kind]struct{}{
	KindSystemNotification: {},
	KindLike:               {},
	KindComment:            {},
	KindCommentReplied:     {},
	KindCourseEnroll:       {},
	KindLessonComplete:     {},
	KindTrainerApproved:    {},
	KindTrainerRejected:    {},
	KindTest:               {},
}

// Valid は通知種類が定義済みかどうかを返す。
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// NotificationPayload は通知のワイヤ表現。
// SSEイベントおよびREST APIのレスポンスで使用する不変のDTO。
type NotificationPayload struct {
	// ID は通知の一意識別子（UUID）。
	ID string `json:"id"`
	// UserID は通知先のユーザーID。
	UserID string `json:"userId"`
	// SenderID は通知の発生元ユーザーのID。システム通知の場合はnil。
	SenderID *string `json:"senderId,omitempty"`
	// SenderName は発生元ユーザーの表示名（読み取り時に非正規化）。
	SenderName *string `json:"senderName,omitempty"`
	// SenderAvatar は発生元ユーザーのアバターURL（読み取り時に非正規化）。
	SenderAvatar *string `json:"senderAvatar,omitempty"`
	// Type は通知の種類。
	Type Kind `json:"type"`
	// ReferenceID は通知が参照するドメインオブジェクトのID。
	ReferenceID *string `json:"referenceId,omitempty"`
	// ReferenceType は参照先の種類（例: "post", "course"）。
	ReferenceType *string `json:"referenceType,omitempty"`
	// Content は表示用の本文。
	Content string `json:"content"`
	// IsRead は既読状態。
	IsRead bool `json:"isRead"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"createdAt"`
}
