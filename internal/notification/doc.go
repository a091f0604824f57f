// Package notification はリアルタイム通知配信サブシステムを提供する。
//
// 通知レコードの永続化、ユーザーごとのライブSSE接続のレジストリ管理、
// 新規通知の全接続へのファンアウトを行う。切断された・遅い接続は
// 他の受信者をブロックせずに切り離される。既読管理と一覧取得も行う。
package notification
