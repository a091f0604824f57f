// Package user はユーザーアカウントの登録・認証・プロフィール管理を提供する。
//
// メール・パスワードによる認証とJWTの発行、認証済みユーザーのプロフィール
// 取得・更新を行う。通知サブシステムに対しては送信者の表示情報を解決する
// ディレクトリとしても機能する。
package user
