// Package mailer はSMTP経由のメール送信を提供する。
//
// SMTPホストが設定されていない環境（開発・テスト）では送信せずに
// ログに残すだけの動作となり、呼び出し側は設定の有無を意識しなくてよい。
package mailer

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer はSMTPメール送信クライアント。
type Mailer struct {
	// host はSMTPサーバーのホスト名。空の場合は送信しない。
	host string
	// port はSMTPサーバーのポート。
	port string
	// from は送信元アドレス。
	from string
	// auth はSMTP認証。認証不要のサーバーの場合はnil。
	auth smtp.Auth
}

// New は新しいメール送信クライアントを生成する。
// hostが空の場合、Sendはログ出力のみの何もしない動作になる。
func New(host, port, username, password, from string) *Mailer {
	m := &Mailer{
		host: host,
		port: port,
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

// Send はメールを送信する。SMTPホストが未設定の場合はログに残して成功を返す。
func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		log.Printf("SMTP未設定のためメール送信をスキップ: to=%s subject=%q", to, subject)
		return nil
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		m.from, to, subject, body)

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := smtp.SendMail(addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("メール送信に失敗: %w", err)
	}
	return nil
}
