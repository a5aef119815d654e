// Package notify は予約完了メールの組み立て・送信・非同期配信を提供する。
package notify

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// EmailData は通知の件名と本文。
type EmailData struct {
	Subject string
	Message string
}

// Message は送信可能な形に組み立てたメール。
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Composer はEmailDataからHTMLメールを組み立てる。
// 本文はbluemondayのstrictポリシーでタグを全て除去してから<p>で囲む。
type Composer struct {
	policy *bluemonday.Policy
}

// NewComposer はComposerの新しいインスタンスを生成する。
func NewComposer() *Composer {
	return &Composer{policy: bluemonday.StrictPolicy()}
}

// Compose はrecipient宛てのメールを組み立てる。
// 件名の改行は空白に置き換える。
func (c *Composer) Compose(data EmailData, recipient string) Message {
	subject := strings.Join(strings.Fields(data.Subject), " ")
	return Message{
		To:       strings.TrimSpace(recipient),
		Subject:  subject,
		HTMLBody: "<p>" + c.policy.Sanitize(data.Message) + "</p>",
	}
}
