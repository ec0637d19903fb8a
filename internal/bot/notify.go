package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"minemechanics/internal/logger"
)

// Notifier pushes audit-style messages to the operator chat. It is a
// write-only sink: delivery failures are logged and otherwise ignored so a
// flaky admin channel never blocks a fund-moving action.
type Notifier struct {
	api    Sender
	chatID int64
}

// NewNotifier creates an admin notifier. chatID 0 disables it.
func NewNotifier(api Sender, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

// NotifyAdmin sends an HTML-formatted message to the admin chat, best-effort.
func (n *Notifier) NotifyAdmin(text string) {
	if n == nil || n.chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.api.Send(msg); err != nil {
		logger.Warn("admin notify failed", "error", err)
	}
}
