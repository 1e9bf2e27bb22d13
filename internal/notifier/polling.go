package notifier

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called when a user command is received. A non-empty
// return value is sent back to the same chat.
type CommandHandler func(ctx context.Context, chatID, command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)
	t.log.Infow("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.log.Infow("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Text == "" {
				continue
			}
			chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
			text := strings.TrimSpace(update.Message.Text)
			t.log.Infow("received command", "chat_id", chatID, "text", text)

			go func() {
				reply := handler(ctx, chatID, text)
				if reply == "" {
					return
				}
				if err := t.Send(ctx, chatID, reply); err != nil {
					t.log.Errorw("send reply failed", "chat_id", chatID, "error", err)
				}
			}()
		}
	}
}
