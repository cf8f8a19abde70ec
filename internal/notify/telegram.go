package notify

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealwatch/internal/metrics"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

// Telegram delivers match events as Telegram messages. Each watch rule may
// name its own chat id in Channel; rules without one use the default chat.
type Telegram struct {
	bot           *tgbotapi.BotAPI
	defaultChatID int64
	log           *logger.Logger
}

// NewTelegram creates a Telegram sink
func NewTelegram(botToken string, defaultChatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	return &Telegram{
		bot:           bot,
		defaultChatID: defaultChatID,
		log:           logger.Get().With("component", "telegram_notifier"),
	}, nil
}

func (t *Telegram) Notify(_ context.Context, ev Event) error {
	chatID := t.defaultChatID
	if ev.Rule.Channel != "" {
		if id, err := strconv.ParseInt(ev.Rule.Channel, 10, 64); err == nil {
			chatID = id
		} else {
			t.log.Warnw("Rule channel is not a chat id, using default",
				"rule", ev.Rule.Name,
				"channel", ev.Rule.Channel,
			)
		}
	}

	msg := tgbotapi.NewMessage(chatID, FormatMessage(ev))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = false

	if _, err := t.bot.Send(msg); err != nil {
		metrics.NotificationsSent.WithLabelValues("telegram", "error").Inc()
		return errors.Wrapf(err, "send telegram message to chat %d", chatID)
	}

	metrics.NotificationsSent.WithLabelValues("telegram", "success").Inc()
	return nil
}
