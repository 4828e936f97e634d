// Package telegram implements the notification surface over a Telegram
// bot: watering reminders land as messages in the owner's chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Surface sends notifications to a single chat.
type Surface struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewSurface connects the bot. chatID is the owner's chat.
func NewSurface(token string, chatID int64, log *zap.Logger) (*Surface, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	bot.Debug = false
	log.Info("telegram surface ready", zap.String("bot", bot.Self.UserName))
	return &Surface{bot: bot, chatID: chatID, log: log}, nil
}

// Supported reports whether a destination chat is configured.
func (s *Surface) Supported() bool {
	return s.bot != nil && s.chatID != 0
}

// RequestPermission is trivially granted: a configured chat already
// implies the owner consented to bot messages.
func (s *Surface) RequestPermission(_ context.Context) bool {
	return s.Supported()
}

// Show sends the notification as one message. Telegram has no native
// notification tags; the per-day ledger handles duplicate suppression,
// so the tag is only logged.
func (s *Surface) Show(_ context.Context, title, body, tag string) error {
	msg := tgbotapi.NewMessage(s.chatID, title+"\n"+body)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	s.log.Debug("telegram notification sent", zap.String("tag", tag))
	return nil
}
