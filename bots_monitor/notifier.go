package bots_monitor

import (
	"context"
	"errors"
	"fmt"

	"dex-sniper/internal/infra/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier broadcasts a text message to every configured recipient
type Notifier interface {
	Send(text string) error
}

// PhotoSender optional capability of a Notifier
type PhotoSender interface {
	SendPhoto(png []byte, caption string) error
}

// Command inbound chat message that may be a bot command
type Command struct {
	ChatID int64
	Text   string
}

type CommandSource interface {
	PollCommands(ctx context.Context) ([]Command, error)
}

// botAPI subset of *tgbotapi.BotAPI the notifier uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// TelegramNotifier sends HTML messages to a fixed set of chats and reads
// commands with getUpdates. Each update is handled once; updates queued
// before the first poll are skipped.
type TelegramNotifier struct {
	bot     botAPI
	chatIDs []int64
	offset  int
	primed  bool
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI, chatIDs []int64) *TelegramNotifier {
	return newTelegramNotifier(bot, chatIDs)
}

func newTelegramNotifier(bot botAPI, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

// Send delivers text to every chat; a failed chat does not stop the others
func (n *TelegramNotifier) Send(text string) error {
	var errs []error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := n.bot.Send(msg); err != nil {
			log.LogError("Failed to send telegram message", zap.Int64("chatID", chatID), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *TelegramNotifier) SendPhoto(png []byte, caption string) error {
	var errs []error
	for _, chatID := range n.chatIDs {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "session.png", Bytes: png})
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML

		if _, err := n.bot.Send(photo); err != nil {
			log.LogError("Failed to send telegram photo", zap.Int64("chatID", chatID), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// PollCommands non-blocking read of pending updates
func (n *TelegramNotifier) PollCommands(ctx context.Context) ([]Command, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.primed {
		return nil, n.skipBacklog()
	}

	u := tgbotapi.NewUpdate(n.offset)
	u.Limit = 5
	u.Timeout = 0

	updates, err := n.bot.GetUpdates(u)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}

	var cmds []Command
	for _, upd := range updates {
		if upd.UpdateID >= n.offset {
			n.offset = upd.UpdateID + 1
		}
		if upd.Message == nil || upd.Message.Chat == nil || upd.Message.Text == "" {
			continue
		}
		cmds = append(cmds, Command{ChatID: upd.Message.Chat.ID, Text: upd.Message.Text})
	}
	return cmds, nil
}

// skipBacklog moves the offset past everything already queued. offset -1
// returns only the newest update and confirms the older ones.
func (n *TelegramNotifier) skipBacklog() error {
	u := tgbotapi.NewUpdate(-1)
	u.Limit = 1
	u.Timeout = 0

	updates, err := n.bot.GetUpdates(u)
	if err != nil {
		return fmt.Errorf("failed to get updates: %w", err)
	}
	for _, upd := range updates {
		if upd.UpdateID >= n.offset {
			n.offset = upd.UpdateID + 1
		}
	}
	n.primed = true
	if len(updates) > 0 {
		log.LogDebug("Skipped queued telegram updates", zap.Int("offset", n.offset))
	}
	return nil
}

// NopNotifier used when no bot token is configured
type NopNotifier struct{}

func (NopNotifier) Send(text string) error {
	log.LogDebug("Telegram not configured, message dropped", zap.Int("length", len(text)))
	return nil
}

func (NopNotifier) PollCommands(ctx context.Context) ([]Command, error) { return nil, nil }
