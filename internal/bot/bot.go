// Package bot implements the Telegram transport: feedback capture and admin commands.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"feedback_bot/internal/config"
	"feedback_bot/internal/filter"
	"feedback_bot/internal/model"
	"feedback_bot/internal/scheduler"
	"feedback_bot/internal/storage"
)

// Captured text is truncated to keep records bounded while preserving context.
const maxCapturedText = 1000

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that captures feedback and handles admin commands.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	matcher *filter.Matcher
	sched   *scheduler.Scheduler
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token.
func New(token string, store storage.Storage, matcher *filter.Matcher, sched *scheduler.Scheduler, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		store:   store,
		matcher: matcher,
		sched:   sched,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			if update.Message.IsCommand() {
				if update.Message.From != nil && !b.cfg.IsUserAllowed(update.Message.From.ID) {
					b.reply(update.Message.Chat.ID, "Access denied.")
					continue
				}
				b.handleCommand(ctx, update.Message)
				continue
			}
			b.captureMessage(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// captureMessage is the ingestion path: a qualifying message produces one
// pending record per mentioned subject. Replayed updates are absorbed by the
// store's duplicate-ID contract.
func (b *Bot) captureMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" || strings.TrimSpace(msg.Text) == "" {
		return
	}
	if !b.cfg.IsChatMonitored(msg.Chat.ID) {
		return
	}

	subjects := b.matcher.Relevant(msg.Text, msg.From.IsBot)
	if len(subjects) == 0 {
		return
	}

	text := msg.Text
	if utf8.RuneCountInString(text) > maxCapturedText {
		text = string([]rune(text)[:maxCapturedText])
	}

	for _, subject := range subjects {
		rec := &model.Record{
			ID:          fmt.Sprintf("%d:%d:%s", msg.Chat.ID, msg.MessageID, subject),
			Subject:     subject,
			Text:        text,
			ChannelID:   msg.Chat.ID,
			ChannelName: chatName(msg.Chat),
			AuthorName:  authorName(msg.From),
			Link:        messageLink(msg.Chat, msg.MessageID),
			CapturedAt:  time.Unix(int64(msg.Date), 0).UTC(),
			Status:      model.StatusPending,
		}
		err := b.store.InsertRecord(ctx, rec)
		if errors.Is(err, storage.ErrDuplicateID) {
			b.log.Debug("duplicate event ignored", "id", rec.ID)
			continue
		}
		if err != nil {
			b.log.Error("insert record", "id", rec.ID, "error", err)
			continue
		}
		b.log.Info("captured feedback", "subject", subject, "author", rec.AuthorName, "chat_id", msg.Chat.ID)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "report":
		b.handleReport(ctx, chatID, args)
	case "recent":
		b.handleRecent(ctx, chatID, args)
	case "settarget":
		b.handleSetTarget(ctx, chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for the command reference.")
	}
}

func chatName(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return chat.UserName
}

func authorName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

// messageLink builds a deep link to the captured message. Public chats link by
// username; supergroups by internal ID. Private chats have no stable link.
func messageLink(chat *tgbotapi.Chat, messageID int) string {
	if chat.UserName != "" {
		return fmt.Sprintf("https://t.me/%s/%d", chat.UserName, messageID)
	}
	if chat.IsSuperGroup() || chat.IsChannel() {
		internal := -chat.ID - 1000000000000
		if internal > 0 {
			return fmt.Sprintf("https://t.me/c/%s/%d", strconv.FormatInt(internal, 10), messageID)
		}
	}
	return ""
}
