package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedback_bot/internal/report"
	"feedback_bot/internal/scheduler"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, fmt.Sprintf(`Welcome to the app feedback bot!

I watch this chat for messages about %s, classify them, and post a daily summary.

Quick start:
1. /settarget — post daily summaries to this chat
2. /report — get a summary now
3. /recent — see the latest captured feedback

Use /help for the full command reference.`, strings.Join(b.matcher.Subjects(), ", ")))
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Reports:
/report [app] — summary of the last 24 hours, optionally for one app
/settarget — deliver the daily summary to this chat
/status — schedule and tracking status

Feedback:
/recent [app] [hours] — latest captured feedback (default: 24 hours)

Feedback is captured automatically from monitored chats; there is nothing to
submit by hand.`)
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, args string) {
	subject, err := ParseReportArgs(args, b.matcher)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	summary, err := b.sched.TriggerReport(ctx, subject)
	if err != nil && !errors.Is(err, scheduler.ErrNoTarget) {
		b.log.Error("trigger report", "error", err)
		b.reply(chatID, "Failed to build the report, try again later.")
		return
	}

	text := report.Format(summary)
	if errors.Is(err, scheduler.ErrNoTarget) {
		text += "\n\nNo daily delivery target is set. Use /settarget in the chat that should receive daily summaries."
	}
	b.reply(chatID, text)
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, args string) {
	subject, since, err := ParseRecentArgs(args, b.matcher)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	recs, err := b.store.QueryRecent(ctx, subject, since)
	if err != nil {
		b.log.Error("query recent", "error", err)
		b.reply(chatID, "Failed to load recent feedback, try again later.")
		return
	}

	b.reply(chatID, FormatRecent(recs, subject))
}

func (b *Bot) handleSetTarget(ctx context.Context, chatID int64) {
	if err := b.store.SetDeliveryTarget(ctx, chatID); err != nil {
		b.log.Error("set delivery target", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to save the delivery target, try again later.")
		return
	}
	b.log.Info("delivery target updated", "chat_id", chatID)
	b.reply(chatID, "Daily summaries will be posted to this chat.")
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	cfg, err := b.store.GetScheduleConfig(ctx)
	if err != nil {
		b.log.Error("get schedule config", "error", err)
		b.reply(chatID, "Failed to load status, try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Tracking: %s\n", strings.Join(b.matcher.Subjects(), ", "))
	fmt.Fprintf(&sb, "Daily summary at %s (%s)\n", cfg.FireTime, cfg.Timezone)
	if cfg.DeliveryChatID == 0 {
		sb.WriteString("Delivery target: not set (use /settarget)\n")
	} else {
		fmt.Fprintf(&sb, "Delivery target: chat %d\n", cfg.DeliveryChatID)
	}
	if cfg.LastFiredDate == "" {
		sb.WriteString("Last report: never")
	} else {
		fmt.Fprintf(&sb, "Last report: %s", cfg.LastFiredDate)
	}
	b.reply(chatID, sb.String())
}
